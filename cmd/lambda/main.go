package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/imgateway/internal/app"
	"github.com/zzenonn/imgateway/internal/config"
	"github.com/zzenonn/imgateway/internal/invocation"
	"github.com/zzenonn/imgateway/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	// Function logs are collected line by line, so keep each entry on one JSON line.
	cfg.LogFormat = "json"
	logging.InitLogger(cfg)

	gateway, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize the gateway: %v", err)
	}

	h := invocation.NewHandler(gateway.Renditions, cfg.Bucket)
	lambda.Start(h.Handle)
}
