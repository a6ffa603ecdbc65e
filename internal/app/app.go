// Package app wires configuration into the stores and services every entrypoint shares.
package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/imgateway/internal/config"
	"github.com/zzenonn/imgateway/internal/repository/db"
	"github.com/zzenonn/imgateway/internal/repository/objectstore"
	"github.com/zzenonn/imgateway/internal/service"
	"github.com/zzenonn/imgateway/internal/transform"
)

type App struct {
	Config     *config.Config
	Store      *objectstore.Router
	Renditions *service.RenditionService
	// Ledger and Database are nil when no dynamodb_table is configured.
	Ledger   *db.RenditionRepository
	Database *db.DynamoDb
}

// New loads cloud clients for cfg and builds the store router and rendition service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.LoadClients(ctx); err != nil {
		return nil, err
	}

	store, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Store: store}

	var opts []service.Option
	if cfg.DynamoDBTable != "" {
		database, err := db.NewDatabase(cfg.AwsConfig, cfg.DynamoDBTable)
		if err != nil {
			return nil, err
		}
		ledger := db.NewRenditionRepository(database.Client, cfg.DynamoDBTable)
		a.Database, a.Ledger = database, &ledger
		opts = append(opts, service.WithLedger(&ledger))
		log.Debugf("Rendition ledger enabled on table %s", cfg.DynamoDBTable)
	}

	a.Renditions = service.NewRenditionService(store, transform.NewEngine(), opts...)
	return a, nil
}

// NewStore registers a backend for every scheme cfg can reach. The in-memory
// backend is always present for local runs against mem:// buckets.
func NewStore(cfg *config.Config) (*objectstore.Router, error) {
	store := objectstore.NewRouter()

	s3Repo := objectstore.NewS3ObjectRepository(cfg.AwsConfig, objectstore.S3Options{
		Endpoint:  cfg.S3Endpoint,
		PathStyle: cfg.S3PathStyle,
	})
	if err := store.Register(objectstore.S3Type, s3Repo); err != nil {
		return nil, err
	}

	if cfg.GcsClient != nil {
		if err := store.Register(objectstore.GCSType, objectstore.NewGCSObjectRepository(cfg.GcsClient)); err != nil {
			return nil, err
		}
	}

	if err := store.Register(objectstore.MemoryType, objectstore.NewMemoryObjectRepository()); err != nil {
		return nil, err
	}

	if cfg.Bucket != "" {
		if _, err := objectstore.ParseBucketConfig(cfg.Bucket); err != nil {
			return nil, fmt.Errorf("invalid bucket %q: %w", cfg.Bucket, err)
		}
	}

	return store, nil
}
