package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/imgateway/internal/app"
	"github.com/zzenonn/imgateway/internal/config"
	"github.com/zzenonn/imgateway/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	gateway *app.App
)

var rootCmd = &cobra.Command{
	Use:   "imgateway",
	Short: "On-demand image rendition gateway",
	Long:  "Serves resized renditions of stored images, generating and caching them on first request",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	SilenceUsage: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the rendition ledger table",
	Run: func(cmd *cobra.Command, args []string) {
		if gateway.Database == nil {
			fmt.Println("No dynamodb_table configured, nothing to initialize")
			return
		}

		if err := gateway.Database.MigrateDb(context.Background()); err != nil {
			fmt.Printf("Failed to migrate the database: %v\n", err)
			return
		}

		fmt.Println("Rendition ledger initialized successfully")
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Delete the rendition ledger table",
	Run: func(cmd *cobra.Command, args []string) {
		if gateway.Database == nil {
			fmt.Println("No dynamodb_table configured, nothing to roll back")
			return
		}

		if err := gateway.Database.MigrateDown(context.Background()); err != nil {
			fmt.Printf("Failed to roll back migrations: %v\n", err)
			return
		}

		fmt.Println("Rendition ledger migrations rolled back successfully")
	},
}

func initConfig(cmd *cobra.Command) error {
	var err error
	cfg, err = config.LoadConfig(cfgFile, cmd.Flags())
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.InitLogger(cfg)

	gateway, err = app.New(cmd.Context(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize the gateway: %v", err)
	}
	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	flags.String("log-level", "info", "log level: trace, debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("bucket", "", "bucket holding originals and renditions, e.g. s3://test-image-gateway")
	flags.String("dynamodb-table", "", "DynamoDB table for the rendition ledger (disabled when empty)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(downCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
