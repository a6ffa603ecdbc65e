package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/imgateway/internal/domain"
	apperrors "github.com/zzenonn/imgateway/internal/errors"
	"github.com/zzenonn/imgateway/internal/service"
	"github.com/zzenonn/imgateway/internal/transport/handler"
	"github.com/zzenonn/imgateway/internal/transport/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Bucket == "" {
			return apperrors.ConfigNotSetError("bucket")
		}

		h := handler.New(gateway.Renditions, gateway.Store, cfg.Bucket, cfg.RequestTimeout)
		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           router.NewRouter(h),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Infof("Serving %s on %s", cfg.Bucket, cfg.ListenAddr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var fillCmd = &cobra.Command{
	Use:   "fill [image]",
	Short: "Generate a rendition and print its location",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		width, _ := cmd.Flags().GetString("width")
		height, _ := cmd.Flags().GetString("height")

		req, err := service.ParseRequest(args[0], cfg.Bucket, width, height)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
		defer cancel()

		redirect, err := gateway.Renditions.Fill(ctx, req)
		if err != nil {
			fmt.Printf("Error filling rendition: %v\n", err)
			return
		}
		fmt.Println(redirect.Location)
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload [file-path] [key]",
	Short: "Upload an original image to the configured bucket",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		if cfg.Bucket == "" {
			fmt.Printf("Error: %v\n", apperrors.ConfigNotSetError("bucket"))
			return
		}

		filePath := args[0]
		key := filepath.Base(filePath)
		if len(args) == 2 {
			key = args[1]
		}

		file, err := os.Open(filePath)
		if err != nil {
			fmt.Printf("Error opening file: %v\n", err)
			return
		}
		defer file.Close()

		mime, err := mimetype.DetectReader(file)
		if err != nil {
			fmt.Printf("Error reading file: %v\n", err)
			return
		}
		if _, err := file.Seek(0, 0); err != nil {
			fmt.Printf("Error reading file: %v\n", err)
			return
		}

		quiet, _ := cmd.Flags().GetBool("quiet")
		location, err := gateway.Store.Upload(cmd.Context(), cfg.Bucket, key, file, mime.String(), quiet)
		if err != nil {
			fmt.Printf("Error uploading file: %v\n", err)
			return
		}
		fmt.Printf("File uploaded successfully: %s -> %s\n", filePath, location)
	},
}

var renditionsCmd = &cobra.Command{
	Use:   "renditions",
	Short: "Inspect the rendition ledger",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(cmd); err != nil {
			return err
		}
		if gateway.Ledger == nil {
			return fmt.Errorf("no dynamodb_table configured")
		}
		return nil
	},
}

var renditionsListCmd = &cobra.Command{
	Use:   "list [image]",
	Short: "List recorded renditions of an original",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		renditions, err := gateway.Ledger.ListRenditionsBySource(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error listing renditions: %v\n", err)
			return
		}
		for _, r := range renditions {
			printRendition(r)
		}
	},
}

var renditionsShowCmd = &cobra.Command{
	Use:   "show [image] [rendition-key]",
	Short: "Show one recorded rendition",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		r, err := gateway.Ledger.GetRendition(cmd.Context(), args[0], args[1])
		if err != nil {
			fmt.Printf("Error reading rendition: %v\n", err)
			return
		}
		printRendition(r)
	},
}

var renditionsForgetCmd = &cobra.Command{
	Use:   "forget [image] [rendition-key]",
	Short: "Remove a rendition record. The stored rendition is left to expire.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := gateway.Ledger.DeleteRendition(cmd.Context(), args[0], args[1]); err != nil {
			fmt.Printf("Error deleting rendition record: %v\n", err)
			return
		}
		fmt.Printf("Rendition record deleted: %s\n", args[1])
	},
}

func printRendition(r domain.Rendition) {
	fmt.Printf("%s\t%dx%d\t%s\t%d bytes\t%s\n", r.RenditionKey, r.Width, r.Height, r.ContentType, r.Size, r.FilledAt.Format(time.RFC3339))
}

func init() {
	serveCmd.Flags().String("listen-addr", ":8080", "address to serve on")
	fillCmd.Flags().String("width", "", "bounding box width (default 5)")
	fillCmd.Flags().String("height", "", "bounding box height (default 5)")
	uploadCmd.Flags().BoolP("quiet", "q", false, "Suppress progress bars")

	renditionsCmd.AddCommand(renditionsListCmd)
	renditionsCmd.AddCommand(renditionsShowCmd)
	renditionsCmd.AddCommand(renditionsForgetCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(renditionsCmd)
}
