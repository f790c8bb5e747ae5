package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"igharvest/pkg/api"
	"igharvest/pkg/logger"
	"igharvest/pkg/models"
	"igharvest/pkg/ui"
)

var serveAddr string

// serveCmd runs the HTTP trigger.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP trigger",
	Long: `Run an HTTP server that triggers harvests on demand.

Endpoints:
  POST /scrape  {"account": "...", "post_count": 10, "comment_count": 5}
  GET  /health`,
	Example: `  igharvest serve --addr :8080

  curl -X POST localhost:8080/scrape \
    -d '{"account":"natgeo","post_count":5}'`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8080)")
}

func runServe(cmd *cobra.Command, args []string) {
	flags := map[string]interface{}{}
	if serveAddr != "" {
		flags["addr"] = serveAddr
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	h, err := newHarvester(cfg)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err.Error())
		os.Exit(1)
	}

	runner := func(ctx context.Context, req api.ScrapeRequest) (*models.BatchResult, *models.ProfileSummary, error) {
		return h.RunAccount(ctx, req)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(cfg.Server.Addr, runner)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.GetLogger().WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
