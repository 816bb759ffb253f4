package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/backdrop/internal/config"
	"github.com/kozaktomas/backdrop/internal/constants"
	"github.com/kozaktomas/backdrop/internal/database"
	"github.com/kozaktomas/backdrop/internal/pipeline"
	"github.com/kozaktomas/backdrop/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Backdrop web server.
The web UI lets you upload a subject image, tune the mask threshold and
optionally replace the background with a second image.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// startPruner schedules removal of expired kept uploads and old run history.
func startPruner(cfg *config.Config, storage *pipeline.Storage, recorder database.RunRecorder) *cron.Cron {
	c := cron.New()
	retention := time.Duration(cfg.Output.OriginalsRetentionHours) * time.Hour

	_, err := c.AddFunc(constants.PruneSchedule, func() {
		now := time.Now()
		if n, err := storage.PruneOriginals(retention, now); err != nil {
			log.WithError(err).Warn("Failed to prune kept uploads")
		} else if n > 0 {
			log.Infof("Pruned %d kept uploads", n)
		}

		cutoff := now.AddDate(0, 0, -constants.RunRetentionDays)
		if n, err := recorder.Prune(context.Background(), cutoff); err != nil {
			log.WithError(err).Warn("Failed to prune run history")
		} else if n > 0 {
			log.Infof("Pruned %d runs from history", n)
		}
	})
	if err != nil {
		// the schedule is a constant
		panic(fmt.Sprintf("invalid prune schedule: %v", err))
	}

	c.Start()
	return c
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder, closeRecorder, err := openRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRecorder()

	p, err := newPipeline(ctx, cfg, recorder)
	if err != nil {
		return err
	}

	pruner := startPruner(cfg, p.Storage(), recorder)
	defer pruner.Stop()

	server := web.NewServer(cfg, p, recorder)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Error during shutdown")
		}
	}()

	fmt.Printf("Starting Backdrop on http://%s:%d (backend %s)\n", cfg.Web.Host, cfg.Web.Port, p.BackendName())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
