package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/martijn/harvestd/internal/api"
	"github.com/martijn/harvestd/internal/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long:  "Start the REST/WebSocket API server together with the run scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		log := logger.Named("server")

		recovered, err := services.RunService.RecoverOrphans(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to recover unfinished runs: %w", err)
		}
		if recovered > 0 {
			log.Warnw("Finalized runs left unfinished by a previous process", "count", recovered)
		}

		// Initialize Gin server
		server := api.NewServer(
			cfg,
			services.RunService,
			services.ScheduleService,
			services.ConfigService,
			services.TokenService,
			logger.Named("api"),
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)

		g.Go(server.Start)

		services.ScheduleService.Start(gctx)
		g.Go(func() error {
			return services.ScheduleService.Watch(gctx)
		})

		// Graceful shutdown once a signal arrives or any member fails
		g.Go(func() error {
			<-gctx.Done()
			log.Infow("Shutting down gracefully")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			services.ScheduleService.Stop(shutdownCtx)
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warnw("Server shutdown error", "error", err)
			}
			if err := services.RunService.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("active run did not finish: %w", err)
			}
			return nil
		})

		log.Infow("Server is ready", "auth", cfg.AuthEnabled(), "data_dir", cfg.DataDir)

		if err := g.Wait(); err != nil {
			return fmt.Errorf("server error: %w", err)
		}

		log.Infow("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
