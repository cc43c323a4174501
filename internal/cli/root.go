package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/martijn/harvestd/internal/adapter/system"
	"github.com/martijn/harvestd/internal/core/repository"
	"github.com/martijn/harvestd/internal/core/service"
	"github.com/martijn/harvestd/internal/infrastructure/file"
	"github.com/martijn/harvestd/internal/infrastructure/sqlite"
	"github.com/martijn/harvestd/internal/logger"
	"github.com/martijn/harvestd/pkg/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "harvestd",
	Short: "harvestd - supervisor for the tender collector",
	Long: `harvestd launches, supervises and records runs of an external data collector.

It provides:
- Single-flight runs with live output and progress over WebSocket
- Graceful stop with a forced kill after a grace period
- Run history with captured logs and output artifacts
- A cron schedule for recurring runs
- REST API for remote management`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := logger.Initialize(cfg.Log.Level, cfg.Log.Format); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.DefaultConfigPath+")")
}

// initServices initializes all services
func initServices(ctx context.Context) (*Services, error) {
	fs := system.NewAdapter()
	if err := fs.CreateDirectory(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	// Initialize database
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize repositories
	runRepo := sqlite.NewRunRepository(db)
	scheduleRepo := file.NewScheduleStore(cfg.SchedulePath, fs)
	configRepo := file.NewCollectorConfigStore(cfg.Collector.ConfigPath, fs)
	artifacts := file.NewArtifactStore(
		filepath.Join(cfg.Collector.Workdir, cfg.Collector.ArtifactName),
		cfg.ArtifactsDir,
		fs,
	)

	progress, err := service.NewProgressStrategy(cfg.Collector.Progress)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Initialize services
	runService := service.NewRunService(runRepo, artifacts, service.CollectorOptions{
		Command:    cfg.Collector.Command,
		Args:       cfg.Collector.Args,
		ConfigPath: cfg.Collector.ConfigPath,
		Workdir:    cfg.Collector.Workdir,
		StopGrace:  cfg.Collector.StopGrace,
		Progress:   progress,
	}, logger.Named("supervisor"))

	scheduleService := service.NewScheduleService(scheduleRepo, runService, service.ScheduleOptions{
		Default:  cfg.Schedule.Default,
		Location: cfg.Location(),
		Enabled:  cfg.Schedule.Enabled,
	}, logger.Named("schedule"))
	if err := scheduleService.Load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	configService := service.NewConfigService(configRepo, logger.Named("config"))

	var tokenService *service.TokenService
	if cfg.AuthEnabled() {
		tokenService = service.NewTokenService(cfg.JWTSecretKey, cfg.JWTAlgorithm)
	}

	return &Services{
		DB:              db,
		RunRepo:         runRepo,
		ScheduleRepo:    scheduleRepo,
		RunService:      runService,
		ScheduleService: scheduleService,
		ConfigService:   configService,
		TokenService:    tokenService,
	}, nil
}

// Services holds all initialized services
type Services struct {
	DB              *sqlite.DB
	RunRepo         repository.RunRepository
	ScheduleRepo    repository.ScheduleRepository
	RunService      *service.RunService
	ScheduleService *service.ScheduleService
	ConfigService   *service.ConfigService
	// TokenService is nil when authentication is disabled
	TokenService *service.TokenService
}

// Close closes all resources
func (s *Services) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}
