package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type CollectorConfig struct {
	// Command is the executable plus its fixed leading arguments
	Command []string `mapstructure:"command"`
	// Args are appended after "--config <ConfigPath>"
	Args         []string      `mapstructure:"args"`
	ConfigPath   string        `mapstructure:"config_path"`
	Workdir      string        `mapstructure:"workdir"`
	ArtifactName string        `mapstructure:"artifact_name"`
	StopGrace    time.Duration `mapstructure:"stop_grace"`
	Progress     string        `mapstructure:"progress"` // "auto", "page", "fraction" or "none"
}

type ScheduleConfig struct {
	Default  string `mapstructure:"default"`
	Timezone string `mapstructure:"timezone"`
	Enabled  bool   `mapstructure:"enabled"`
}

type StreamConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

type Config struct {
	// API settings
	APIHost     string   `mapstructure:"api_host"`
	APIPort     int      `mapstructure:"api_port"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Optional SSL settings
	SSLCert string `mapstructure:"ssl_cert"`
	SSLKey  string `mapstructure:"ssl_key"`

	// Storage layout, derived from DataDir when left empty
	DataDir      string `mapstructure:"data_dir"`
	DBPath       string `mapstructure:"db_path"`
	SchedulePath string `mapstructure:"schedule_path"`
	ArtifactsDir string `mapstructure:"artifacts_dir"`

	Collector CollectorConfig `mapstructure:"collector"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Log       LogConfig       `mapstructure:"log"`

	// Optional bearer-token auth, disabled when the secret is empty
	JWTSecretKey string `mapstructure:"jwt_secret_key"`
	JWTAlgorithm string `mapstructure:"jwt_algorithm"`

	// ConfigPath is the file the settings were read from, empty if none
	ConfigPath string `mapstructure:"-"`
}

const (
	DefaultConfigPath   = "/etc/harvestd/config.yml"
	DefaultDataDir      = "/var/lib/harvestd"
	DefaultAPIHost      = "0.0.0.0"
	DefaultAPIPort      = 8000
	DefaultArtifactName = "found_tenders.json"
	DefaultStopGrace    = 10 * time.Second
	DefaultProgress     = "auto"
	DefaultSchedule     = "0 2 * * *"
	DefaultTimezone     = "UTC"
	DefaultInterval     = time.Second
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
	DefaultJWTAlgorithm = "HS256"
	EnvPrefix           = "HARVESTD"
)

var DefaultCollectorCommand = []string{"python", "-m", "ge_parser_tenders.cli"}

var progressStrategies = map[string]bool{
	"auto":     true,
	"page":     true,
	"fraction": true,
	"none":     true,
}

// Load reads the YAML config file, applies defaults and HARVESTD_* overrides.
// An empty configPath means the default location, which may be absent.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Allow environment variable overrides, e.g. HARVESTD_COLLECTOR_STOP_GRACE=30s
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigPath
	}

	readFile := true
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file does not exist: %s", configPath)
		}
		readFile = false
	}

	if readFile {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if readFile {
		cfg.ConfigPath = configPath
	}

	cfg.applyDerivedPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_host", DefaultAPIHost)
	v.SetDefault("api_port", DefaultAPIPort)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("ssl_cert", "")
	v.SetDefault("ssl_key", "")
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("db_path", "")
	v.SetDefault("schedule_path", "")
	v.SetDefault("artifacts_dir", "")
	v.SetDefault("collector.command", DefaultCollectorCommand)
	v.SetDefault("collector.args", []string{})
	v.SetDefault("collector.config_path", "")
	v.SetDefault("collector.workdir", "")
	v.SetDefault("collector.artifact_name", DefaultArtifactName)
	v.SetDefault("collector.stop_grace", DefaultStopGrace)
	v.SetDefault("collector.progress", DefaultProgress)
	v.SetDefault("schedule.default", DefaultSchedule)
	v.SetDefault("schedule.timezone", DefaultTimezone)
	v.SetDefault("schedule.enabled", true)
	v.SetDefault("stream.interval", DefaultInterval)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("jwt_secret_key", "")
	v.SetDefault("jwt_algorithm", DefaultJWTAlgorithm)
}

func (c *Config) applyDerivedPaths() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "runs.db")
	}
	if c.SchedulePath == "" {
		c.SchedulePath = filepath.Join(c.DataDir, "schedule.cron")
	}
	if c.ArtifactsDir == "" {
		c.ArtifactsDir = filepath.Join(c.DataDir, "artifacts")
	}
	if c.Collector.ConfigPath == "" {
		c.Collector.ConfigPath = filepath.Join(c.DataDir, "config.json")
	}
	if c.Collector.Workdir == "" {
		c.Collector.Workdir = c.DataDir
	}
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("api_port must be between 1 and 65535")
	}

	if len(c.Collector.Command) == 0 || strings.TrimSpace(c.Collector.Command[0]) == "" {
		return fmt.Errorf("collector.command is required")
	}

	if c.Collector.StopGrace <= 0 {
		return fmt.Errorf("collector.stop_grace must be positive")
	}

	if !progressStrategies[c.Collector.Progress] {
		return fmt.Errorf("collector.progress must be one of 'auto', 'page', 'fraction' or 'none'")
	}

	if c.Stream.Interval <= 0 {
		return fmt.Errorf("stream.interval must be positive")
	}

	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone is invalid: %w", err)
	}

	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("jwt_algorithm must be HS256, HS384 or HS512")
	}

	// Validate SSL config if provided
	if c.SSLCert != "" || c.SSLKey != "" {
		if c.SSLCert == "" || c.SSLKey == "" {
			return fmt.Errorf("both ssl_cert and ssl_key must be provided")
		}
		if _, err := os.Stat(c.SSLCert); os.IsNotExist(err) {
			return fmt.Errorf("ssl_cert file does not exist: %s", c.SSLCert)
		}
		if _, err := os.Stat(c.SSLKey); os.IsNotExist(err) {
			return fmt.Errorf("ssl_key file does not exist: %s", c.SSLKey)
		}
	}

	return nil
}

// Location returns the schedule time zone; Validate guarantees it loads
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AuthEnabled reports whether API requests must carry a bearer token
func (c *Config) AuthEnabled() bool {
	return c.JWTSecretKey != ""
}

func (c *Config) IsDevMode() bool {
	return os.Getenv("HARVESTD_DEV_MODE") == "1"
}
