package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Conf holds the application configuration, making it accessible globally.
var Conf *Config

// Config struct is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Assessment AssessmentConfig `mapstructure:"assessment"`
	Recording  RecordingConfig  `mapstructure:"recording"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port          string `mapstructure:"port"`
	SessionSecret string `mapstructure:"session_secret"`
	DevEndpoints  bool   `mapstructure:"dev_endpoints"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// StorageConfig holds the media bucket settings for presigned URLs.
type StorageConfig struct {
	Bucket       string        `mapstructure:"bucket"`
	SignedExpiry time.Duration `mapstructure:"signed_expiry"`
}

// AssessmentConfig holds the item bank path, pagination and the vignette
// pools that sessions draw their assignments from.
type AssessmentConfig struct {
	ItemBankPath  string  `mapstructure:"item_bank_path"`
	PageSize      int     `mapstructure:"page_size"`
	PracticalPool []int64 `mapstructure:"practical_pool"`
	CreativePool  []int64 `mapstructure:"creative_pool"`
}

// RecordingConfig holds the per-step timings.
type RecordingConfig struct {
	BufferSeconds int `mapstructure:"buffer_seconds"`
	MinSeconds    int `mapstructure:"min_seconds"`
	MaxSeconds    int `mapstructure:"max_seconds"`
}

// UploadConfig tunes the background transfer queue.
type UploadConfig struct {
	MaxAttempts      int           `mapstructure:"max_attempts"`
	BackoffBase      time.Duration `mapstructure:"backoff_base"`
	StallWindow      time.Duration `mapstructure:"stall_window"`
	MinTimeout       time.Duration `mapstructure:"min_timeout"`
	ThroughputFloor  int64         `mapstructure:"throughput_floor"` // bytes/sec
	ExtraTimeout     time.Duration `mapstructure:"extra_timeout"`
	StaleReservation time.Duration `mapstructure:"stale_reservation"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.session_secret", "change-me")
	v.SetDefault("server.dev_endpoints", false)

	// Database defaults
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "vantage-db")

	// Storage defaults
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.signed_expiry", 15*time.Minute)

	// Assessment defaults
	v.SetDefault("assessment.item_bank_path", "config/items.yaml")
	v.SetDefault("assessment.page_size", 6)
	v.SetDefault("assessment.practical_pool", []int64{1, 2, 3, 4})
	v.SetDefault("assessment.creative_pool", []int64{101, 102, 103, 104})

	// Recording defaults
	v.SetDefault("recording.buffer_seconds", 30)
	v.SetDefault("recording.min_seconds", 30)
	v.SetDefault("recording.max_seconds", 180)

	// Upload defaults
	v.SetDefault("upload.max_attempts", 5)
	v.SetDefault("upload.backoff_base", time.Second)
	v.SetDefault("upload.stall_window", 15*time.Second)
	v.SetDefault("upload.min_timeout", 30*time.Second)
	v.SetDefault("upload.throughput_floor", 64*1024)
	v.SetDefault("upload.extra_timeout", 10*time.Second)
	v.SetDefault("upload.stale_reservation", 30*time.Minute)
	v.SetDefault("upload.sweep_interval", 5*time.Minute)

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("VANTAGE") // e.g., VANTAGE_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the initial configuration from the file. It's okay if the file
	// doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the config into our global Conf variable
	if err := v.Unmarshal(&Conf); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Set up a watch for configuration changes for hot-reloading
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		if err := v.Unmarshal(&Conf); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
		}
	})

	log.Info("Configuration loaded successfully")
	return nil
}
