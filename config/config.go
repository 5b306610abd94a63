package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "STOCK"
	defaultHTTPAddress    = ":8080"
	defaultDatabasePath   = "stock.db"
	defaultLogLevel       = "info"
	defaultBackupDir      = "backups"
	defaultBackupInterval = 24 * time.Hour
	minBackupInterval     = time.Minute
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	DatabasePath       string
	LogLevel           string
	CORSAllowedOrigins []string
	Backup             BackupConfig
}

// BackupConfig controls the periodic full-range report export.
type BackupConfig struct {
	Enabled  bool
	Dir      string
	Interval time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("cors.allowed_origins", []string{"*"})
	configViper.SetDefault("backup.enabled", false)
	configViper.SetDefault("backup.dir", defaultBackupDir)
	configViper.SetDefault("backup.interval", defaultBackupInterval)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		DatabasePath:       configViper.GetString("database.path"),
		LogLevel:           configViper.GetString("log.level"),
		CORSAllowedOrigins: splitOrigins(configViper.GetStringSlice("cors.allowed_origins")),
		Backup: BackupConfig{
			Enabled:  configViper.GetBool("backup.enabled"),
			Dir:      configViper.GetString("backup.dir"),
			Interval: configViper.GetDuration("backup.interval"),
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.CORSAllowedOrigins) == 0 {
		return fmt.Errorf("cors.allowed_origins needs at least one origin")
	}
	if c.Backup.Enabled {
		if strings.TrimSpace(c.Backup.Dir) == "" {
			return fmt.Errorf("backup.dir is required when backups are enabled")
		}
		if c.Backup.Interval < minBackupInterval {
			return fmt.Errorf("backup.interval must be at least %s", minBackupInterval)
		}
	}
	return nil
}

// splitOrigins accepts both a list and a comma-separated env value.
func splitOrigins(values []string) []string {
	var origins []string
	for _, v := range values {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	return origins
}
