package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Catalogs  CatalogsConfig  `mapstructure:"catalogs"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Probe     ProbeConfig     `mapstructure:"probe"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// CatalogsConfig holds external catalog client configuration.
type CatalogsConfig struct {
	TMDB        TMDBConfig        `mapstructure:"tmdb"`
	MusicBrainz MusicBrainzConfig `mapstructure:"musicbrainz"`
}

// TMDBConfig holds TMDB catalog configuration. Requests are paced with a
// bounded burst window shared by all callers.
type TMDBConfig struct {
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	Timeout       int    `mapstructure:"timeout"`      // seconds
	Burst         int    `mapstructure:"burst"`        // requests per window
	BurstWindow   int    `mapstructure:"burst_window"` // seconds
	CacheTTL      int    `mapstructure:"cache_ttl"`    // minutes
	CacheMaxItems int    `mapstructure:"cache_max_items"`
}

// MusicBrainzConfig holds MusicBrainz catalog configuration. MusicBrainz
// requires a strict minimum interval between requests from one client.
type MusicBrainzConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	Timeout       int    `mapstructure:"timeout"`     // seconds
	IntervalMS    int    `mapstructure:"interval_ms"` // minimum gap between requests
	UserAgent     string `mapstructure:"user_agent"`
	CacheTTL      int    `mapstructure:"cache_ttl"` // minutes
	CacheMaxItems int    `mapstructure:"cache_max_items"`
}

// AnalysisConfig holds completeness analysis configuration.
type AnalysisConfig struct {
	LookupConcurrency int  `mapstructure:"lookup_concurrency"`
	IncludeEPs        bool `mapstructure:"include_eps"`
	IncludeSingles    bool `mapstructure:"include_singles"`
}

// SchedulerConfig holds cron trigger configuration.
type SchedulerConfig struct {
	ScanCron         string `mapstructure:"scan_cron"`
	CompletenessCron string `mapstructure:"completeness_cron"`
	RunOnStart       bool   `mapstructure:"run_on_start"`
}

// ProbeConfig holds file probing configuration.
type ProbeConfig struct {
	FFprobePath string `mapstructure:"ffprobe_path"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.medley")
	}

	v.SetEnvPrefix("MEDLEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8484)

	v.SetDefault("database.path", "./data/medley.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")

	v.SetDefault("catalogs.tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("catalogs.tmdb.timeout", 15)
	v.SetDefault("catalogs.tmdb.burst", 40)
	v.SetDefault("catalogs.tmdb.burst_window", 10)
	v.SetDefault("catalogs.tmdb.cache_ttl", 60)
	v.SetDefault("catalogs.tmdb.cache_max_items", 1000)

	v.SetDefault("catalogs.musicbrainz.base_url", "https://musicbrainz.org/ws/2")
	v.SetDefault("catalogs.musicbrainz.timeout", 15)
	v.SetDefault("catalogs.musicbrainz.interval_ms", 1500)
	v.SetDefault("catalogs.musicbrainz.user_agent", "Medley/1.0 (https://github.com/medley-app/medley)")
	v.SetDefault("catalogs.musicbrainz.cache_ttl", 60)
	v.SetDefault("catalogs.musicbrainz.cache_max_items", 1000)

	v.SetDefault("analysis.lookup_concurrency", 4)
	v.SetDefault("analysis.include_eps", false)
	v.SetDefault("analysis.include_singles", false)

	v.SetDefault("scheduler.scan_cron", "0 3 * * *")
	v.SetDefault("scheduler.completeness_cron", "30 4 * * *")
	v.SetDefault("scheduler.run_on_start", false)

	v.SetDefault("probe.ffprobe_path", "")
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
