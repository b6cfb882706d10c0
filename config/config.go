package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrInvalidPort           = errors.New("server port is required")
	ErrInvalidCatalogSource  = errors.New("catalog source must be 'static', 'rest' or 'postgres'")
	ErrMissingCatalogURL     = errors.New("catalog source requires a url")
	ErrInvalidValidationMode = errors.New("catalog validation mode must be 'strict' or 'lenient'")
	ErrInvalidFetchDriver    = errors.New("fetch driver must be 'http' or 'rod'")
	ErrInvalidMobileTemplate = errors.New("fetch mobile url template must contain one %s")
	ErrInvalidDuration       = errors.New("durations must be positive")
	ErrMissingAPIKeys        = errors.New("api keys are required when the api key gate is on")
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Matching   MatchingConfig   `mapstructure:"matching"`
	Navigation NavigationConfig `mapstructure:"navigation"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimit      float64  `mapstructure:"rate_limit"`
	RequireAPIKey  bool     `mapstructure:"require_api_key"`
	APIKeys        []string `mapstructure:"api_keys"`
}

// CatalogConfig selects where the product catalog is read from
type CatalogConfig struct {
	Source          string `mapstructure:"source"` // "static", "rest" or "postgres"
	RestURL         string `mapstructure:"rest_url"`
	RestKey         string `mapstructure:"rest_key"`
	Table           string `mapstructure:"table"`
	DatabaseURL     string `mapstructure:"database_url"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
	StaticPath      string `mapstructure:"static_path"`
	ValidationMode  string `mapstructure:"validation_mode"`
	RefreshSchedule string `mapstructure:"refresh_schedule"`
}

// FetchConfig controls secondary page reads
type FetchConfig struct {
	Driver            string        `mapstructure:"driver"` // "http" or "rod"
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	UserAgent         string        `mapstructure:"user_agent"`
	MobileURLTemplate string        `mapstructure:"mobile_url_template"`
}

type ExtractionConfig struct {
	PriceFloor float64  `mapstructure:"price_floor"`
	ImageHosts []string `mapstructure:"image_hosts"`
}

type MatchingConfig struct {
	TopN  int  `mapstructure:"top_n"`
	Debug bool `mapstructure:"debug"`
}

type NavigationConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ShowDelay      time.Duration `mapstructure:"show_delay"`
	ToastTTL       time.Duration `mapstructure:"toast_ttl"`
	SessionIdleTTL time.Duration `mapstructure:"session_idle_ttl"`
	SweepSchedule  string        `mapstructure:"sweep_schedule"`
	OutboxCapacity int           `mapstructure:"outbox_capacity"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/shelfmatch/")

	v.SetEnvPrefix("SHELFMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// deployment platforms set these without a prefix
	_ = v.BindEnv("server.port", "SHELFMATCH_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.host", "SHELFMATCH_SERVER_HOST", "HOST")
	_ = v.BindEnv("server.allowed_origins", "SHELFMATCH_SERVER_ALLOWED_ORIGINS", "ALLOWED_ORIGINS")
	_ = v.BindEnv("catalog.database_url", "SHELFMATCH_CATALOG_DATABASE_URL", "DATABASE_URL")

	setDefaults(v)

	// the config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.require_api_key", false)
	v.SetDefault("server.api_keys", []string{})

	v.SetDefault("catalog.source", "static")
	v.SetDefault("catalog.rest_url", "")
	v.SetDefault("catalog.rest_key", "")
	v.SetDefault("catalog.table", "products")
	v.SetDefault("catalog.database_url", "")
	v.SetDefault("catalog.auto_migrate", false)
	v.SetDefault("catalog.static_path", "data/catalog.json")
	v.SetDefault("catalog.validation_mode", "strict")
	v.SetDefault("catalog.refresh_schedule", "")

	v.SetDefault("fetch.driver", "http")
	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("fetch.requests_per_second", 1)
	v.SetDefault("fetch.burst", 3)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("fetch.mobile_url_template", "https://www.amazon.com/gp/aw/d/%s")

	v.SetDefault("extraction.price_floor", 5)
	v.SetDefault("extraction.image_hosts", []string{"m.media-amazon.com", "images-na.ssl-images-amazon.com"})

	v.SetDefault("matching.top_n", 3)
	v.SetDefault("matching.debug", false)

	v.SetDefault("navigation.poll_interval", "500ms")
	v.SetDefault("navigation.show_delay", "1500ms")
	v.SetDefault("navigation.toast_ttl", "8s")
	v.SetDefault("navigation.session_idle_ttl", "30m")
	v.SetDefault("navigation.sweep_schedule", "@every 1m")
	v.SetDefault("navigation.outbox_capacity", 64)
}

func validate(config *Config) error {
	if config.Server.Port == "" {
		return ErrInvalidPort
	}
	if config.Server.RequireAPIKey && len(config.Server.APIKeys) == 0 {
		return ErrMissingAPIKeys
	}

	switch config.Catalog.Source {
	case "static":
	case "rest":
		if config.Catalog.RestURL == "" {
			return fmt.Errorf("%w: set SHELFMATCH_CATALOG_REST_URL", ErrMissingCatalogURL)
		}
	case "postgres":
		if config.Catalog.DatabaseURL == "" {
			return fmt.Errorf("%w: set DATABASE_URL", ErrMissingCatalogURL)
		}
	default:
		return fmt.Errorf("%w, got: %s", ErrInvalidCatalogSource, config.Catalog.Source)
	}

	mode := strings.ToLower(strings.TrimSpace(config.Catalog.ValidationMode))
	if mode != "strict" && mode != "lenient" {
		return fmt.Errorf("%w, got: %s", ErrInvalidValidationMode, config.Catalog.ValidationMode)
	}

	if config.Fetch.Driver != "http" && config.Fetch.Driver != "rod" {
		return fmt.Errorf("%w, got: %s", ErrInvalidFetchDriver, config.Fetch.Driver)
	}
	if strings.Count(config.Fetch.MobileURLTemplate, "%s") != 1 {
		return ErrInvalidMobileTemplate
	}

	nav := config.Navigation
	if config.Fetch.Timeout <= 0 || nav.PollInterval <= 0 || nav.ShowDelay <= 0 || nav.ToastTTL <= 0 || nav.SessionIdleTTL <= 0 {
		return ErrInvalidDuration
	}

	return nil
}
