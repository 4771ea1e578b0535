package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	SerpAPI      SerpAPIConfig      `yaml:"serpapi" mapstructure:"serpapi"`
	Places       PlacesConfig       `yaml:"places" mapstructure:"places"`
	Geocode      GeocodeConfig      `yaml:"geocode" mapstructure:"geocode"`
	Anthropic    AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	PeopleSearch PeopleSearchConfig `yaml:"peoplesearch" mapstructure:"peoplesearch"`
	Render       RenderConfig       `yaml:"render" mapstructure:"render"`
	Feed         FeedConfig         `yaml:"feed" mapstructure:"feed"`
	Discovery    DiscoveryConfig    `yaml:"discovery" mapstructure:"discovery"`
	Contacts     ContactsConfig     `yaml:"contacts" mapstructure:"contacts"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// SerpAPIConfig holds SerpAPI credentials and search tuning.
type SerpAPIConfig struct {
	Key            string        `yaml:"key" mapstructure:"key"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	ResultsPerPage int           `yaml:"results_per_page" mapstructure:"results_per_page"`
	FailureBudget  int           `yaml:"failure_budget" mapstructure:"failure_budget"`
	StageBudget    time.Duration `yaml:"stage_budget" mapstructure:"stage_budget"`
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	Key           string        `yaml:"key" mapstructure:"key"`
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url"`
	StageBudget   time.Duration `yaml:"stage_budget" mapstructure:"stage_budget"`
	MaxTileErrors int           `yaml:"max_tile_errors" mapstructure:"max_tile_errors"`
	TileWorkers   int           `yaml:"tile_workers" mapstructure:"tile_workers"`
}

// GeocodeConfig holds geocoding provider settings.
type GeocodeConfig struct {
	NominatimURL string        `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	GoogleKey    string        `yaml:"google_key" mapstructure:"google_key"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// AnthropicConfig holds Anthropic API settings for query planning.
type AnthropicConfig struct {
	Key            string        `yaml:"key" mapstructure:"key"`
	Model          string        `yaml:"model" mapstructure:"model"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Justifications bool          `yaml:"justifications" mapstructure:"justifications"`
}

// PeopleSearchConfig holds the contact-enrichment API settings.
type PeopleSearchConfig struct {
	Key     string        `yaml:"key" mapstructure:"key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RenderConfig holds the headless-render fallback service settings.
type RenderConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// FeedConfig configures the shelter-listing feed import.
type FeedConfig struct {
	URL        string `yaml:"url" mapstructure:"url"`
	MaxEntries int    `yaml:"max_entries" mapstructure:"max_entries"`
}

// DiscoveryConfig holds default discovery run parameters.
type DiscoveryConfig struct {
	DefaultLimit    int           `yaml:"default_limit" mapstructure:"default_limit"`
	DefaultRadius   float64       `yaml:"default_radius_miles" mapstructure:"default_radius_miles"`
	DefaultMinScore int           `yaml:"default_min_score" mapstructure:"default_min_score"`
	MaxRuntime      time.Duration `yaml:"max_runtime" mapstructure:"max_runtime"`
	SeedsFile       string        `yaml:"seeds_file" mapstructure:"seeds_file"`
}

// ContactsConfig configures the contact-extraction stage.
type ContactsConfig struct {
	Workers      int           `yaml:"workers" mapstructure:"workers"`
	MaxSubpages  int           `yaml:"max_subpages" mapstructure:"max_subpages"`
	MaxStaff     int           `yaml:"max_staff" mapstructure:"max_staff"`
	MinFetchWait time.Duration `yaml:"min_fetch_wait" mapstructure:"min_fetch_wait"`
	MaxFetchWait time.Duration `yaml:"max_fetch_wait" mapstructure:"max_fetch_wait"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// ServerConfig configures the job-control HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "prospect.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("serpapi.timeout", 8*time.Second)
	v.SetDefault("serpapi.results_per_page", 10)
	v.SetDefault("serpapi.failure_budget", 4)
	v.SetDefault("serpapi.stage_budget", 90*time.Second)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.stage_budget", 180*time.Second)
	v.SetDefault("places.max_tile_errors", 5)
	v.SetDefault("places.tile_workers", 4)
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "havenpaws-prospect/1.0")
	v.SetDefault("geocode.timeout", 12*time.Second)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.timeout", 12*time.Second)
	v.SetDefault("peoplesearch.base_url", "https://api.apollo.io/v1")
	v.SetDefault("peoplesearch.timeout", 10*time.Second)
	v.SetDefault("render.base_url", "http://localhost:3000")
	v.SetDefault("render.timeout", 30*time.Second)
	v.SetDefault("feed.url", "https://www.petfinder.com/feeds/shelters.rss")
	v.SetDefault("feed.max_entries", 50)
	v.SetDefault("discovery.default_limit", 25)
	v.SetDefault("discovery.default_radius_miles", 25)
	v.SetDefault("discovery.default_min_score", 3)
	v.SetDefault("discovery.max_runtime", 7*time.Minute)
	v.SetDefault("contacts.workers", 4)
	v.SetDefault("contacts.max_subpages", 6)
	v.SetDefault("contacts.max_staff", 10)
	v.SetDefault("contacts.min_fetch_wait", 1500*time.Millisecond)
	v.SetDefault("contacts.max_fetch_wait", 3500*time.Millisecond)
	v.SetDefault("contacts.fetch_timeout", 15*time.Second)
	v.SetDefault("contacts.user_agent", "Mozilla/5.0 (compatible; HavenPawsBot/1.0)")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that required settings are present for the given run mode.
// Providers with missing credentials are allowed (they degrade to empty output),
// so validation covers only settings that would make a run misbehave outright.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for the sqlite driver")
		}
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}

	if c.Contacts.Workers < 1 || c.Contacts.Workers > 32 {
		problems = append(problems, "contacts.workers must be between 1 and 32")
	}
	if c.Contacts.MinFetchWait > c.Contacts.MaxFetchWait {
		problems = append(problems, "contacts.min_fetch_wait must not exceed contacts.max_fetch_wait")
	}
	if c.SerpAPI.ResultsPerPage < 1 || c.SerpAPI.ResultsPerPage > 10 {
		problems = append(problems, "serpapi.results_per_page must be between 1 and 10")
	}

	switch mode {
	case "discover", "import":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
