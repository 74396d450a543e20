package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Zoning Zoning `yaml:"zoning" mapstructure:"zoning"`
	Yield  Yield  `yaml:"yield" mapstructure:"yield"`
	Batch  Batch  `yaml:"batch" mapstructure:"batch"`
	Fetch  Fetch  `yaml:"fetch" mapstructure:"fetch"`
	Store  Store  `yaml:"store" mapstructure:"store"`
	Server Server `yaml:"server" mapstructure:"server"`
	Log    Log    `yaml:"log" mapstructure:"log"`
}

// Zoning configures the district dataset and the spatial join.
type Zoning struct {
	Path            string  `yaml:"path" mapstructure:"path"`
	Field           string  `yaml:"field" mapstructure:"field"`
	CRS             string  `yaml:"crs" mapstructure:"crs"`
	BufferDistance  float64 `yaml:"buffer_distance" mapstructure:"buffer_distance"`
	NearestFallback bool    `yaml:"nearest_fallback" mapstructure:"nearest_fallback"`
}

// Yield configures density lookup and unit bounds.
type Yield struct {
	DefaultSqftPerUnit float64 `yaml:"default_sqft_per_unit" mapstructure:"default_sqft_per_unit"`
	MinUnits           float64 `yaml:"min_units" mapstructure:"min_units"`
	MaxUnits           float64 `yaml:"max_units" mapstructure:"max_units"`
	SB9                bool    `yaml:"sb9" mapstructure:"sb9"`
	TablePath          string  `yaml:"table_path" mapstructure:"table_path"`
}

// Batch configures enrichment concurrency.
type Batch struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// Fetch configures remote zoning dataset downloads.
type Fetch struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// Store configures the run database.
type Store struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Server configures the HTTP query server.
type Server struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// Log configures logging.
type Log struct {
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
	v.SetEnvPrefix("DEALSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("zoning.field", "ZONE_CMPLT")
	v.SetDefault("zoning.crs", "EPSG:4326")
	v.SetDefault("zoning.buffer_distance", 1.2e-5)
	v.SetDefault("zoning.nearest_fallback", true)
	v.SetDefault("yield.default_sqft_per_unit", 5000)
	v.SetDefault("yield.min_units", 1)
	v.SetDefault("yield.max_units", 20)
	v.SetDefault("yield.sb9", true)
	v.SetDefault("batch.workers", 8)
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("fetch.rate_per_sec", 1)
	v.SetDefault("store.path", "dealscout.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// InitLogger initializes the global zap logger.
func InitLogger(cfg Log) error {
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
