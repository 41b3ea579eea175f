// Package config loads application configuration and owns every numeric
// default the pipeline consumes, so tests can assert on a single source of
// truth.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Valuation ValuationConfig `yaml:"valuation" mapstructure:"valuation"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the order-store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ValuationConfig configures pipeline defaults.
type ValuationConfig struct {
	EngineWeights    EngineWeightsConfig `yaml:"engine_weights" mapstructure:"engine_weights"`
	BoxPct           float64             `yaml:"box_pct" mapstructure:"box_pct"`
	MaxSales         int                 `yaml:"max_sales" mapstructure:"max_sales"`
	MaxListings      int                 `yaml:"max_listings" mapstructure:"max_listings"`
	CostBaselinePath string              `yaml:"cost_baseline_path" mapstructure:"cost_baseline_path"`
}

// EngineWeightsConfig is the blend split across the adjustment engines.
type EngineWeightsConfig struct {
	Regression float64 `yaml:"regression" mapstructure:"regression"`
	Cost       float64 `yaml:"cost" mapstructure:"cost"`
	Paired     float64 `yaml:"paired" mapstructure:"paired"`
}

// ServerConfig configures the thin serve layer.
type ServerConfig struct {
	Port           int     `yaml:"port" mapstructure:"port"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultEngineWeights is the blend split used when an order carries no
// explicit engine settings. A residual 0.10 share is reserved for future
// engines; the blender renormalizes over available engines, so the residual
// is inert.
var DefaultEngineWeights = model.EngineWeights{
	Regression: 0.25,
	Cost:       0.35,
	Paired:     0.30,
}

// DefaultWeightSet is the similarity weight split applied to a fresh order.
var DefaultWeightSet = model.WeightSet{
	Distance:  8,
	Recency:   8,
	GLA:       7,
	Quality:   6,
	Condition: 6,
}

// DefaultConstraintSet is the constraint set applied to a fresh order.
var DefaultConstraintSet = model.ConstraintSet{
	GLATolerancePct:    10,
	DistanceCapMiles:   0.5,
	MaxMonthsSinceSale: 12,
	Mode:               model.ConstraintModeFlag,
}

// DefaultHiLoSettings returns the bracket settings applied when an order has
// none stored.
func DefaultHiLoSettings(v ValuationConfig) model.HiLoSettings {
	return model.HiLoSettings{
		CenterBasis: model.CenterMedianTimeAdj,
		BoxPct:      v.BoxPct,
		MaxSales:    v.MaxSales,
		MaxListings: v.MaxListings,
		SlotWeights: []float64{0.5, 0.3, 0.2},
	}
}

// EngineWeights converts the config split to the model type, falling back to
// DefaultEngineWeights when the config is zero.
func (c EngineWeightsConfig) EngineWeights() model.EngineWeights {
	w := model.EngineWeights{Regression: c.Regression, Cost: c.Cost, Paired: c.Paired}
	if w.Regression+w.Cost+w.Paired <= 0 {
		return DefaultEngineWeights
	}
	return w
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("APPRAISAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "appraisal.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.requests_per_sec", 20)
	v.SetDefault("valuation.engine_weights.regression", DefaultEngineWeights.Regression)
	v.SetDefault("valuation.engine_weights.cost", DefaultEngineWeights.Cost)
	v.SetDefault("valuation.engine_weights.paired", DefaultEngineWeights.Paired)
	v.SetDefault("valuation.box_pct", 10)
	v.SetDefault("valuation.max_sales", 3)
	v.SetDefault("valuation.max_listings", 2)
	v.SetDefault("valuation.cost_baseline_path", "costbaseline.yaml")

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
