// Package config loads and validates the service's immutable, process-wide
// Config from the environment (spec.md §6), the way the teacher's own
// config package loads from a file: a plain struct with validation tags,
// defaults applied before validation, and a custom StructLevel check for
// relationships a tag alone can't express.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/kujira-labs/oracle-backend/oracle/types"
)

const (
	defaultRedisURL           = "redis://127.0.0.1"
	defaultServerHost         = "0.0.0.0"
	defaultServerPort         = 8080
	defaultMaxPriceAgeSeconds = 30
	defaultMaxConfidenceBps   = 100
	defaultMaxDeviationBps    = 100

	// DefaultCacheTTL is the process-wide Cache lifetime (spec.md §4.3).
	DefaultCacheTTL = 10 * time.Second
	// DefaultRetentionInterval is how often the background retention sweep
	// runs (spec.md §4.5's "periodic background task").
	DefaultRetentionInterval = 1 * time.Hour
	// DefaultRetentionMaxAge is how long a price_history row is kept before
	// the retention sweep prunes it.
	DefaultRetentionMaxAge = 30 * 24 * time.Hour
)

var validate = validator.New()

// Config defines all necessary oracle-backend configuration parameters,
// loaded once at startup from the environment (spec.md §6).
type Config struct {
	SolanaRPCURL string `mapstructure:"solana_rpc_url" validate:"required,url"`
	SolanaWSURL  string `mapstructure:"solana_ws_url" validate:"required"`
	DatabaseURL  string `mapstructure:"database_url" validate:"required"`
	RedisURL     string `mapstructure:"redis_url" validate:"required"`

	Server Server `mapstructure:",squash"`
	Oracle Oracle `mapstructure:",squash"`
	CORS   CORS   `mapstructure:",squash"`
}

// Server defines the HTTP front-end's listen address. The CORS allow-list
// lives in the separate CORS struct.
type Server struct {
	Host string `mapstructure:"server_host" validate:"required"`
	Port int    `mapstructure:"server_port" validate:"required,gt=0,lt=65536"`
}

// CORS configures the allow-list the HTTP front-end's middleware chain
// enforces (SPEC_FULL §4: configurable, not wide-open).
type CORS struct {
	AllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	Verbose        bool     `mapstructure:"cors_verbose"`
}

// Oracle mirrors spec.md §3's ConsensusConfig.
type Oracle struct {
	MaxPriceAgeSeconds int64 `mapstructure:"max_price_age_seconds" validate:"required,gt=0"`
	MaxConfidenceBps   int64 `mapstructure:"max_confidence_bps" validate:"gte=0"`
	MaxDeviationBps    int64 `mapstructure:"max_deviation_bps" validate:"gte=0"`
}

// ListenAddr renders Server into the host:port form net/http wants.
func (s Server) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func bindEnv() {
	viper.AutomaticEnv()
	_ = viper.BindEnv("solana_rpc_url", "SOLANA_RPC_URL")
	_ = viper.BindEnv("solana_ws_url", "SOLANA_WS_URL")
	_ = viper.BindEnv("database_url", "DATABASE_URL")
	_ = viper.BindEnv("redis_url", "REDIS_URL")
	_ = viper.BindEnv("server_host", "SERVER_HOST")
	_ = viper.BindEnv("server_port", "SERVER_PORT")
	_ = viper.BindEnv("max_price_age_seconds", "MAX_PRICE_AGE_SECONDS")
	_ = viper.BindEnv("max_confidence_bps", "MAX_CONFIDENCE_BPS")
	_ = viper.BindEnv("max_deviation_bps", "MAX_DEVIATION_BPS")
	_ = viper.BindEnv("cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("cors_verbose", "CORS_VERBOSE")

	viper.SetDefault("redis_url", defaultRedisURL)
	viper.SetDefault("server_host", defaultServerHost)
	viper.SetDefault("server_port", defaultServerPort)
	viper.SetDefault("max_price_age_seconds", defaultMaxPriceAgeSeconds)
	viper.SetDefault("max_confidence_bps", defaultMaxConfidenceBps)
	viper.SetDefault("max_deviation_bps", defaultMaxDeviationBps)
	viper.SetDefault("cors_verbose", false)
}

// corsValidation rejects a CORS config whose allow-list is the single
// wildcard origin "*" while Verbose is false -- the teacher's own telemetryValidation/endpointValidation pattern of a custom
// StructLevel check for relationships a single tag can't express.
func corsValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(CORS)
	if len(c.AllowedOrigins) == 1 && c.AllowedOrigins[0] == "*" && !c.Verbose {
		sl.ReportError(c.AllowedOrigins, "AllowedOrigins", "AllowedOrigins", "wildcardOriginRequiresVerboseLogging", "")
	}
}

// Validate returns an error if the Config object is invalid.
func (c Config) Validate() error {
	validate.RegisterStructValidation(corsValidation, CORS{})
	return validate.Struct(c)
}

// Load reads Config from the process environment (spec.md §6's recognized
// options), applies defaults, and validates the result. Analogous to the
// teacher's ParseConfig, but sourced from env vars via spf13/viper instead
// of a TOML file.
func Load() (Config, error) {
	bindEnv()

	var cfg Config
	cfg.SolanaRPCURL = viper.GetString("solana_rpc_url")
	cfg.SolanaWSURL = viper.GetString("solana_ws_url")
	cfg.DatabaseURL = viper.GetString("database_url")
	cfg.RedisURL = viper.GetString("redis_url")
	cfg.Server = Server{
		Host: viper.GetString("server_host"),
		Port: viper.GetInt("server_port"),
	}
	cfg.Oracle = Oracle{
		MaxPriceAgeSeconds: viper.GetInt64("max_price_age_seconds"),
		MaxConfidenceBps:   viper.GetInt64("max_confidence_bps"),
		MaxDeviationBps:    viper.GetInt64("max_deviation_bps"),
	}
	origins := viper.GetString("cors_allowed_origins")
	if origins != "" {
		cfg.CORS.AllowedOrigins = strings.Split(origins, ",")
	}
	cfg.CORS.Verbose = viper.GetBool("cors_verbose")

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %v", types.ErrConfigLoad, err)
	}
	return cfg, nil
}
