package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the runtime configuration of the API, grouped by concern.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Uploads   UploadsConfig   `mapstructure:"uploads"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Orders    OrdersConfig    `mapstructure:"orders"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// Addr returns the host part of the DSN, safe to log.
func (d DatabaseConfig) Addr() string {
	parsed, err := mysql.ParseDSN(d.DSN)
	if err != nil {
		return ""
	}
	return parsed.Addr
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// RedisConfig backs the idempotency store. An empty Address selects the in-memory store.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type UploadsConfig struct {
	Dir      string `mapstructure:"dir"`
	BaseURL  string `mapstructure:"base_url"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type OrdersConfig struct {
	AllowOversell  bool          `mapstructure:"allow_oversell"`
	CashbackRate   string        `mapstructure:"cashback_rate"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// Rate parses CashbackRate. An unset value returns nil so the service default applies;
// an explicit "0" turns earning off.
func (o OrdersConfig) Rate() (*decimal.Decimal, error) {
	raw := strings.TrimSpace(o.CashbackRate)
	if raw == "" {
		return nil, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

type RateLimitConfig struct {
	GuestRPS   float64 `mapstructure:"guest_rps"`
	GuestBurst int     `mapstructure:"guest_burst"`
}

type TracingConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", 72*time.Hour)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.base_url", "/uploads")
	v.SetDefault("uploads.max_bytes", 5<<20)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("orders.allow_oversell", true)
	v.SetDefault("orders.cashback_rate", "")
	v.SetDefault("orders.idempotency_ttl", 24*time.Hour)

	v.SetDefault("ratelimit.guest_rps", 1.0)
	v.SetDefault("ratelimit.guest_burst", 5)

	v.SetDefault("tracing.service_name", "catering-api")
	v.SetDefault("tracing.otlp_endpoint", "")

	v.SetDefault("log.level", "info")
}

// Load reads .env (when present), an optional config.yaml under paths, and the environment.
// Environment keys are the upper-cased config keys with dots replaced by underscores,
// e.g. DATABASE_DSN or ORDERS_ALLOW_OVERSELL.
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(paths) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// AutomaticEnv delivers lists as a single comma separated string.
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports missing or inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	} else if _, err := mysql.ParseDSN(c.Database.DSN); err != nil {
		errs = append(errs, fmt.Errorf("database.dsn: %w", err))
	}
	if len(c.JWT.Secret) < 16 {
		errs = append(errs, errors.New("jwt.secret must be at least 16 characters"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be positive"))
	}
	rate, err := c.Orders.Rate()
	if err != nil {
		errs = append(errs, fmt.Errorf("orders.cashback_rate: %w", err))
	} else if rate != nil && (rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1))) {
		errs = append(errs, errors.New("orders.cashback_rate must be in [0, 1)"))
	}
	if c.RateLimit.GuestRPS <= 0 || c.RateLimit.GuestBurst <= 0 {
		errs = append(errs, errors.New("ratelimit.guest_rps and ratelimit.guest_burst must be positive"))
	}
	return errors.Join(errs...)
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
