package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Ledger drivers.
const (
	LedgerPostgres = "postgres"
	LedgerMongo    = "mongo"
	LedgerMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Security  SecurityConfig  `mapstructure:"security"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LedgerConfig struct {
	Driver string `mapstructure:"driver"` // postgres, mongo, memory
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// PaymentConfig carries the charge limits. Amounts are decimal strings so
// that bounds such as 0.01 are exact.
type PaymentConfig struct {
	MinAmount           string   `mapstructure:"min_amount"`
	MaxAmount           string   `mapstructure:"max_amount"`
	SupportedCurrencies []string `mapstructure:"supported_currencies"`
	ListLimitDefault    int      `mapstructure:"list_limit_default"`
	ListLimitMax        int      `mapstructure:"list_limit_max"`
}

// Bounds parses the configured amount limits.
func (p PaymentConfig) Bounds() (min, max decimal.Decimal, err error) {
	min, err = decimal.NewFromString(strings.TrimSpace(p.MinAmount))
	if err != nil {
		return min, max, fmt.Errorf("payment.min_amount: %w", err)
	}
	max, err = decimal.NewFromString(strings.TrimSpace(p.MaxAmount))
	if err != nil {
		return min, max, fmt.Errorf("payment.max_amount: %w", err)
	}
	return min, max, nil
}

// Currencies returns the allow-list upper-cased with blanks dropped.
func (p PaymentConfig) Currencies() []string {
	out := make([]string, 0, len(p.SupportedCurrencies))
	for _, c := range p.SupportedCurrencies {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

type SecurityConfig struct {
	RequireAPIKey     bool   `mapstructure:"require_api_key"`
	APIKey            string `mapstructure:"api_key"`
	APIKeyHash        string `mapstructure:"api_key_hash"`        // argon2id hash; takes precedence over api_key
	CardEncryptionKey string `mapstructure:"card_encryption_key"` // 32-byte hex-encoded key for AES-256, empty stores plaintext
}

type RateLimitConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	ChargePerMinute int  `mapstructure:"charge_per_minute"`
	RefundPerMinute int  `mapstructure:"refund_per_minute"`
	ReadPerMinute   int  `mapstructure:"read_per_minute"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: BEPAY_.
// Nested keys use underscore: BEPAY_DATABASE_HOST, BEPAY_SECURITY_API_KEY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("ledger.driver", LedgerPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "bepay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "bepay")
	v.SetDefault("mongo.collection", "transactions")
	v.SetDefault("mongo.timeout", "10s")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "bepay.transactions")
	v.SetDefault("payment.min_amount", "0.01")
	v.SetDefault("payment.max_amount", "1000000")
	v.SetDefault("payment.supported_currencies", []string{"USD", "EUR", "GBP", "JPY"})
	v.SetDefault("payment.list_limit_default", 100)
	v.SetDefault("payment.list_limit_max", 100)
	v.SetDefault("security.require_api_key", true)
	v.SetDefault("security.api_key", "dev-api-key-change-in-production")
	v.SetDefault("security.api_key_hash", "")
	v.SetDefault("security.card_encryption_key", "")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.charge_per_minute", 60)
	v.SetDefault("ratelimit.refund_per_minute", 20)
	v.SetDefault("ratelimit.read_per_minute", 300)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: BEPAY_DATABASE_HOST -> database.host
	v.SetEnvPrefix("BEPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode %q: must be one of debug, release, test", c.Server.Mode))
	}

	switch c.Ledger.Driver {
	case LedgerPostgres, LedgerMongo, LedgerMemory:
	default:
		errs = append(errs, fmt.Errorf("ledger.driver %q: must be one of postgres, mongo, memory", c.Ledger.Driver))
	}

	min, max, err := c.Payment.Bounds()
	if err != nil {
		errs = append(errs, err)
	} else {
		if !min.IsPositive() {
			errs = append(errs, errors.New("payment.min_amount must be greater than zero"))
		}
		if min.GreaterThan(max) {
			errs = append(errs, errors.New("payment.min_amount must not exceed payment.max_amount"))
		}
	}

	if len(c.Payment.Currencies()) == 0 {
		errs = append(errs, errors.New("payment.supported_currencies must not be empty"))
	}
	if c.Payment.ListLimitMax < 1 {
		errs = append(errs, errors.New("payment.list_limit_max must be at least 1"))
	}

	if c.Security.RequireAPIKey && c.Security.APIKey == "" && c.Security.APIKeyHash == "" {
		errs = append(errs, errors.New("security.require_api_key is set but neither api_key nor api_key_hash is configured"))
	}
	if k := c.Security.CardEncryptionKey; k != "" {
		if raw, err := hex.DecodeString(k); err != nil || len(raw) != 32 {
			errs = append(errs, errors.New("security.card_encryption_key must be 64 hex characters"))
		}
	}

	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		errs = append(errs, errors.New("kafka.enabled requires brokers and topic"))
	}

	return errors.Join(errs...)
}
