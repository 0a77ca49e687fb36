package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"flashsale/sale"
)

// Config carries every runtime knob, parsed from the environment once at
// startup. SALE_STARTS_AT and SALE_ENDS_AT expect RFC 3339 timestamps.
type Config struct {
	Addr        string `env:"SALE_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"SALE_METRICS_ADDR" envDefault:":8081"`

	RedisAddr     string        `env:"SALE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB       int           `env:"SALE_REDIS_DB" envDefault:"0"`
	RedisPoolSize int           `env:"SALE_REDIS_POOL_SIZE" envDefault:"64"`
	StoreTimeout  time.Duration `env:"SALE_STORE_TIMEOUT" envDefault:"2s"`

	MySQLDSN string `env:"SALE_MYSQL_DSN" envDefault:"root:password123@tcp(127.0.0.1:3306)/sale_db?charset=utf8mb4&parseTime=True&loc=Local"`

	KafkaBrokers  []string `env:"SALE_KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	OrderTopic    string   `env:"SALE_KAFKA_ORDER_TOPIC" envDefault:"sale-orders"`
	DLQTopic      string   `env:"SALE_KAFKA_DLQ_TOPIC" envDefault:"sale-orders-dlq"`
	ConsumerGroup string   `env:"SALE_KAFKA_GROUP" envDefault:"order-persister"`

	ProductID    string    `env:"SALE_PRODUCT_ID" envDefault:"drop-2026"`
	Description  string    `env:"SALE_DESCRIPTION" envDefault:"limited edition drop"`
	StartsAt     time.Time `env:"SALE_STARTS_AT"`
	EndsAt       time.Time `env:"SALE_ENDS_AT"`
	InitialStock int64     `env:"SALE_INITIAL_STOCK" envDefault:"1000"`

	MaxAttempts   int           `env:"SALE_RESERVE_MAX_ATTEMPTS" envDefault:"5"`
	BackoffBase   time.Duration `env:"SALE_RESERVE_BACKOFF_BASE" envDefault:"5ms"`
	ReserveBudget time.Duration `env:"SALE_RESERVE_BUDGET" envDefault:"3s"`

	RateLimitRPM   int `env:"SALE_RATE_LIMIT_RPM" envDefault:"120"`
	RateLimitBurst int `env:"SALE_RATE_LIMIT_BURST" envDefault:"10"`

	CORSOrigins []string `env:"SALE_CORS_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	GaugeInterval time.Duration `env:"SALE_STOCK_GAUGE_INTERVAL" envDefault:"500ms"`
}

// Parse loads configuration from environment variables.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Sale builds the sale record seeded into the store. A zero StartsAt opens
// the window immediately; a zero EndsAt closes it 24 hours after opening.
func (c Config) Sale(now time.Time) sale.Config {
	startsAt := c.StartsAt
	if startsAt.IsZero() {
		startsAt = now
	}
	endsAt := c.EndsAt
	if endsAt.IsZero() {
		endsAt = startsAt.Add(24 * time.Hour)
	}
	return sale.Config{
		ProductID:    c.ProductID,
		Description:  c.Description,
		StartsAt:     startsAt,
		EndsAt:       endsAt,
		InitialStock: c.InitialStock,
	}
}
