package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// Notification backends.
const (
	NotifyKafka = "kafka"
	NotifyAMQP  = "amqp"
	NotifyNone  = "none"
)

// Config stores portal settings shared by every binary.
type Config struct {
	Port             int
	OperationTimeout time.Duration

	DB        DB
	Auth      Auth
	Kafka     Kafka
	AMQP      AMQP
	Notify    Notify
	PHI       PHI
	Billing   Billing
	Bidding   Bidding
	AutoBid   AutoBid
	RateLimit RateLimit
	Pprof     PprofConfig
}

// DB is the Postgres connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN builds a pgx connection string.
func (d DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Auth holds bearer token settings.
type Auth struct {
	JWTSecret string
}

// Kafka holds broker settings for intake and notifications.
type Kafka struct {
	Brokers     []string
	IntakeTopic string
	GroupID     string
	NotifyTopic string
}

// AMQP holds RabbitMQ settings for notifications.
type AMQP struct {
	URL      string
	Exchange string
}

// Notify selects and tunes the notification dispatcher.
type Notify struct {
	Backend     string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// PHI holds the field encryption key as hex.
type PHI struct {
	KeyHex string
}

// Billing holds the per-award fee.
type Billing struct {
	AwardFee decimal.Decimal
}

// Bidding holds the bidding window given to new trips.
type Bidding struct {
	DefaultWindow time.Duration
}

// AutoBid identifies the carrier account used by the automated bidder.
type AutoBid struct {
	CarrierID int64
	UserID    int64
	ETAOffset time.Duration
}

// RateLimit configures the HTTP token bucket limiter.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// PprofConfig configures the optional profiling server.
type PprofConfig struct {
	Enabled bool
	Addr    string
	User    string
	Pass    string
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	fs := pflag.CommandLine
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	fs.StringVar(&cfg.DB.Host, "db-host", cfg.DB.Host, "postgres host")
	fs.StringVar(&cfg.DB.Port, "db-port", cfg.DB.Port, "postgres port")
	fs.StringVar(&cfg.Notify.Backend, "notify-backend", cfg.Notify.Backend, "notification backend: kafka, amqp or none")
	fs.DurationVar(&cfg.Bidding.DefaultWindow, "bidding-window", cfg.Bidding.DefaultWindow, "bidding window for new trips")
	fs.BoolVar(&cfg.Pprof.Enabled, "pprof", cfg.Pprof.Enabled, "serve pprof endpoints")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Port:             defaultPort,
		OperationTimeout: defaultOperationTimeout,
		DB:               defaultDB,
		Kafka:            defaultKafka,
		AMQP:             defaultAMQP,
		Notify:           defaultNotify,
		Billing:          Billing{AwardFee: defaultAwardFee},
		Bidding:          defaultBidding,
		AutoBid:          defaultAutoBid,
		RateLimit:        defaultRateLimit,
		Pprof:            defaultPprof,
	}
	cfg.Kafka.Brokers = append([]string(nil), defaultKafka.Brokers...)

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(envInt("PORT", &cfg.Port))
	collect(envDuration("OPERATION_TIMEOUT", &cfg.OperationTimeout))

	envString("POSTGRES_HOST", &cfg.DB.Host)
	envString("POSTGRES_PORT", &cfg.DB.Port)
	envString("POSTGRES_USER", &cfg.DB.User)
	envString("POSTGRES_PASSWORD", &cfg.DB.Pass)
	envString("POSTGRES_DB", &cfg.DB.Name)
	if _, err := strconv.Atoi(cfg.DB.Port); err != nil {
		collect(fmt.Errorf("POSTGRES_PORT: %w", err))
	}

	envString("JWT_SECRET", &cfg.Auth.JWTSecret)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	envString("KAFKA_INTAKE_TOPIC", &cfg.Kafka.IntakeTopic)
	envString("KAFKA_GROUP_ID", &cfg.Kafka.GroupID)
	envString("KAFKA_NOTIFY_TOPIC", &cfg.Kafka.NotifyTopic)

	envString("AMQP_URL", &cfg.AMQP.URL)
	envString("AMQP_EXCHANGE", &cfg.AMQP.Exchange)

	envString("NOTIFY_BACKEND", &cfg.Notify.Backend)
	collect(envInt("NOTIFY_MAX_ATTEMPTS", &cfg.Notify.MaxAttempts))
	collect(envDuration("NOTIFY_BASE_DELAY", &cfg.Notify.BaseDelay))
	collect(envDuration("NOTIFY_MAX_DELAY", &cfg.Notify.MaxDelay))

	envString("PHI_KEY", &cfg.PHI.KeyHex)

	if v := os.Getenv("BILLING_AWARD_FEE"); v != "" {
		fee, err := decimal.NewFromString(v)
		if err != nil {
			collect(fmt.Errorf("BILLING_AWARD_FEE: %w", err))
		} else {
			cfg.Billing.AwardFee = fee
		}
	}

	collect(envDuration("BIDDING_DEFAULT_WINDOW", &cfg.Bidding.DefaultWindow))

	collect(envInt64("AUTOBID_CARRIER_ID", &cfg.AutoBid.CarrierID))
	collect(envInt64("AUTOBID_USER_ID", &cfg.AutoBid.UserID))
	collect(envDuration("AUTOBID_ETA_OFFSET", &cfg.AutoBid.ETAOffset))

	collect(envBool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled))
	collect(envFloat("RATE_LIMIT_RATE", &cfg.RateLimit.Rate))
	collect(envInt("RATE_LIMIT_BURST", &cfg.RateLimit.Burst))
	collect(envDuration("RATE_LIMIT_TTL", &cfg.RateLimit.TTL))
	collect(envInt("RATE_LIMIT_MAX_BUCKETS", &cfg.RateLimit.MaxBuckets))

	collect(envBool("PPROF_ENABLED", &cfg.Pprof.Enabled))
	envString("PPROF_ADDR", &cfg.Pprof.Addr)
	envString("PPROF_USER", &cfg.Pprof.User)
	envString("PPROF_PASS", &cfg.Pprof.Pass)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("invalid operation timeout: %s", c.OperationTimeout)
	}
	switch c.Notify.Backend {
	case NotifyKafka, NotifyAMQP, NotifyNone:
	default:
		return fmt.Errorf("invalid notify backend: %q", c.Notify.Backend)
	}
	if c.Notify.MaxAttempts <= 0 {
		return fmt.Errorf("invalid notify max attempts: %d", c.Notify.MaxAttempts)
	}
	if c.Bidding.DefaultWindow <= 0 {
		return fmt.Errorf("invalid bidding window: %s", c.Bidding.DefaultWindow)
	}
	if c.Billing.AwardFee.IsNegative() {
		return fmt.Errorf("invalid award fee: %s", c.Billing.AwardFee)
	}
	if c.PHI.KeyHex != "" {
		if _, err := c.PHI.Key(); err != nil {
			return err
		}
	}
	if c.RateLimit.Enabled && (c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("invalid rate limit: rate=%v burst=%d", c.RateLimit.Rate, c.RateLimit.Burst)
	}
	return nil
}

// Key decodes the PHI key; it must be 32 bytes.
func (p PHI) Key() ([]byte, error) {
	if p.KeyHex == "" {
		return nil, errors.New("PHI_KEY is not set")
	}
	key, err := hex.DecodeString(p.KeyHex)
	if err != nil {
		return nil, fmt.Errorf("PHI_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("PHI_KEY: want 32 bytes, got %d", len(key))
	}
	return key, nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envInt64(key string, dst *int64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
