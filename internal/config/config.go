package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type (
	// Config holds application level configuration loaded from file, environment and flags.
	Config struct {
		HTTP     HTTP     `yaml:"http"`
		Database Database `yaml:"database"`
		Queue    Queue    `yaml:"queue"`
		Gateway  Gateway  `yaml:"gateway"`
		Redis    Redis    `yaml:"redis"`
		Kafka    Kafka    `yaml:"kafka"`
		Logger   Logger   `yaml:"logger"`
	}

	// HTTP configures the web surface.
	HTTP struct {
		Address string `yaml:"address" env:"RUN_ADDRESS" env-default:":8080" validate:"required"`
		// Public base URL used to build gateway return links.
		AppURL          string        `yaml:"app_url" env:"APP_URL" env-default:"http://localhost:8080" validate:"required,url"`
		Locale          string        `yaml:"locale" env:"APP_LOCALE" env-default:"en"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
		// Basic auth for back-office routes, disabled when the hash is empty.
		AdminUser         string `yaml:"admin_user" env:"ADMIN_USER" env-default:"admin"`
		AdminPasswordHash string `yaml:"admin_password_hash" env:"ADMIN_PASSWORD_HASH"`
		// Signs the state parameter of payment return links, disabled when empty.
		CallbackSecret string        `yaml:"callback_secret" env:"CALLBACK_SECRET"`
		CallbackTTL    time.Duration `yaml:"callback_ttl" env:"CALLBACK_TTL" env-default:"3h"`
	}

	// Database configures PostgreSQL access.
	Database struct {
		URI     string `yaml:"uri" env:"DATABASE_URI" validate:"required"`
		Migrate bool   `yaml:"migrate" env:"DATABASE_MIGRATE" env-default:"true"`
	}

	// Queue configures worker pools and retry policies of the job pipeline.
	Queue struct {
		DefaultWorkers  int `yaml:"default_workers" env:"QUEUE_DEFAULT_WORKERS" env-default:"1"`
		OrdersWorkers   int `yaml:"orders_workers" env:"QUEUE_ORDERS_WORKERS" env-default:"5"`
		BulkWorkers     int `yaml:"bulk_workers" env:"QUEUE_BULK_WORKERS" env-default:"1"`
		PaymentsWorkers int `yaml:"payments_workers" env:"QUEUE_PAYMENTS_WORKERS" env-default:"3"`
		Buffer          int `yaml:"buffer" env:"QUEUE_BUFFER" env-default:"256"`

		ProcessTries   int           `yaml:"process_tries" env:"PROCESS_ORDER_TRIES" env-default:"5"`
		ProcessBackoff time.Duration `yaml:"process_backoff" env:"PROCESS_ORDER_BACKOFF" env-default:"2s"`
		ProcessTimeout time.Duration `yaml:"process_timeout" env:"PROCESS_ORDER_TIMEOUT" env-default:"120s"`

		PaymentTries      int           `yaml:"payment_tries" env:"CREATE_PAYMENT_TRIES" env-default:"3"`
		PaymentBackoff    time.Duration `yaml:"payment_backoff" env:"CREATE_PAYMENT_BACKOFF" env-default:"2s"`
		PaymentMaxBackoff time.Duration `yaml:"payment_max_backoff" env:"CREATE_PAYMENT_MAX_BACKOFF" env-default:"1m"`
		PaymentTimeout    time.Duration `yaml:"payment_timeout" env:"CREATE_PAYMENT_TIMEOUT" env-default:"120s"`
		PaymentUniqueFor  time.Duration `yaml:"payment_unique_for" env:"CREATE_PAYMENT_UNIQUE_FOR" env-default:"10m"`

		BulkTries   int           `yaml:"bulk_tries" env:"BULK_ORDERS_TRIES" env-default:"3"`
		BulkTimeout time.Duration `yaml:"bulk_timeout" env:"BULK_ORDERS_TIMEOUT" env-default:"3600s"`
	}

	// Gateway configures the payment provider.
	Gateway struct {
		Mode         string        `yaml:"mode" env:"PAYMENT_GATEWAY" env-default:"simulated" validate:"oneof=paypal simulated"`
		BaseURL      string        `yaml:"base_url" env:"PAYPAL_BASE_URL" env-default:"https://api-m.sandbox.paypal.com" validate:"required,url"`
		ClientID     string        `yaml:"client_id" env:"PAYPAL_CLIENT_ID" validate:"required_if=Mode paypal"`
		ClientSecret string        `yaml:"client_secret" env:"PAYPAL_CLIENT_SECRET" validate:"required_if=Mode paypal"`
		Currency     string        `yaml:"currency" env:"PAYPAL_CURRENCY" env-default:"USD" validate:"len=3"`
		BrandName    string        `yaml:"brand_name" env:"PAYPAL_BRAND_NAME" env-default:"Orderflow"`
		Locale       string        `yaml:"locale" env:"PAYPAL_LOCALE" env-default:"en-US"`
		Timeout      time.Duration `yaml:"timeout" env:"PAYPAL_TIMEOUT" env-default:"30s"`
		RatePerSec   int           `yaml:"rate_per_sec" env:"PAYPAL_RATE_PER_SEC" env-default:"10" validate:"gte=0"`
		Burst        int           `yaml:"burst" env:"PAYPAL_BURST" env-default:"5" validate:"gte=0"`
		SuccessRate  float64       `yaml:"success_rate" env:"SIMULATED_SUCCESS_RATE" env-default:"0.7" validate:"gte=0,lte=1"`
	}

	// Redis is optional; an empty address keeps locks and rate limits in process.
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	}

	// Kafka is optional; no brokers disables lifecycle event publishing.
	Kafka struct {
		Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
		Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"order-events"`
	}

	// Logger configures log level and optional rotated file output.
	Logger struct {
		Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
		Path       string `yaml:"path" env:"LOG_PATH"`
		MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"100"`
		MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"3"`
		MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"28"`
	}
)

const (
	defaultShutdownTimeout = 10 * time.Second
	defaultWorkers         = 1
	defaultQueueBuffer     = 256
)

// envFile is loaded into the process environment before parsing when it exists.
var envFile = ".env"

// Load parses configuration from an optional YAML file, environment variables and flags.
func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("orderflow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configPath      string
		address         string
		databaseURI     string
		ordersWorkers   int
		paymentsWorkers int
		shutdownTimeout string
	)

	fs.StringVar(&configPath, "config", "", "Path to YAML configuration file")
	fs.StringVar(&address, "a", "", "HTTP server listen address")
	fs.StringVar(&databaseURI, "d", "", "PostgreSQL DSN")
	fs.IntVar(&ordersWorkers, "worker-orders", 0, "Number of workers on the orders queue")
	fs.IntVar(&paymentsWorkers, "worker-payments", 0, "Number of workers on the paypal queue")
	fs.StringVar(&shutdownTimeout, "shutdown-timeout", "", "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if configPath != "" {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			cfg.HTTP.Address = address
		case "d":
			cfg.Database.URI = databaseURI
		case "worker-orders":
			cfg.Queue.OrdersWorkers = ordersWorkers
		case "worker-payments":
			cfg.Queue.PaymentsWorkers = paymentsWorkers
		case "shutdown-timeout":
			d, err := time.ParseDuration(shutdownTimeout)
			if err != nil {
				flagErr = fmt.Errorf("invalid shutdown timeout: %w", err)
				return
			}
			cfg.HTTP.ShutdownTimeout = d
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}

	normalize(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func normalize(cfg *Config) {
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = defaultShutdownTimeout
	}
	for _, workers := range []*int{
		&cfg.Queue.DefaultWorkers,
		&cfg.Queue.OrdersWorkers,
		&cfg.Queue.BulkWorkers,
		&cfg.Queue.PaymentsWorkers,
	} {
		if *workers <= 0 {
			*workers = defaultWorkers
		}
	}
	if cfg.Queue.Buffer <= 0 {
		cfg.Queue.Buffer = defaultQueueBuffer
	}
	if cfg.Queue.ProcessTries <= 0 {
		cfg.Queue.ProcessTries = 1
	}
	if cfg.Queue.PaymentTries <= 0 {
		cfg.Queue.PaymentTries = 1
	}
	if cfg.Queue.BulkTries <= 0 {
		cfg.Queue.BulkTries = 1
	}
}

// KafkaEnabled reports whether lifecycle events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// RedisEnabled reports whether a shared Redis instance is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}
