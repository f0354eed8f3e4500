// Package config предоставляет структуры и функции для загрузки конфигурации портала.
//
// Конфигурация читается из YAML-файла по пути CONFIG_PATH; переменные окружения
// переопределяют значения из файла.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/magabrotheeeer/finportal/internal/models"
)

// Бэкенды ограничителя запросов.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Приёмники журнала аудита.
const (
	AuditSinkPostgres = "postgres"
	AuditSinkAMQP     = "amqp"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env                     string          `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string          `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	GRPCHealthAddress       string          `yaml:"grpc_health_address" env:"GRPC_HEALTH_ADDRESS" env-default:":50051"`
	HTTPServer              HTTPServer      `yaml:"http_server"`
	RedisConnection         RedisConnection `yaml:"redis_connection"`
	JWTToken                JWTToken        `yaml:"jwttoken"`
	RateLimit               RateLimit       `yaml:"rate_limit"`
	Audit                   Audit           `yaml:"audit"`
	RabbitMQ                RabbitMQ        `yaml:"rabbitmq"`
	Billing                 Billing         `yaml:"billing"`
	Plans                   []models.Plan   `yaml:"plans"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis. Пустой адрес отключает redis.
type RedisConnection struct {
	Address     string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user" env:"REDIS_USER"`
	DB          int           `yaml:"db" env-default:"0"`
	MaxRetries  int           `yaml:"max_retries" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env-default:"3s"`
}

// JWTToken структура для работы с токенами доступа.
type JWTToken struct {
	SecretKey string        `yaml:"secret_key" env:"JWT_SECRET_KEY" env-required:"true"`
	TokenTTL  time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RateLimit настраивает ограничитель запросов на пользователя.
type RateLimit struct {
	Backend  string        `yaml:"backend" env:"RATE_LIMIT_BACKEND" env-default:"memory"`
	Requests int           `yaml:"requests" env-default:"10"`
	Window   time.Duration `yaml:"window" env-default:"60s"`
}

// Audit настраивает асинхронный журнал аудита.
type Audit struct {
	Sink          string        `yaml:"sink" env:"AUDIT_SINK" env-default:"postgres"`
	BufferSize    int           `yaml:"buffer_size" env-default:"1024"`
	BatchSize     int           `yaml:"batch_size" env-default:"100"`
	FlushInterval time.Duration `yaml:"flush_interval" env-default:"1s"`
}

// RabbitMQ настраивает подключение к брокеру для приёмника аудита.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env-default:"audit"`
	Queue      string        `yaml:"queue" env-default:"audit.records"`
	RoutingKey string        `yaml:"routing_key" env-default:"audit.record"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Billing настраивает интеграцию с платёжным провайдером.
type Billing struct {
	APIURL        string `yaml:"api_url" env:"BILLING_API_URL" env-default:"https://api.stripe.com/v1"`
	SecretKey     string `yaml:"secret_key" env:"BILLING_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"BILLING_WEBHOOK_SECRET"`
	Currency      string `yaml:"currency" env-default:"usd"`
	// AllowForceCreate разрешает администраторам параметр force_create при опросе статуса платежа.
	AllowForceCreate bool          `yaml:"allow_force_create" env:"BILLING_ALLOW_FORCE_CREATE" env-default:"false"`
	Timeout          time.Duration `yaml:"timeout" env-default:"10s"`
}

// Load читает конфигурацию из файла и окружения.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	if configPath == "" {
		return nil, fmt.Errorf("%s: config path is empty", op)
	}
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(cfg.Plans) == 0 {
		cfg.Plans = DefaultPlans(cfg.Billing.Currency)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфигурацию по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.RateLimit.Backend {
	case RateLimitBackendMemory:
	case RateLimitBackendRedis:
		if c.RedisConnection.Address == "" {
			return errors.New("rate_limit.backend is redis but redis_connection.address is empty")
		}
	default:
		return fmt.Errorf("unknown rate_limit.backend %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.requests and rate_limit.window must be positive")
	}

	switch c.Audit.Sink {
	case AuditSinkPostgres:
	case AuditSinkAMQP:
		if c.RabbitMQ.URL == "" {
			return errors.New("audit.sink is amqp but rabbitmq.url is empty")
		}
	default:
		return fmt.Errorf("unknown audit.sink %q", c.Audit.Sink)
	}

	seen := make(map[string]struct{}, len(c.Plans))
	for _, p := range c.Plans {
		if p.ID == "" || p.Price <= 0 {
			return fmt.Errorf("plan %q must have an id and a positive price", p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate plan id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// DefaultPlans возвращает каталог тарифов, если он не задан в конфигурации.
func DefaultPlans(currency string) []models.Plan {
	if currency == "" {
		currency = "usd"
	}
	return []models.Plan{
		{ID: "starter", Name: "Starter", Price: 900, Currency: currency, Interval: "month",
			Features: []string{"accounts", "transactions"}},
		{ID: "pro", Name: "Pro", Price: 2900, Currency: currency, Interval: "month",
			Features: []string{"accounts", "transactions", "transfers", "invoices"}},
		{ID: "enterprise", Name: "Enterprise", Price: 9900, Currency: currency, Interval: "month",
			Features: []string{"accounts", "transactions", "transfers", "invoices", "audit export"}},
	}
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer: %s (timeout %s, idle %s)\n"+
			"GRPCHealth: %s\n"+
			"Redis: %s db=%d\n"+
			"TokenTTL: %s\n"+
			"RateLimit: %s %d/%s\n"+
			"Audit: %s buffer=%d batch=%d\n"+
			"Billing: %s force_create=%t\n"+
			"Plans: %d\n",
		c.Env,
		c.HTTPServer.Address, c.HTTPServer.Timeout, c.HTTPServer.IdleTimeout,
		c.GRPCHealthAddress,
		c.RedisConnection.Address, c.RedisConnection.DB,
		c.JWTToken.TokenTTL,
		c.RateLimit.Backend, c.RateLimit.Requests, c.RateLimit.Window,
		c.Audit.Sink, c.Audit.BufferSize, c.Audit.BatchSize,
		c.Billing.APIURL, c.Billing.AllowForceCreate,
		len(c.Plans),
	)
}
