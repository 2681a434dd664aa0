// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	ThreadProvider          `yaml:"thread_provider"`
	Quota                   `yaml:"quota"`
	Webhook                 `yaml:"webhook"`
	Rabbit                  `yaml:"rabbit"`
	SMTP                    `yaml:"smtp"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// ThreadProvider структура для настройки клиента генерации тредов
type ThreadProvider struct {
	APIKey      string        `yaml:"api_key" env:"THREAD_PROVIDER_API_KEY"`
	BaseURL     string        `yaml:"base_url" env-default:"https://api.x.ai/v1"`
	Model       string        `yaml:"model" env-default:"grok-beta"`
	MaxTokens   int           `yaml:"max_tokens" env-default:"500"`
	Temperature float64       `yaml:"temperature" env-default:"0.9"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"30s"`
}

// Quota структура для настройки месячного лимита генераций.
// FreeMonthlyLimit — единственный источник значения лимита:
// им пользуются и проверка квоты, и расчет остатка.
type Quota struct {
	FreeMonthlyLimit int `yaml:"free_monthly_limit" env-default:"5"`
}

// Webhook структура для настройки приема событий платежного провайдера
type Webhook struct {
	WebhookSecret string `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
}

// Rabbit структура для настройки подключения к RabbitMQ
type Rabbit struct {
	RabbitURL      string `yaml:"rabbit_url"`
	Exchange       string `yaml:"exchange" env-default:"notifications"`
	QueueName      string `yaml:"queue_name" env-default:"entitlement-notifications"`
	RoutingKeyName string `yaml:"routing_key" env-default:"entitlement.changed"`
}

// SMTP структура для настройки почтового транспорта уведомлений
type SMTP struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass"`
	SMTPFrom string `yaml:"smtp_from"`
}

// MustLoad функция для загрузки конфига, путь берется из переменной CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"ThreadProvider:\n"+
			"  BaseURL: %s\n"+
			"  Model: %s\n"+
			"Quota:\n"+
			"  FreeMonthlyLimit: %d\n"+
			"Rabbit:\n"+
			"  Exchange: %s\n",
		c.Env,
		c.StorageConnectionString,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.HTTPServer.TimeoutHTTP,
		c.IdleTimeout,
		c.BaseURL,
		c.Model,
		c.FreeMonthlyLimit,
		c.Exchange,
	)
}
