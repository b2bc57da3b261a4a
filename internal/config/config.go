// Package config загружает настройки attendance-bridge.
//
// Источники, в порядке применения:
//  1. опциональный .env файл (BRIDGE_ENV_FILE, по умолчанию ".env")
//  2. переменные окружения процесса
//
// Конфигурация неизменяема после загрузки. Отсутствие обязательных
// полей — ошибка Load, а не ошибка потребления.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Значения по умолчанию.
const (
	DefaultPort      = 5672
	DefaultTLSPort   = 5671
	DefaultVHost     = "/"
	DefaultAdminPort = 8084
)

// Ошибки валидации.
var (
	ErrMissingHost     = errors.New("config: RABBITMQ_HOST is required")
	ErrMissingUser     = errors.New("config: RABBITMQ_USER is required")
	ErrMissingPassword = errors.New("config: RABBITMQ_PASSWORD is required")
)

// Config — настройки брокера и хоста. Секреты никогда не зашиваются
// в артефакт — только внешний источник.
type Config struct {
	// Подключение к RabbitMQ.
	Host        string
	Port        int
	User        string
	Password    string
	VirtualHost string
	TLS         bool

	// Queue — очередь bootstrap-контроллера (опционально).
	Queue string

	// DBURL — pgx DSN. Пустое значение — default репозитория.
	DBURL string

	// AdminPort — порт admin HTTP API (+ healthz, metrics).
	AdminPort int
}

// Load читает конфигурацию из .env файла и окружения.
func Load() (*Config, error) {
	envFile := os.Getenv("BRIDGE_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	// Отсутствующий файл — не ошибка: окружение может быть полным само по себе.
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	cfg := &Config{
		Host:        os.Getenv("RABBITMQ_HOST"),
		User:        os.Getenv("RABBITMQ_USER"),
		Password:    os.Getenv("RABBITMQ_PASSWORD"),
		VirtualHost: getEnv("RABBITMQ_VHOST", DefaultVHost),
		Queue:       os.Getenv("RABBITMQ_QUEUE"),
		DBURL:       os.Getenv("DB_URL"),
	}

	var err error
	if cfg.TLS, err = getBool("RABBITMQ_TLS", false); err != nil {
		return nil, err
	}

	defaultPort := DefaultPort
	if cfg.TLS {
		defaultPort = DefaultTLSPort
	}
	if cfg.Port, err = getInt("RABBITMQ_PORT", defaultPort); err != nil {
		return nil, err
	}
	if cfg.AdminPort, err = getInt("ADMIN_PORT", DefaultAdminPort); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет обязательные поля.
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrMissingHost
	}
	if c.User == "" {
		return ErrMissingUser
	}
	if c.Password == "" {
		return ErrMissingPassword
	}
	return nil
}

// AMQPURL собирает URL подключения к брокеру.
// При TLS=true используется схема amqps (тот же протокол, шифрованный сокет).
func (c *Config) AMQPURL() string {
	scheme := "amqp"
	if c.TLS {
		scheme = "amqps"
	}
	// Путь "/" парсится amqp091 как default vhost.
	path := "/"
	if c.VirtualHost != "" && c.VirtualHost != DefaultVHost {
		path = "/" + c.VirtualHost
	}
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   path,
	}
	return u.String()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s must be a boolean: %w", key, err)
	}
	return b, nil
}
