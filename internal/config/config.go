// Пакет config читает настройки сервисов из окружения и необязательного .env
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile       = ".env"
	defaultDBName        = "appdb"
	defaultDBPort        = "5432"
	defaultNATSSubject   = "cases"
	defaultHTTPAddr      = ":8080"
	defaultRedisTTL      = time.Minute
	defaultSessionTTL    = 12 * time.Hour
	defaultBatchSize     = 10
	defaultConsumerPort  = "8081"
	defaultMigrationsDir = "migrations"
)

// Config объединяет настройки cmd/app и cmd/consumer
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr string
	RedisTTL  time.Duration

	NATSURL     string
	NATSSubject string

	HTTPAddr       string
	AgencyPasscode string
	SessionTTL     time.Duration

	ClickHouseDSN string
	BatchSize     int
	ConsumerPort  string

	MigrationsDir string
}

// Load читает .env из рабочего каталога, если он есть, затем окружение
func Load() (*Config, error) {
	return LoadFile(defaultEnvFile)
}

// LoadFile как Load, но с явным путём к .env.
// Переменные, уже заданные в окружении, файл не перезаписывает.
func LoadFile(envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	cfg := &Config{
		DBHost:         os.Getenv("DB_HOST"),
		DBPort:         getEnv("DB_PORT", defaultDBPort),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         getEnv("DB_NAME", defaultDBName),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		NATSURL:        os.Getenv("NATS_URL"),
		NATSSubject:    getEnv("NATS_SUBJECT", defaultNATSSubject),
		HTTPAddr:       getEnv("HTTP_ADDR", defaultHTTPAddr),
		AgencyPasscode: os.Getenv("AGENCY_PASSCODE"),
		ClickHouseDSN:  os.Getenv("CLICKHOUSE_DSN"),
		ConsumerPort:   getEnv("CONSUMER_PORT", defaultConsumerPort),
		MigrationsDir:  getEnv("MIGRATIONS_DIR", defaultMigrationsDir),
	}
	var err error
	if cfg.RedisTTL, err = getDuration("REDIS_TTL", defaultRedisTTL); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", defaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = getInt("BATCH_SIZE", defaultBatchSize); err != nil {
		return nil, err
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("invalid BATCH_SIZE: must be positive, got %d", cfg.BatchSize)
	}
	return cfg, nil
}

// PostgresDSN собирает строку подключения для lib/pq
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// MigrationsURL возвращает источник миграций golang-migrate для подкаталога (postgres, clickhouse)
func (c *Config) MigrationsURL(dir string) string {
	return "file://" + c.MigrationsDir + "/" + dir
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
