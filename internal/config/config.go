package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type GeneralConfig struct {
	Env         string `env:"APP_ENV" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"clipescrow"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Port        int    `env:"PORT" envDefault:"8080"`
}

type DatabaseConfig struct {
	Host            string `env:"DB_HOST" envDefault:"localhost"`
	Port            int    `env:"DB_PORT" envDefault:"5432"`
	User            string `env:"DB_USER" envDefault:"postgres"`
	Password        string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName          string `env:"DB_NAME" envDefault:"clipescrow"`
	SSLMode         string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime int    `env:"DB_CONN_MAX_LIFETIME_MINUTES" envDefault:"30"`
	ConnMaxIdleTime int    `env:"DB_CONN_MAX_IDLE_MINUTES" envDefault:"5"`
	RunMigrations   bool   `env:"DB_RUN_MIGRATIONS" envDefault:"true"`
}

// DSN is the lib/pq connection URL
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Storage drivers
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type LedgerConfig struct {
	StorageDriver   string   `env:"STORAGE_DRIVER" envDefault:"memory"`
	SupportedAssets []string `env:"LEDGER_SUPPORTED_ASSETS" envDefault:"USDC" envSeparator:","`
	// UnlimitedCustodian lets brands fund deposits without a minted balance
	UnlimitedCustodian bool `env:"CUSTODIAN_UNLIMITED_SOURCE" envDefault:"true"`
}

type appConfig struct {
	GeneralConfig  GeneralConfig
	DatabaseConfig DatabaseConfig
	CacheConfig    CacheConfig
	LedgerConfig   LedgerConfig
}

var AppConfigInstance appConfig

// LoadConfigs loads .env (when present) and parses the environment into
// AppConfigInstance.
func LoadConfigs() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg appConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	AppConfigInstance = cfg
	return nil
}

func (c appConfig) validate() error {
	switch c.LedgerConfig.StorageDriver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.LedgerConfig.StorageDriver)
	}
	if c.GeneralConfig.Port <= 0 || c.GeneralConfig.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.GeneralConfig.Port)
	}
	return nil
}
