package config

import (
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	DBDriver               string `env:"DB_DRIVER" envDefault:"mysql"` // mysql or postgres
	DBUser                 string `env:"DB_USER"`
	DBPassword             string `env:"DB_PASSWORD"`
	DBHost                 string `env:"DB_HOST" envDefault:"127.0.0.1"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME" envDefault:"marketplace"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`
	DatabaseURL            string `env:"DATABASE_URL"` // postgres only
	DBMaxOpenConns         int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns         int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	Migrate                bool   `env:"MIGRATE" envDefault:"true"`

	Session SessionConfig
	Storage StorageConfig
	OTel    OTelConfig
}

type SessionConfig struct {
	Secret     string        `env:"SESSION_SECRET,required,notEmpty"`
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"336h"`
	CookieName string        `env:"SESSION_COOKIE" envDefault:"marketplace_session"`
	Store      string        `env:"SESSION_STORE" envDefault:"redis"` // redis or memory
	RedisURL   string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

type StorageConfig struct {
	Backend         string `env:"STORAGE_BACKEND" envDefault:"local"` // local or gcs
	MediaDir        string `env:"MEDIA_DIR" envDefault:"./media"`
	MediaURL        string `env:"MEDIA_URL" envDefault:"/media"`
	Bucket          string `env:"STORAGE_BUCKET"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type OTelConfig struct {
	Endpoint       string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Headers        string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName    string `env:"OTEL_SERVICE_NAME" envDefault:"campus-market"`
	ServiceVersion string `env:"OTEL_SERVICE_VERSION" envDefault:"dev"`
	Environment    string `env:"APP_ENV" envDefault:"development"`
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
