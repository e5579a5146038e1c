package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix  = "barter"
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BARTER_APP_ENV" required:"true"`
	Port         string `envconfig:"BARTER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BARTER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BARTER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"BARTER_DB_DSN"`

	Host     string `envconfig:"BARTER_DB_HOST"`
	Port     int    `envconfig:"BARTER_DB_PORT" default:"5432"`
	User     string `envconfig:"BARTER_DB_USER"`
	Password string `envconfig:"BARTER_DB_PASSWORD"`
	Name     string `envconfig:"BARTER_DB_NAME"`
	SSLMode  string `envconfig:"BARTER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BARTER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BARTER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BARTER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BARTER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles a postgres DSN from discrete fields when one is not provided.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database config incomplete: set BARTER_DB_DSN or host/user/name")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"BARTER_REDIS_URL"`
	Address      string        `envconfig:"BARTER_REDIS_ADDR"`
	Password     string        `envconfig:"BARTER_REDIS_PASSWORD"`
	DB           int           `envconfig:"BARTER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BARTER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BARTER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BARTER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BARTER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BARTER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BARTER_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BARTER_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BARTER_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"BARTER_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BARTER_AUTO_MIGRATE" default:"false"`
}
