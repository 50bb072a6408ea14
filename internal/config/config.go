// Package config loads the service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stock-lookup/internal/core/domain"
)

const Prefix = "STOCK_LOOKUP"

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

type Config struct {
	Env      string `envconfig:"ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL"`

	HTTP    HTTP    `envconfig:"HTTP"`
	GRPC    GRPC    `envconfig:"GRPC"`
	MySQL   MySQL   `envconfig:"MYSQL"`
	Catalog Catalog `envconfig:"CATALOG"`
	Redis   Redis   `envconfig:"REDIS"`
	Breaker Breaker `envconfig:"BREAKER"`
}

type HTTP struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// GRPC is disabled when Addr is set to an empty string.
type GRPC struct {
	Addr string `envconfig:"ADDR" default:":50051"`
}

type MySQL struct {
	DSN             string        `envconfig:"DSN"`
	Addr            string        `envconfig:"ADDR" default:"127.0.0.1:3306"`
	User            string        `envconfig:"USER" default:"root"`
	Password        string        `envconfig:"PASSWORD"`
	Database        string        `envconfig:"DATABASE" default:"wordpress"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"5m"`
}

type Catalog struct {
	TablePrefix    string `envconfig:"TABLE_PREFIX" default:"wp_"`
	UploadsBaseURL string `envconfig:"UPLOADS_BASE_URL"`

	// AttributeKeys overrides meta keys per attribute, e.g.
	// "shelf_quantity:yid_total_shelf,initial_quantity:_initial_quantity".
	AttributeKeys map[string]string `envconfig:"ATTRIBUTE_KEYS"`
}

// Redis is optional; an empty URL disables the attachment URL cache.
type Redis struct {
	URL          string        `envconfig:"URL"`
	TTL          time.Duration `envconfig:"TTL" default:"1h"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"500ms"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"500ms"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"2s"`
}

type Breaker struct {
	Enabled      bool          `envconfig:"ENABLED" default:"true"`
	MaxRequests  uint32        `envconfig:"MAX_REQUESTS" default:"3"`
	Interval     time.Duration `envconfig:"INTERVAL" default:"10s"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"30s"`
	MinRequests  uint32        `envconfig:"MIN_REQUESTS" default:"5"`
	FailureRatio float64       `envconfig:"FAILURE_RATIO" default:"0.6"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidTablePrefix reports whether prefix is safe to splice into SQL
// table names.
func ValidTablePrefix(prefix string) bool {
	return tablePrefixPattern.MatchString(prefix)
}

func (c *Config) Environment() Environment {
	return ParseEnvironment(c.Env)
}

func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("config: http addr is required")
	}
	if !ValidTablePrefix(c.Catalog.TablePrefix) {
		return fmt.Errorf("config: invalid table prefix %q", c.Catalog.TablePrefix)
	}
	if c.Catalog.UploadsBaseURL != "" {
		u, err := url.Parse(c.Catalog.UploadsBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: invalid uploads base url %q", c.Catalog.UploadsBaseURL)
		}
	}
	if _, err := c.Catalog.Keys(); err != nil {
		return err
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("config: breaker failure ratio must be in (0, 1], got %v", c.Breaker.FailureRatio)
	}
	return nil
}

// Keys resolves the attribute meta keys, applying overrides to the defaults.
func (c Catalog) Keys() (domain.AttributeKeys, error) {
	overrides := make(map[domain.Attribute]string, len(c.AttributeKeys))
	for name, key := range c.AttributeKeys {
		attr := domain.Attribute(name)
		if !knownAttribute(attr) {
			return nil, fmt.Errorf("config: unknown attribute %q", name)
		}
		overrides[attr] = key
	}
	return domain.DefaultAttributeKeys().With(overrides), nil
}

func knownAttribute(attr domain.Attribute) bool {
	for _, a := range domain.Attributes {
		if a == attr {
			return true
		}
	}
	return false
}

// FormatDSN builds a go-sql-driver DSN. An explicit DSN wins over the
// individual fields; parseTime is always enabled.
func (m MySQL) FormatDSN() (string, error) {
	if m.DSN != "" {
		cfg, err := mysql.ParseDSN(m.DSN)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = m.Addr
	cfg.User = m.User
	cfg.Passwd = m.Password
	cfg.DBName = m.Database
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (m MySQL) Open(ctx context.Context) (*sql.DB, error) {
	dsn, err := m.FormatDSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(m.MaxOpenConns)
	db.SetMaxIdleConns(m.MaxIdleConns)
	db.SetConnMaxLifetime(m.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

func (r Redis) Enabled() bool {
	return r.URL != ""
}

func (r Redis) New(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(r.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.ReadTimeout = r.ReadTimeout
	opts.WriteTimeout = r.WriteTimeout
	opts.DialTimeout = r.DialTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
