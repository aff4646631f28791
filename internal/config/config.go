package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"portal/internal/auth"
	"portal/internal/dispatch"
	"portal/internal/hub"
	"portal/pkg/database"
)

// EnvPrefix namespaces environment overrides, e.g. PORTAL_HTTP_PORT
const EnvPrefix = "PORTAL"

// ARCHITECTURAL DISCOVERY: Configuration layer serves as system-wide settings coordinator
// Each section decodes straight into the config type of the component it feeds
type Config struct {
	Env       string          `mapstructure:"env"`
	Log       LogConfig       `mapstructure:"log"`
	Database  database.Config `mapstructure:"database"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Dispatch  dispatch.Config `mapstructure:"dispatch"`
	Hub       HubConfig       `mapstructure:"hub"`
	Auth      auth.Config     `mapstructure:"auth"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// FUNCTIONAL DISCOVERY: WebSocket configuration optimized for classroom scenarios
type WebSocketConfig struct {
	AuthTimeout   time.Duration `mapstructure:"auth_timeout"`
	PingInterval  time.Duration `mapstructure:"ping_interval"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	BufferSize    int           `mapstructure:"buffer_size"`
	CloseReplaced bool          `mapstructure:"close_replaced"`
}

type HubConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// setDefaults registers every key so AutomaticEnv can override any of them
func setDefaults(v *viper.Viper) {
	db := database.DefaultConfig()

	v.SetDefault("env", "production")
	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", db.Driver)
	v.SetDefault("database.dsn", db.DSN)
	v.SetDefault("database.max_connections", db.MaxConnections)
	v.SetDefault("database.conn_max_lifetime", db.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", db.ConnMaxIdleTime)
	v.SetDefault("database.migrations_path", "")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)

	v.SetDefault("websocket.auth_timeout", 10*time.Second)
	v.SetDefault("websocket.ping_interval", 30*time.Second)
	v.SetDefault("websocket.read_timeout", 60*time.Second)
	v.SetDefault("websocket.write_timeout", 5*time.Second)
	v.SetDefault("websocket.buffer_size", 100)
	v.SetDefault("websocket.close_replaced", false)

	v.SetDefault("dispatch.persist_timeout", 5*time.Second)
	v.SetDefault("dispatch.rate_per_minute", 100)
	v.SetDefault("dispatch.unrestricted_course_broadcast", false)

	v.SetDefault("hub.workers", hub.DefaultWorkers)
	v.SetDefault("hub.queue_size", hub.DefaultQueueSize)

	v.SetDefault("auth.mode", auth.ModeTrust)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.require_known_user", false)
}

// DefaultConfig returns the built-in defaults without consulting the
// environment
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; a decode failure is a programming error
		panic(err)
	}
	return &cfg
}

// Load resolves configuration with precedence env > file > defaults. A .env
// file in the working directory is loaded first when present. path may be
// empty.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.Wrap(err, "failed to load .env")
		}
	}
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}

	// ARCHITECTURAL DISCOVERY: Validate configuration after loading to catch errors early
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}

	if c.HTTP.Host == "" {
		return errors.New("HTTP host cannot be empty")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return errors.New("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return errors.New("HTTP timeouts must be positive")
	}

	if c.WebSocket.AuthTimeout <= 0 {
		return errors.New("WebSocket auth timeout must be positive")
	}
	if c.WebSocket.PingInterval <= 0 {
		return errors.New("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return errors.New("WebSocket read timeout must exceed the ping interval")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return errors.New("WebSocket write timeout must be positive")
	}
	if c.WebSocket.BufferSize <= 0 {
		return errors.New("WebSocket buffer size must be positive")
	}

	if c.Dispatch.PersistTimeout <= 0 {
		return errors.New("dispatch persist timeout must be positive")
	}
	if c.Dispatch.RatePerMinute < 0 {
		return errors.New("dispatch rate per minute cannot be negative")
	}

	if c.Hub.Workers <= 0 || c.Hub.QueueSize <= 0 {
		return errors.New("hub workers and queue size must be positive")
	}

	switch c.Auth.Mode {
	case auth.ModeTrust:
	case auth.ModeJWT:
		if len(c.Auth.Secret) < auth.MinSecretLength {
			return errors.Errorf("auth secret must be at least %d bytes in jwt mode", auth.MinSecretLength)
		}
	default:
		return errors.Errorf("unknown auth mode %q", c.Auth.Mode)
	}
	return nil
}

// Address is the HTTP listen address
func (c *Config) Address() string {
	return net.JoinHostPort(c.HTTP.Host, strconv.Itoa(c.HTTP.Port))
}
