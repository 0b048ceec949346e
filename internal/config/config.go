package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode              string        `mapstructure:"mode"`
	Port              int           `mapstructure:"port"`
	LogLevel          string        `mapstructure:"log_level"`
	Secret            string        `mapstructure:"secret"`
	ReadLimit         int64         `mapstructure:"read_limit"`
	PingPeriod        time.Duration `mapstructure:"ping_period"`
	PongWait          time.Duration `mapstructure:"pong_wait"`
	WriteWait         time.Duration `mapstructure:"write_wait"`
	SendBuffer        int           `mapstructure:"send_buffer"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
	TrustProxyHeaders bool          `mapstructure:"trust_proxy_headers"`

	Limits    Limits    `mapstructure:"limits"`
	Auth      Auth      `mapstructure:"auth"`
	Oracle    Oracle    `mapstructure:"oracle"`
	Redis     Redis     `mapstructure:"redis"`
	Telemetry Telemetry `mapstructure:"telemetry"`
	Metrics   Metrics   `mapstructure:"metrics"`
}

type Limits struct {
	AttemptWindow  time.Duration `mapstructure:"attempt_window"`
	AttemptCap     int           `mapstructure:"attempt_cap"`
	MaxPerAddress  int           `mapstructure:"max_per_address"`
	MaxPerIdentity int           `mapstructure:"max_per_identity"`
	MessageWindow  time.Duration `mapstructure:"message_window"`
	ChatCap        int           `mapstructure:"chat_cap"`
	ICECap         int           `mapstructure:"ice_cap"`
	GeneralCap     int           `mapstructure:"general_cap"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

type Auth struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	JWTIssuer       string `mapstructure:"jwt_issuer"`
	JWTAudience     string `mapstructure:"jwt_audience"`
	TokenQueryParam string `mapstructure:"token_query_param"`
	SessionName     string `mapstructure:"session_name"`
	SessionKey      string `mapstructure:"session_key"`
	// SessionLookup enables session tokens resolved through Redis.
	SessionLookup bool `mapstructure:"session_lookup"`
}

type Oracle struct {
	Type  string     `mapstructure:"type"`
	Rooms []RoomSeed `mapstructure:"rooms"`
}

// RoomSeed preloads the in-memory oracle.
type RoomSeed struct {
	ID           string            `mapstructure:"id"`
	Visibility   string            `mapstructure:"visibility"`
	Active       bool              `mapstructure:"active"`
	Participants []ParticipantSeed `mapstructure:"participants"`
}

type ParticipantSeed struct {
	UserID  string `mapstructure:"user_id"`
	Role    string `mapstructure:"role"`
	HasLeft bool   `mapstructure:"has_left"`
}

type Redis struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type Telemetry struct {
	Sinks        []string `mapstructure:"sinks"`
	Buffer       int      `mapstructure:"buffer"`
	RedisStream  string   `mapstructure:"redis_stream"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
}

type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

const (
	OracleMemory = "memory"
	OracleRedis  = "redis"

	SinkLog   = "log"
	SinkRedis = "redis"
	SinkKafka = "kafka"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("handshake_timeout", "5s")
	v.SetDefault("trust_proxy_headers", false)

	v.SetDefault("limits.attempt_window", "60s")
	v.SetDefault("limits.attempt_cap", 20)
	v.SetDefault("limits.max_per_address", 10)
	v.SetDefault("limits.max_per_identity", 5)
	v.SetDefault("limits.message_window", "10s")
	v.SetDefault("limits.chat_cap", 10)
	v.SetDefault("limits.ice_cap", 30)
	v.SetDefault("limits.general_cap", 50)
	v.SetDefault("limits.sweep_interval", "1m")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "")
	v.SetDefault("auth.jwt_audience", "")
	v.SetDefault("auth.token_query_param", "token")
	v.SetDefault("auth.session_name", "roomrelay")
	v.SetDefault("auth.session_key", "session_token")
	v.SetDefault("auth.session_lookup", false)

	v.SetDefault("oracle.type", OracleMemory)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("telemetry.sinks", []string{SinkLog})
	v.SetDefault("telemetry.buffer", 1024)
	v.SetDefault("telemetry.redis_stream", "roomrelay:abuse")
	v.SetDefault("telemetry.kafka_brokers", []string{})
	v.SetDefault("telemetry.kafka_topic", "roomrelay.abuse")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads config/config.<CONFIG_ENV>.yaml, applies ROOMRELAY_* overrides
// and validates the result.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("ROOMRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Oracle: %s\n", cfg.Mode, cfg.Port, cfg.Oracle.Type)
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Secret == "" {
		errs = append(errs, errors.New("secret is required for the session cookie store"))
	}
	if c.PongWait <= c.PingPeriod {
		errs = append(errs, errors.New("pong_wait must exceed ping_period"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("send_buffer must be positive"))
	}
	if c.Limits.AttemptWindow <= 0 || c.Limits.MessageWindow <= 0 {
		errs = append(errs, errors.New("rate windows must be positive"))
	}
	switch c.Oracle.Type {
	case OracleMemory, OracleRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown oracle type %q", c.Oracle.Type))
	}
	for _, s := range c.Telemetry.Sinks {
		switch s {
		case SinkLog, SinkRedis:
		case SinkKafka:
			if len(c.Telemetry.KafkaBrokers) == 0 {
				errs = append(errs, errors.New("kafka sink needs telemetry.kafka_brokers"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown telemetry sink %q", s))
		}
	}
	return errors.Join(errs...)
}

// UsesRedis reports whether any component needs the Redis client.
func (c *Config) UsesRedis() bool {
	if c.Oracle.Type == OracleRedis || c.Auth.SessionLookup {
		return true
	}
	for _, s := range c.Telemetry.Sinks {
		if s == SinkRedis {
			return true
		}
	}
	return false
}
