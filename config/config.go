package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "NEXUSMART_CONFIG_FILE"
	envPrefix         = "NEXUSMART"
)

type HTTP struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BodyLimit    int64         `mapstructure:"body_limit"`
}

type Metrics struct {
	Addr string `mapstructure:"addr"`
}

type Database struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

type Redis struct {
	Addr           string        `mapstructure:"addr"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

type Kafka struct {
	Brokers    []string `mapstructure:"brokers"`
	OrderTopic string   `mapstructure:"order_topic"`
	GroupID    string   `mapstructure:"group_id"`
}

type Auth struct {
	AccessTokenSecret string `mapstructure:"access_token_secret"`
}

type Telemetry struct {
	Enabled        bool   `mapstructure:"enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceVersion string `mapstructure:"service_version"`
}

type Email struct {
	ServiceURL string `mapstructure:"service_url"`
	Addr       string `mapstructure:"addr"`
}

type Migrations struct {
	Path string `mapstructure:"path"`
}

type Config struct {
	Env        string     `mapstructure:"env"`
	LogLevel   string     `mapstructure:"log_level"`
	HTTP       HTTP       `mapstructure:"http"`
	Metrics    Metrics    `mapstructure:"metrics"`
	Database   Database   `mapstructure:"database"`
	Redis      Redis      `mapstructure:"redis"`
	Kafka      Kafka      `mapstructure:"kafka"`
	Auth       Auth       `mapstructure:"auth"`
	Telemetry  Telemetry  `mapstructure:"telemetry"`
	Email      Email      `mapstructure:"email"`
	Migrations Migrations `mapstructure:"migrations"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.body_limit", 16<<10)
	v.SetDefault("metrics.addr", ":9464")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.idempotency_ttl", 24*time.Hour)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.order_topic", "order.placed")
	v.SetDefault("kafka.group_id", "order-notifier")
	v.SetDefault("auth.access_token_secret", "")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_version", "0.1.0")
	v.SetDefault("email.service_url", "")
	v.SetDefault("email.addr", ":8084")
	v.SetDefault("migrations.path", "file://migrations")
}

// Parse builds the configuration from defaults, an optional config file and
// NEXUSMART_* environment variables, in increasing precedence. It returns the
// positional arguments left after flag parsing.
func Parse(args []string) (Config, []string, error) {
	flags := pflag.NewFlagSet("nexusmart", pflag.ContinueOnError)
	configFile := flags.String("config", "", "config file")
	if err := flags.Parse(args); err != nil {
		return Config{}, nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := configFilepath(*configFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, flags.Args(), nil
}

// Load parses the process arguments and exits on failure.
func Load() (Config, []string) {
	cfg, args, err := Parse(os.Args[1:])
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(2)
	}
	return cfg, args
}

func configFilepath(flagValue string) string {
	if env, ok := os.LookupEnv(configFileEnvName); ok {
		return env
	}
	return flagValue
}
