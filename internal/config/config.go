// Package config loads service settings from an optional config.yaml and
// SOILWATCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "SOILWATCH"

type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	GRPC    GRPCConfig    `mapstructure:"grpc"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Influx  InfluxConfig  `mapstructure:"influx"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	Storage StorageConfig `mapstructure:"storage"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Dedup   DedupConfig   `mapstructure:"dedup"`
	Feed    FeedConfig    `mapstructure:"feed"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
}

type GRPCConfig struct {
	Addr string `mapstructure:"addr"`
}

type MQTTConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	ClientID      string `mapstructure:"client_id"`
	ReadingsTopic string `mapstructure:"readings_topic"`
	AlertTopic    string `mapstructure:"alert_topic"`
}

type InfluxConfig struct {
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token"`
	Org         string `mapstructure:"org"`
	Bucket      string `mapstructure:"bucket"`
	Measurement string `mapstructure:"measurement"`
}

type MySQLConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Addr     string `mapstructure:"addr"`
	DBName   string `mapstructure:"dbname"`
}

type StorageConfig struct {
	Readings     string        `mapstructure:"readings"` // memory | influx
	Alerts       string        `mapstructure:"alerts"`   // memory | mysql
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
}

type BreakerConfig struct {
	Failures uint32        `mapstructure:"failures"`
	OpenFor  time.Duration `mapstructure:"open_for"`
	Interval time.Duration `mapstructure:"interval"`
}

type DedupConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	MaxKeys int           `mapstructure:"max_keys"`
}

type FeedConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	SendBuffer int  `mapstructure:"send_buffer"`
}

const (
	ServiceIngestion = "ingestion"
	ServiceHistory   = "history"
)

var defaultHTTPAddr = map[string]string{
	ServiceIngestion: ":8080",
	ServiceHistory:   ":8081",
}

func setDefaults(v *viper.Viper, service string) {
	addr, ok := defaultHTTPAddr[service]
	if !ok {
		addr = ":8080"
	}
	v.SetDefault("http.addr", addr)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("http.max_page_size", 1000)

	v.SetDefault("grpc.addr", ":50051")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.host", "rabbitmq")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.user", "guest")
	v.SetDefault("mqtt.password", "guest")
	v.SetDefault("mqtt.client_id", "soilwatch-"+service)
	v.SetDefault("mqtt.readings_topic", "sensor/readings/#")
	v.SetDefault("mqtt.alert_topic", "event/alert/{pot}")

	v.SetDefault("influx.url", "http://influxdb:8086")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "soilwatch")
	v.SetDefault("influx.bucket", "readings")
	v.SetDefault("influx.measurement", "pot_reading")

	v.SetDefault("mysql.user", "soilwatch")
	v.SetDefault("mysql.password", "")
	v.SetDefault("mysql.addr", "mysql:3306")
	v.SetDefault("mysql.dbname", "soilwatch")

	v.SetDefault("storage.readings", "memory")
	v.SetDefault("storage.alerts", "memory")
	v.SetDefault("storage.ready_timeout", 30*time.Second)

	v.SetDefault("breaker.failures", 5)
	v.SetDefault("breaker.open_for", 30*time.Second)
	v.SetDefault("breaker.interval", time.Minute)

	v.SetDefault("dedup.ttl", 10*time.Minute)
	v.SetDefault("dedup.max_keys", 10000)

	v.SetDefault("feed.enabled", true)
	v.SetDefault("feed.send_buffer", 256)
}

// Load reads dir/config.yaml when present; a missing file is not an error.
// Every key can be overridden with SOILWATCH_<SECTION>_<KEY>.
func Load(dir, service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		log.Printf("%s: no config file in %q, using defaults and environment", service, dir)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if service == ServiceHistory && cfg.InProcessStorage() {
		return nil, errors.New("history needs shared storage: set storage.readings=influx and storage.alerts=mysql, " +
			"or query the ingestion service, which serves the history API over its memory stores")
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Readings {
	case "memory", "influx":
	default:
		return fmt.Errorf("storage.readings: unknown backend %q", c.Storage.Readings)
	}
	switch c.Storage.Alerts {
	case "memory", "mysql":
	default:
		return fmt.Errorf("storage.alerts: unknown backend %q", c.Storage.Alerts)
	}
	if c.Storage.Readings == "influx" && c.Influx.Token == "" {
		return errors.New("influx.token is required for the influx backend")
	}
	if c.HTTP.MaxPageSize <= 0 {
		return errors.New("http.max_page_size must be positive")
	}
	return nil
}

// InProcessStorage reports whether either store lives in process memory and
// is therefore visible only to the binary that opened it.
func (c *Config) InProcessStorage() bool {
	return c.Storage.Readings == "memory" || c.Storage.Alerts == "memory"
}
