// Package config loads the shared configuration file for the venue
// daemons. Every key can be overridden through the environment with a
// VENUE_ prefix, e.g. VENUE_ORDER_SERVICE_DSN.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the merged configuration for all three daemons. Each daemon
// reads only its own section plus the bus settings.
type Config struct {
	Bus struct {
		URL            string        `mapstructure:"url"`
		ConnectRetries int           `mapstructure:"connect_retries"`
		RetryDelay     time.Duration `mapstructure:"retry_delay"`
	} `mapstructure:"bus"`

	Match struct {
		OrderServiceURL  string        `mapstructure:"order_service_url"`
		RequestTimeout   time.Duration `mapstructure:"request_timeout"`
		SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
		DepthLevels      int           `mapstructure:"depth_levels"`
		EventBuffer      int           `mapstructure:"event_buffer"`
	} `mapstructure:"match"`

	OrderService struct {
		ListenAddr string `mapstructure:"listen_addr"`
		DSN        string `mapstructure:"dsn"`
	} `mapstructure:"order_service"`

	SocketService struct {
		ListenAddr string `mapstructure:"listen_addr"`
	} `mapstructure:"socket_service"`
}

// Load reads the named config file (without extension) from ./config or
// the working directory. A missing file is not an error; defaults and
// environment overrides still apply.
func Load(name string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VENUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("bus.url", "nats://127.0.0.1:4222")
	v.SetDefault("bus.connect_retries", 10)
	v.SetDefault("bus.retry_delay", 5*time.Second)
	v.SetDefault("match.order_service_url", "http://127.0.0.1:8000")
	v.SetDefault("match.request_timeout", 10*time.Second)
	v.SetDefault("match.snapshot_interval", time.Second)
	v.SetDefault("match.depth_levels", 5)
	v.SetDefault("match.event_buffer", 8192)
	v.SetDefault("order_service.listen_addr", ":8000")
	v.SetDefault("order_service.dsn", "venue:venue@tcp(127.0.0.1:3306)/venue?parseTime=true")
	v.SetDefault("socket_service.listen_addr", ":8001")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
