package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/exp/slices"
)

var ErrConfiguration = errors.New("invalid configuration")

type Config struct {
	Host     string        `env:"ALARM_IP,notEmpty"`
	Port     string        `env:"ALARM_PORT"        envDefault:"9009"`
	Password string        `env:"ALARM_PASS,notEmpty"`
	Timeout  time.Duration `env:"ALARM_TIMEOUT"     envDefault:"5s"`

	Broker         string        `env:"MQTT_BROKER,notEmpty"`
	BrokerPort     int           `env:"MQTT_PORT"            envDefault:"1883"`
	Username       string        `env:"MQTT_USER"`
	BrokerPassword string        `env:"MQTT_PASS"`
	ClientID       string        `env:"MQTT_CLIENT_ID"       envDefault:"intelbras-alarm"`
	TopicPrefix    string        `env:"MQTT_TOPIC_PREFIX"    envDefault:"intelbras/alarm"`
	QoS            byte          `env:"MQTT_QOS"             envDefault:"1"`
	ConnectTimeout time.Duration `env:"MQTT_CONNECT_TIMEOUT" envDefault:"30s"`

	PollInterval    int           `env:"POLL_INTERVAL"     envDefault:"5"`
	PanicClearAfter time.Duration `env:"PANIC_CLEAR_AFTER" envDefault:"30s"`
	ShutdownGrace   time.Duration `env:"SHUTDOWN_GRACE"    envDefault:"1s"`
	Zones           []int         `env:"ZONES"`

	Receptor       string `env:"RECEPTORIP_BIN"    envDefault:"/alarme-intelbras/receptorip"`
	ReceptorConfig string `env:"RECEPTORIP_CONFIG" envDefault:"/alarme-intelbras/config.cfg"`

	MetricsAddress string `env:"METRICS_LISTEN"`
	Debug          bool   `env:"DEBUG"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf(
			"%w: %s",
			ErrConfiguration,
			strings.TrimPrefix(strings.ReplaceAll(err.Error(), "; ", "\n"), "env: "),
		)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	cfg.Zones = cfg.zones()
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive, got %d", c.PollInterval))
	}
	if c.QoS > 2 {
		errs = append(errs, fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.QoS))
	}
	if c.PanicClearAfter <= 0 {
		errs = append(errs, fmt.Errorf("PANIC_CLEAR_AFTER must be positive, got %s", c.PanicClearAfter))
	}
	for _, z := range c.Zones {
		if z < 1 || z > 64 {
			errs = append(errs, fmt.Errorf("ZONES: invalid zone %d", z))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func (c Config) pollInterval() time.Duration {
	return time.Duration(c.PollInterval) * time.Minute
}

// zones returns the configured zones sorted and without duplicates.
func (c Config) zones() []int {
	zones := slices.Clone(c.Zones)
	slices.Sort(zones)
	return slices.Compact(zones)
}
