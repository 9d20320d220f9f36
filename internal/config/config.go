// Package config loads runtime settings from configs/config.yml and RELAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "RELAY"

// Transport kinds.
const (
	TransportTCP    = "tcp"
	TransportSerial = "serial"
)

type Config struct {
	Port     string
	DBPath   string
	LogLevel string

	SigningKey string

	Relay      RelayConfig
	Dispatcher DispatcherConfig
	MQTT       MQTTConfig
}

type RelayConfig struct {
	Transport    string
	Host         string
	Port         int
	SerialPort   string
	Baud         int
	PollInterval time.Duration
	SendTimeout  time.Duration
	Debug        bool
	AutoOff      bool
	AutoOffTime  int
	OnIcon       string
	OffIcon      string
}

// Addr is the host:port the TCP transport dials.
func (r RelayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type DispatcherConfig struct {
	Workers int
	Queue   int
}

// MQTTConfig enables the MQTT bridge when Broker is set.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

func (m MQTTConfig) Enabled() bool { return m.Broker != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "app.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.signing_key", "")

	v.SetDefault("relay.transport", TransportTCP)
	v.SetDefault("relay.host", "")
	v.SetDefault("relay.port", 23)
	v.SetDefault("relay.serial_port", "")
	v.SetDefault("relay.baud", 9600)
	v.SetDefault("relay.poll_interval", 60*time.Second)
	v.SetDefault("relay.send_timeout", 5*time.Second)
	v.SetDefault("relay.debug", false)
	v.SetDefault("relay.auto_off", true)
	v.SetDefault("relay.auto_off_time", 30)
	v.SetDefault("relay.on_icon", "")
	v.SetDefault("relay.off_icon", "")

	v.SetDefault("dispatcher.workers", 4)
	v.SetDefault("dispatcher.queue", 64)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "controlling-relay")
	v.SetDefault("mqtt.topic_prefix", "relay")
}

// Load reads config.yml from dirs (first match wins). A missing file is not
// an error: defaults and environment variables still apply.
func Load(dirs ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Port:       v.GetString("port"),
		DBPath:     v.GetString("db.path"),
		LogLevel:   v.GetString("log.level"),
		SigningKey: v.GetString("auth.signing_key"),
		Relay: RelayConfig{
			Transport:    strings.ToLower(strings.TrimSpace(v.GetString("relay.transport"))),
			Host:         v.GetString("relay.host"),
			Port:         v.GetInt("relay.port"),
			SerialPort:   v.GetString("relay.serial_port"),
			Baud:         v.GetInt("relay.baud"),
			PollInterval: v.GetDuration("relay.poll_interval"),
			SendTimeout:  v.GetDuration("relay.send_timeout"),
			Debug:        v.GetBool("relay.debug"),
			AutoOff:      v.GetBool("relay.auto_off"),
			AutoOffTime:  v.GetInt("relay.auto_off_time"),
			OnIcon:       v.GetString("relay.on_icon"),
			OffIcon:      v.GetString("relay.off_icon"),
		},
		Dispatcher: DispatcherConfig{
			Workers: v.GetInt("dispatcher.workers"),
			Queue:   v.GetInt("dispatcher.queue"),
		},
		MQTT: MQTTConfig{
			Broker:      v.GetString("mqtt.broker"),
			ClientID:    v.GetString("mqtt.client_id"),
			TopicPrefix: strings.Trim(v.GetString("mqtt.topic_prefix"), "/"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings the process cannot start without.
func (c Config) Validate() error {
	switch c.Relay.Transport {
	case TransportTCP:
		if c.Relay.Host == "" {
			return errors.New("relay.host is required for the tcp transport")
		}
		if c.Relay.Port <= 0 || c.Relay.Port > 65535 {
			return fmt.Errorf("relay.port %d is out of range", c.Relay.Port)
		}
	case TransportSerial:
		if c.Relay.SerialPort == "" {
			return errors.New("relay.serial_port is required for the serial transport")
		}
		if c.Relay.Baud <= 0 {
			return fmt.Errorf("relay.baud %d must be positive", c.Relay.Baud)
		}
	default:
		return fmt.Errorf("relay.transport %q is not one of tcp, serial", c.Relay.Transport)
	}
	if c.Relay.AutoOffTime < 0 || c.Relay.AutoOffTime > 1440 {
		return fmt.Errorf("relay.auto_off_time %d is outside 0..1440", c.Relay.AutoOffTime)
	}
	if c.Relay.PollInterval <= 0 {
		return fmt.Errorf("relay.poll_interval %s must be positive", c.Relay.PollInterval)
	}
	return nil
}
