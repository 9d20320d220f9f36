package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := writeConfig(t, `
port: "9090"
relay:
  host: 10.0.0.7
  poll_interval: 30s
  auto_off_time: 45
mqtt:
  broker: tcp://broker:1883
  topic_prefix: /home/relay/
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.DBPath != "app.db" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected top-level config %+v", cfg)
	}
	if cfg.Relay.Addr() != "10.0.0.7:23" {
		t.Fatalf("addr = %q", cfg.Relay.Addr())
	}
	if cfg.Relay.PollInterval != 30*time.Second || cfg.Relay.SendTimeout != 5*time.Second {
		t.Fatalf("durations = %s/%s", cfg.Relay.PollInterval, cfg.Relay.SendTimeout)
	}
	if !cfg.Relay.AutoOff || cfg.Relay.AutoOffTime != 45 {
		t.Fatalf("auto-off = %v/%d", cfg.Relay.AutoOff, cfg.Relay.AutoOffTime)
	}
	if cfg.Dispatcher.Workers != 4 || cfg.Dispatcher.Queue != 64 {
		t.Fatalf("dispatcher = %+v", cfg.Dispatcher)
	}
	if !cfg.MQTT.Enabled() || cfg.MQTT.TopicPrefix != "home/relay" {
		t.Fatalf("mqtt = %+v", cfg.MQTT)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := writeConfig(t, "relay:\n  host: relay.local\n")
	t.Setenv("RELAY_RELAY_PORT", "2323")
	t.Setenv("RELAY_RELAY_AUTO_OFF", "false")
	t.Setenv("RELAY_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Relay.Port != 2323 || cfg.Relay.AutoOff || cfg.LogLevel != "debug" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("RELAY_RELAY_HOST", "192.168.1.50")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Relay.Host != "192.168.1.50" || cfg.MQTT.Enabled() {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{Relay: RelayConfig{Transport: TransportTCP, Host: "h", Port: 23, AutoOffTime: 30, PollInterval: time.Minute}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(c *Config){
		"no host":        func(c *Config) { c.Relay.Host = "" },
		"bad port":       func(c *Config) { c.Relay.Port = 70000 },
		"bad transport":  func(c *Config) { c.Relay.Transport = "udp" },
		"serial no path": func(c *Config) { c.Relay.Transport = TransportSerial; c.Relay.Baud = 9600 },
		"auto-off range": func(c *Config) { c.Relay.AutoOffTime = 1441 },
		"zero poll":      func(c *Config) { c.Relay.PollInterval = 0 },
	}
	for name, mutate := range cases {
		c := valid
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
