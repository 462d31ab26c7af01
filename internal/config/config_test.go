package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.EmailDomain != "whotookmy.money" {
		t.Errorf("EmailDomain = %q, want whotookmy.money", cfg.EmailDomain)
	}
	if cfg.OutboxPollInterval != 10*time.Second {
		t.Errorf("OutboxPollInterval = %v, want 10s", cfg.OutboxPollInterval)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OUTBOX_POLL_INTERVAL", "30s")
	t.Setenv("EMAIL_DOMAIN", "example.test")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.OutboxPollInterval != 30*time.Second {
		t.Errorf("OutboxPollInterval = %v, want 30s", cfg.OutboxPollInterval)
	}
	if cfg.EmailDomain != "example.test" {
		t.Errorf("EmailDomain = %q, want example.test", cfg.EmailDomain)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:               "8080",
			DBPath:             "./wtmm.db",
			EmailDomain:        "example.test",
			OutboxPollInterval: 10 * time.Second,
			LogLevel:           "info",
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config should pass: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Port = "nope" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid port"},
		{"empty db path", func(c *Config) { c.DBPath = "" }, "database path"},
		{"empty domain", func(c *Config) { c.EmailDomain = "" }, "email domain"},
		{"poll interval too short", func(c *Config) { c.OutboxPollInterval = 100 * time.Millisecond }, "poll interval"},
		{"bad amqp scheme", func(c *Config) { c.AMQPURL = "http://localhost" }, "AMQP URL scheme"},
		{"amqp without queue", func(c *Config) { c.AMQPURL = "amqp://localhost"; c.AMQPQueue = "" }, "queue name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSender(t *testing.T) {
	cfg := &Config{EmailDomain: "example.test"}
	if got := cfg.Sender("alerts"); got != "alerts@example.test" {
		t.Errorf("Sender = %q, want alerts@example.test", got)
	}
}
