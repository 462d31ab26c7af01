package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config carries every process-level setting. Values come from the
// environment; mains load a .env file first for local development.
type Config struct {
	// HTTP server
	Port string

	// Database
	DBPath string

	// Email
	EmailDomain   string
	PostmarkToken string

	// Outbox worker
	OutboxPollInterval time.Duration

	// AMQP (optional; empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:   getEnv("PORT", "8080"),
		DBPath: getEnv("WTMM_DB_PATH", "./data/wtmm.db"),

		EmailDomain:   getEnv("EMAIL_DOMAIN", "whotookmy.money"),
		PostmarkToken: getEnv("POSTMARK_TOKEN", ""),

		OutboxPollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", 10*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "wtmm"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "purchase_events"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	} else {
		dir := filepath.Dir(c.DBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.EmailDomain == "" {
		errors = append(errors, "email domain cannot be empty")
	}

	if c.OutboxPollInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid outbox poll interval %v: must be at least 1 second", c.OutboxPollInterval))
	} else if c.OutboxPollInterval > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid outbox poll interval %v: must be at most 1 hour", c.OutboxPollInterval))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Sender returns the from-address for a mailbox on our email domain.
func (c *Config) Sender(mailbox string) string {
	return mailbox + "@" + c.EmailDomain
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
