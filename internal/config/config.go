package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// WhatsApp Cloud API
	WhatsAppToken string
	PhoneNumberID string
	VerifyToken   string

	// Exports
	PublicBaseURL string
	ExportDir     string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Recurring fee job
	BillingDay       int
	FeeCheckInterval time.Duration

	// Behavior
	Timezone   string
	SessionTTL time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/contabilidad.db"),

		WhatsAppToken: getEnv("WHATSAPP_TOKEN", ""),
		PhoneNumberID: getEnv("PHONE_NUMBER_ID", ""),
		VerifyToken:   getEnv("VERIFY_TOKEN", ""),

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8082"),
		ExportDir:     getEnv("EXPORT_DIR", "./data/exports"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "contabilidad"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "movements_posted"),

		BillingDay:       getEnvInt("BILLING_DAY", 1),
		FeeCheckInterval: getEnvDuration("FEE_CHECK_INTERVAL", time.Hour),

		Timezone:   getEnv("TIMEZONE", "Europe/Madrid"),
		SessionTTL: getEnvDuration("SESSION_TTL", 10*time.Minute),
	}

	return cfg
}

// Validate validates the full configuration for the webhook binary,
// including the HTTP and WhatsApp surface, and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.VerifyToken == "" {
		errors = append(errors, "VERIFY_TOKEN is required for the webhook handshake")
	}

	if c.WhatsAppToken != "" && c.PhoneNumberID == "" {
		errors = append(errors, "PHONE_NUMBER_ID is required when WHATSAPP_TOKEN is provided")
	}

	errors = append(errors, c.sharedErrors()...)
	return joinValidationErrors(errors)
}

// ValidateWorker validates only the settings the non-HTTP binaries read; the
// webhook secret and WhatsApp credentials stay out of it.
func (c *Config) ValidateWorker() error {
	return joinValidationErrors(c.sharedErrors())
}

func (c *Config) sharedErrors() []string {
	var errors []string

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	if c.BillingDay < 1 || c.BillingDay > 28 {
		errors = append(errors, fmt.Sprintf("invalid billing day %d: must be between 1 and 28", c.BillingDay))
	}

	if c.FeeCheckInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid fee check interval %v: must be at least 1 minute", c.FeeCheckInterval))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	return errors
}

func joinValidationErrors(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Location resolves the configured operator timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
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
