package crashkit

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config selects the active sink and the reporting policy. Construct one
// explicitly (or through FromEnv) at application startup and pass it to
// NewNotifier; the library keeps no global configuration and never mutates a
// Config, so a value is safe for concurrent reads. Tests construct a fresh
// Config per test instead of resetting shared state.
type Config struct {
	// Sink names the registered sink to activate. Empty selects "noop".
	Sink string

	// Environment is the name of the running environment, e.g. development
	// or production.
	Environment string

	// EnabledEnvironments lists the environments in which events are
	// actually delivered. An empty list enables every environment; outside
	// the list the noop sink is substituted and only diagnostic rendering
	// remains active.
	EnabledEnvironments []string `validate:"dive,required"`

	// TraceFilter keeps only stack frames containing this substring in
	// diagnostic output. A filter matching no frames falls back to the full
	// trace.
	TraceFilter string

	// Diagnostic turns on the human-readable rendering of every notify.
	Diagnostic bool

	// DSN configures sinks that deliver to a hosted reporting service.
	DSN string `validate:"omitempty,url"`

	// Release is forwarded to sinks that tag events with a version.
	Release string

	// Telegram configures the telegram alert sink.
	Telegram TelegramConfig
}

// TelegramConfig holds the credentials for the telegram alert sink.
type TelegramConfig struct {
	Token  string
	ChatID int64
}

var validate = validator.New()

// Validate checks the field constraints. NewNotifier calls it before
// resolving the sink, so a malformed Config fails at startup.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// SinkName returns the effective sink identifier.
func (c Config) SinkName() string {
	if c.Sink == "" {
		return "noop"
	}
	return c.Sink
}

// EnvironmentEnabled reports whether the configured environment may deliver
// events. An empty EnabledEnvironments list enables every environment.
func (c Config) EnvironmentEnabled() bool {
	if len(c.EnabledEnvironments) == 0 {
		return true
	}
	return slices.Contains(c.EnabledEnvironments, c.Environment)
}

// FromEnv reads configuration from CRASHKIT_* environment variables and an
// optional .env file in the working directory.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	var c Config
	c.Sink = getenv("CRASHKIT_SINK", "noop")
	c.Environment = getenv("CRASHKIT_ENVIRONMENT", "development")
	if v := os.Getenv("CRASHKIT_ENABLED_ENVS"); v != "" {
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				c.EnabledEnvironments = append(c.EnabledEnvironments, e)
			}
		}
	}
	c.TraceFilter = os.Getenv("CRASHKIT_TRACE_FILTER")
	c.Diagnostic, _ = strconv.ParseBool(getenv("CRASHKIT_DIAGNOSTIC", "false"))
	c.DSN = os.Getenv("CRASHKIT_DSN")
	c.Release = os.Getenv("CRASHKIT_RELEASE")
	c.Telegram.Token = os.Getenv("CRASHKIT_TELEGRAM_TOKEN")
	if v := os.Getenv("CRASHKIT_TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("CRASHKIT_TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
