package modem

import (
	"log/slog"
	"time"

	"i4.energy/across/sim868/at"
)

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

type Config struct {
	Dialer Dialer
	Power  Power
	Clock  Clock
	Logger *slog.Logger

	// ATTimeout is the collection window of commands without their own.
	ATTimeout time.Duration
	// PollInterval is the collector's sleep between empty polls.
	PollInterval time.Duration

	APN string

	// Strict aborts fixed command sequences at the first failed step and
	// terminates the HTTP context when an upload prompt never arrives.
	Strict bool

	// StartupAttempts bounds Startup. Zero retries forever.
	StartupAttempts int
	// RegistrationAttempts is the number of AT+CGREG? polls.
	RegistrationAttempts int
	// SMSSubmitTimeout is how long the submit acknowledgement is collected.
	SMSSubmitTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.Power == nil {
		c.Power = nopPower{}
	}
	if c.Clock == nil {
		c.Clock = SystemClock()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ATTimeout == 0 {
		c.ATTimeout = at.DefaultTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.APN == "" {
		c.APN = "CMNET"
	}
	if c.RegistrationAttempts == 0 {
		c.RegistrationAttempts = 3
	}
	if c.SMSSubmitTimeout == 0 {
		c.SMSSubmitTimeout = 5 * time.Second
	}
}

// ConfigBuilder assembles a Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder starts an empty Config.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

func (b *ConfigBuilder) WithPower(p Power) *ConfigBuilder {
	b.config.Power = p
	return b
}

func (b *ConfigBuilder) WithClock(c Clock) *ConfigBuilder {
	b.config.Clock = c
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

func (b *ConfigBuilder) WithATTimeout(d time.Duration) *ConfigBuilder {
	b.config.ATTimeout = d
	return b
}

func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.config.PollInterval = d
	return b
}

func (b *ConfigBuilder) WithAPN(apn string) *ConfigBuilder {
	b.config.APN = apn
	return b
}

func (b *ConfigBuilder) WithStrict(strict bool) *ConfigBuilder {
	b.config.Strict = strict
	return b
}

func (b *ConfigBuilder) WithStartupAttempts(n int) *ConfigBuilder {
	b.config.StartupAttempts = n
	return b
}

func (b *ConfigBuilder) WithRegistrationAttempts(n int) *ConfigBuilder {
	b.config.RegistrationAttempts = n
	return b
}

func (b *ConfigBuilder) WithSMSSubmitTimeout(d time.Duration) *ConfigBuilder {
	b.config.SMSSubmitTimeout = d
	return b
}

// Build validates the configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}
