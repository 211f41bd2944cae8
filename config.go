package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the control server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `yaml:"bind_address"`
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyS0")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the baud rate for serial communication with the modem (e.g. 115200)
	BaudRate int `yaml:"baud_rate"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`

	// APN is the access point used for GPRS and the HTTP bearer
	APN string `yaml:"apn"`
	// Strict aborts command sequences at the first failed step
	Strict bool `yaml:"strict"`
	// StartupAttempts bounds the startup probe; zero retries forever
	StartupAttempts int `yaml:"startup_attempts"`

	// PowerPin is the GPIO wired to the modem's power key; negative disables it
	PowerPin int `yaml:"power_pin"`
	// LEDPin is the GPIO of the status LED; negative disables it
	LEDPin int `yaml:"led_pin"`
	// GPIORoot is the sysfs GPIO directory
	GPIORoot string `yaml:"gpio_root"`

	HTTPGetURL  string `yaml:"http_get_url"`
	HTTPPostURL string `yaml:"http_post_url"`
	ContentType string `yaml:"content_type"`
	PostPayload string `yaml:"post_payload"`

	PhoneNumber  string        `yaml:"phone_number"`
	SMSText      string        `yaml:"sms_text"`
	CallDuration time.Duration `yaml:"call_duration"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyS0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.APN = "CMNET"
		c.PowerPin = 14
		c.LEDPin = 25
		c.ContentType = "application/x-www-form-urlencoded"
		c.PhoneNumber = "10000"
		c.CallDuration = 10 * time.Second
		return nil
	}
}

// WithFile loads configuration from a YAML file. A missing file is not an
// error; fields absent from the file keep their current values.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		setString(&c.BindAddress, os.Getenv("BIND_ADDRESS"))
		setString(&c.SerialPort, os.Getenv("SERIAL_PORT"))
		setInt(&c.BaudRate, os.Getenv("BAUD_RATE"))
		setString(&c.LogLevel, os.Getenv("LOG_LEVEL"))
		setString(&c.APN, os.Getenv("APN"))
		setBool(&c.Strict, os.Getenv("STRICT"))
		setInt(&c.StartupAttempts, os.Getenv("STARTUP_ATTEMPTS"))
		setInt(&c.PowerPin, os.Getenv("POWER_PIN"))
		setInt(&c.LEDPin, os.Getenv("LED_PIN"))
		setString(&c.GPIORoot, os.Getenv("GPIO_ROOT"))
		setString(&c.HTTPGetURL, os.Getenv("HTTP_GET_URL"))
		setString(&c.HTTPPostURL, os.Getenv("HTTP_POST_URL"))
		setString(&c.ContentType, os.Getenv("CONTENT_TYPE"))
		setString(&c.PostPayload, os.Getenv("POST_PAYLOAD"))
		setString(&c.PhoneNumber, os.Getenv("PHONE_NUMBER"))
		setString(&c.SMSText, os.Getenv("SMS_TEXT"))
		setDuration(&c.CallDuration, os.Getenv("CALL_DURATION"))
		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			v := f.Value.String()
			switch f.Name {
			case "bind-address":
				c.BindAddress = v
			case "serial-port":
				c.SerialPort = v
			case "baud-rate":
				setInt(&c.BaudRate, v)
			case "log-level":
				c.LogLevel = v
			case "apn":
				c.APN = v
			case "strict":
				setBool(&c.Strict, v)
			case "startup-attempts":
				setInt(&c.StartupAttempts, v)
			case "power-pin":
				setInt(&c.PowerPin, v)
			case "led-pin":
				setInt(&c.LEDPin, v)
			case "url":
				c.HTTPGetURL = v
				c.HTTPPostURL = v
			case "number":
				c.PhoneNumber = v
			case "text":
				c.SMSText = v
			case "payload":
				c.PostPayload = v
			case "call-duration":
				setDuration(&c.CallDuration, v)
			}
		})
		return nil
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v string) {
	if i, err := strconv.Atoi(v); err == nil {
		*dst = i
	}
}

func setBool(dst *bool, v string) {
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

func setDuration(dst *time.Duration, v string) {
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
