// Package config holds the application configuration, loaded from an
// optional YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	RDP      RDPConfig      `yaml:"rdp"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds gateway server configuration
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// RDPConfig holds RDP session configuration
type RDPConfig struct {
	BufferSize int           `yaml:"bufferSize"`
	Timeout    time.Duration `yaml:"timeout"`
}

// SecurityConfig holds the per-session security transform configuration
type SecurityConfig struct {
	// EncryptionMethod selects the security envelope: "none", "standard"
	// or "fips".
	EncryptionMethod string `yaml:"encryptionMethod"`

	// SecureChecksum selects the salted MAC variant when encrypting.
	SecureChecksum bool `yaml:"secureChecksum"`

	// StrictMACValidation aborts the packet on a standard-mode MAC
	// mismatch. Off by default: lenient validation is required for
	// interoperability with peers that produce invalid signatures.
	StrictMACValidation bool `yaml:"strictMACValidation"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         "8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		RDP: RDPConfig{
			BufferSize: 64 * 1024,
			Timeout:    10 * time.Second,
		},
		Security: SecurityConfig{
			EncryptionMethod: "none",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path when
// non-empty, and finally environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Host, "SERVER_HOST")
	setString(&c.Server.Port, "SERVER_PORT")
	setInt(&c.RDP.BufferSize, "RDP_BUFFER_SIZE")
	setDuration(&c.RDP.Timeout, "RDP_TIMEOUT")
	setString(&c.Security.EncryptionMethod, "RDP_ENCRYPTION_METHOD")
	setBool(&c.Security.SecureChecksum, "RDP_SECURE_CHECKSUM")
	setBool(&c.Security.StrictMACValidation, "RDP_STRICT_MAC")
	setString(&c.Logging.Level, "LOG_LEVEL")
}

func (c *Config) validate() error {
	switch c.Security.EncryptionMethod {
	case "none", "standard", "fips":
	default:
		return fmt.Errorf("invalid encryption method %q", c.Security.EncryptionMethod)
	}

	if c.RDP.BufferSize <= 0 {
		return fmt.Errorf("invalid buffer size %d", c.RDP.BufferSize)
	}

	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
