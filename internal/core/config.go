package core

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

// OperationConfig holds default parameters for one operation. Every key
// besides name is passed to the operation's factory.
type OperationConfig struct {
	Name   string         `yaml:"name" validate:"required"`
	Params map[string]any `yaml:",inline"`
}

type ServiceConfig struct {
	Port           int               `yaml:"port" validate:"min=1,max=65535"`
	LogLevel       string            `yaml:"logLevel" validate:"oneof=debug info warn error"`
	LogFormat      string            `yaml:"logFormat" validate:"oneof=text json"`
	MaxUploadBytes int64             `yaml:"maxUploadBytes" validate:"gt=0"`
	Workers        int               `yaml:"workers" validate:"gte=0"`
	RequestTimeout time.Duration     `yaml:"requestTimeout" validate:"gte=0"`
	Operations     []OperationConfig `yaml:"operations" validate:"dive"`
}

// DefaultConfig returns the configuration used for keys missing from the
// YAML file.
func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Port:           8080,
		LogLevel:       "info",
		LogFormat:      "text",
		MaxUploadBytes: 32 << 20,
		Workers:        0,
		RequestTimeout: 60 * time.Second,
	}
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML over the defaults so missing keys keep their default value
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return config, nil
}

// Validate checks field ranges and the operation defaults.
func (c *ServiceConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if err := validateOperations(c.Operations); err != nil {
		return fmt.Errorf("invalid operation configuration: %w", err)
	}
	return nil
}

// OperationDefaults returns the configured default parameters keyed by
// operation name.
func (c *ServiceConfig) OperationDefaults() map[string]map[string]any {
	defaults := make(map[string]map[string]any, len(c.Operations))
	for _, op := range c.Operations {
		defaults[op.Name] = op.Params
	}
	return defaults
}

// validateOperations ensures all operation configurations have required fields
func validateOperations(operations []OperationConfig) error {
	seenNames := make(map[string]bool)

	for i, op := range operations {
		// Validate name is not empty
		if op.Name == "" {
			return fmt.Errorf("operation at index %d has empty name", i)
		}

		// Validate name is unique
		if seenNames[op.Name] {
			return fmt.Errorf("duplicate operation name: %s", op.Name)
		}
		seenNames[op.Name] = true
	}

	return nil
}
