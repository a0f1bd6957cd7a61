/**
 * @description
 * This file handles the configuration management for the banking-service.
 * It uses the Viper library to read settings from environment variables or a .env file.
 *
 * @dependencies
 * - github.com/spf13/viper: For configuration management.
 */
package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Dwolla environments accepted by ValidateDwollaEnvironment.
const (
	DwollaEnvSandbox    = "sandbox"
	DwollaEnvProduction = "production"
)

// Config stores all configuration for the application.
type Config struct {
	DatabaseURL      string `mapstructure:"DATABASE_URL"`
	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"`
	RedisURL         string `mapstructure:"REDIS_URL"`
	PlaidClientID    string `mapstructure:"PLAID_CLIENT_ID"`
	PlaidSecret      string `mapstructure:"PLAID_SECRET"`
	PlaidBaseURL     string `mapstructure:"PLAID_BASE_URL"`
	DwollaEnv        string `mapstructure:"DWOLLA_ENV"`
	DwollaKey        string `mapstructure:"DWOLLA_KEY"`
	DwollaSecret     string `mapstructure:"DWOLLA_SECRET"`
	SessionJWTSecret string `mapstructure:"SESSION_JWT_SECRET"`
	ServerPort       string `mapstructure:"SERVER_PORT"`
}

// DwollaBaseURL resolves the Dwolla API base URL for the configured environment.
func (c *Config) DwollaBaseURL() string {
	if c.DwollaEnv == DwollaEnvProduction {
		return "https://api.dwolla.com"
	}
	return "https://api-sandbox.dwolla.com"
}

// ValidateDwollaEnvironment ensures DWOLLA_ENV is one of the two values the
// payment-rail provider accepts. Anything else is a deployment mistake and the
// process must not start with it.
func (c *Config) ValidateDwollaEnvironment() error {
	switch c.DwollaEnv {
	case DwollaEnvSandbox, DwollaEnvProduction:
		return nil
	default:
		return fmt.Errorf("dwolla environment should either be set to %q or %q, got %q", DwollaEnvSandbox, DwollaEnvProduction, c.DwollaEnv)
	}
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("PLAID_BASE_URL", "https://sandbox.plaid.com")
	viper.SetDefault("DWOLLA_ENV", DwollaEnvSandbox)

	// Bind envs explicitly so containers pick them up reliably
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("PLAID_CLIENT_ID")
	_ = viper.BindEnv("PLAID_SECRET")
	_ = viper.BindEnv("PLAID_BASE_URL")
	_ = viper.BindEnv("DWOLLA_ENV")
	_ = viper.BindEnv("DWOLLA_KEY")
	_ = viper.BindEnv("DWOLLA_SECRET")
	_ = viper.BindEnv("SESSION_JWT_SECRET")
	_ = viper.BindEnv("SERVER_PORT")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Error reading config file: %s", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
