package config

import "github.com/spf13/viper"

// Config holds application level configuration read from the environment.
type Config struct {
	AppPort        string
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string
	JWTSecret      string
	RabbitMQURL    string // empty disables event publishing
}

// Load reads configuration from environment variables with defaults.
// JWTSecret has no default on purpose: a deployment that performs
// mutations must configure one, and main treats its absence as fatal.
func Load() Config {
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_DSN", "data/microblog.db")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.AutomaticEnv()

	return Config{
		AppPort:        viper.GetString("APP_PORT"),
		DatabaseDriver: viper.GetString("DATABASE_DRIVER"),
		DatabaseDSN:    viper.GetString("DATABASE_DSN"),
		JWTSecret:      viper.GetString("JWT_SECRET"),
		RabbitMQURL:    viper.GetString("RABBITMQ_URL"),
	}
}
