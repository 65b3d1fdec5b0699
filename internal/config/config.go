package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	ListenAddr    string `mapstructure:"LISTEN_ADDR"`
	TokenTTLHours int    `mapstructure:"TOKEN_TTL_HOURS"`
}

var AppConfig *Config

// LoadConfig loads the configuration from a .env file and environment variables.
func LoadConfig() {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetDefault("LISTEN_ADDR", ":8080")
	viper.SetDefault("TOKEN_TTL_HOURS", 24*7)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("Warning: .env file not found, loading from environment variables")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}
	if AppConfig.JWTSecret == "" {
		log.Println("Warning: JWT_SECRET is not set")
	}
}
