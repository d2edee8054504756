/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the renewal service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort              string `mapstructure:"SERVER_PORT"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	RedisURL                string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix    string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL             string `mapstructure:"RABBITMQ_URL"`
	ActivityEventExchange   string `mapstructure:"ACTIVITY_EVENT_EXCHANGE"`
	AuthTokenSecret         string `mapstructure:"AUTH_TOKEN_SECRET"`
	DefaultUserID           int64  `mapstructure:"DEFAULT_USER_ID"`
	DBMaxConns              int    `mapstructure:"DB_MAX_CONNS"`
	DBConnectTimeoutSeconds int    `mapstructure:"DB_CONNECT_TIMEOUT_SECONDS"`
	WriteRateLimitPerMinute int    `mapstructure:"WRITE_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "recurr:rate_limit")
	viper.SetDefault("ACTIVITY_EVENT_EXCHANGE", "renewal_events")
	viper.SetDefault("DEFAULT_USER_ID", 1)
	viper.SetDefault("DB_MAX_CONNS", 5)
	viper.SetDefault("DB_CONNECT_TIMEOUT_SECONDS", 3)
	viper.SetDefault("WRITE_RATE_LIMIT_PER_MINUTE", 120)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("ACTIVITY_EVENT_EXCHANGE")
	_ = viper.BindEnv("AUTH_TOKEN_SECRET")
	_ = viper.BindEnv("DEFAULT_USER_ID")
	_ = viper.BindEnv("DB_MAX_CONNS")
	_ = viper.BindEnv("DB_CONNECT_TIMEOUT_SECONDS")
	_ = viper.BindEnv("WRITE_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// Platform-provided PORT wins over the configured server port.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "recurr:rate_limit"
	}
	config.ActivityEventExchange = strings.TrimSpace(config.ActivityEventExchange)
	if config.ActivityEventExchange == "" {
		config.ActivityEventExchange = "renewal_events"
	}

	if config.DefaultUserID <= 0 {
		log.Printf("level=warn component=config msg=\"invalid DEFAULT_USER_ID; using 1\" value=%d", config.DefaultUserID)
		config.DefaultUserID = 1
	}
	if config.DBMaxConns <= 0 {
		config.DBMaxConns = 5
	}
	if config.DBConnectTimeoutSeconds <= 0 {
		config.DBConnectTimeoutSeconds = 3
	}
	if config.WriteRateLimitPerMinute <= 0 {
		config.WriteRateLimitPerMinute = 120
	}

	return
}
