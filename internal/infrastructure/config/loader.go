package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment constants
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// ConfigPaths defines the paths to look for config files
var ConfigPaths = []string{
	"./configs",
	"../configs",
	"../../configs",
}

// DotEnvPaths defines the paths to look for .env files
var DotEnvPaths = []string{
	".env",
	"./.env",
	"../.env",
	"../../.env",
	"./configs/.env",
	"../configs/.env",
	"../../configs/.env",
}

// LoadConfig loads configuration from file based on the environment
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file first
	if err := loadDotEnvFile(); err != nil {
		fmt.Println("Warning: Could not load .env file:", err)
	}

	env := getEnvironment()

	v := viper.New()
	v.SetConfigName(env)
	v.SetConfigType("yaml")

	for _, path := range ConfigPaths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Set environment variables to override config
	v.SetEnvPrefix("REG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Process environment variable overrides for sensitive values
	processEnvOverrides(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.Environment = env

	processDurations(&config)

	return &config, nil
}

// loadDotEnvFile attempts to load environment variables from .env files
func loadDotEnvFile() error {
	var lastError error

	for _, path := range DotEnvPaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return nil
			} else {
				lastError = err
			}
		}
	}

	if lastError != nil {
		return fmt.Errorf("could not load any .env file: %w", lastError)
	}

	return fmt.Errorf("no .env file found in search paths")
}

// setDefaults sets default values for non-critical configuration
func setDefaults(v *viper.Viper) {
	// Non-critical server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 15)       // seconds
	v.SetDefault("server.writeTimeout", 15)      // seconds
	v.SetDefault("server.idleTimeout", 60)       // seconds
	v.SetDefault("server.readHeaderTimeout", 10) // seconds
	v.SetDefault("server.shutdownTimeout", 10)   // seconds

	// Store defaults for non-sensitive settings
	for _, store := range []string{"primaryDatabase", "secondaryDatabase"} {
		v.SetDefault(store+".port", 5432)
		v.SetDefault(store+".sslMode", "disable")
		v.SetDefault(store+".maxOpenConns", 50)
		v.SetDefault(store+".maxIdleConns", 25)
		v.SetDefault(store+".connMaxLifetime", 30) // minutes
		v.SetDefault(store+".connMaxIdleTime", 15) // minutes
		v.SetDefault(store+".logLevel", "warn")
		v.SetDefault(store+".retryAttempts", 3)
		v.SetDefault(store+".retryDelay", 1) // seconds
	}
	v.SetDefault("primaryDatabase.enabled", true)
	v.SetDefault("secondaryDatabase.enabled", false)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.callerInfo", true)

	// Lock workflow defaults
	v.SetDefault("lock.verificationCodeTtl", 60) // minutes

	// Resave pipeline defaults
	v.SetDefault("resave.parallelism", 4)
	v.SetDefault("resave.shardSize", 500)
	v.SetDefault("resave.fast", false)

	// Cache defaults
	v.SetDefault("cache.resourceTtl", 300) // seconds
}

// getEnvironment determines the environment to use based on REG_ENV
func getEnvironment() string {
	env := os.Getenv("REG_ENV")
	if env == "" {
		env = Development
	}
	return strings.ToLower(env)
}

// processEnvOverrides ensures environment variables override config values
func processEnvOverrides(v *viper.Viper) {
	stores := map[string]string{
		"REG_PRIMARY_DB":   "primaryDatabase",
		"REG_SECONDARY_DB": "secondaryDatabase",
	}

	for prefix, section := range stores {
		if host := os.Getenv(prefix + "_HOST"); host != "" {
			v.Set(section+".host", host)
		}
		if port := getEnvInt(prefix+"_PORT", 0); port > 0 {
			v.Set(section+".port", port)
		}
		if user := os.Getenv(prefix + "_USERNAME"); user != "" {
			v.Set(section+".username", user)
		}
		if pass := os.Getenv(prefix + "_PASSWORD"); pass != "" {
			v.Set(section+".password", pass)
		}
		if name := os.Getenv(prefix + "_NAME"); name != "" {
			v.Set(section+".database", name)
		}
		if sslMode := os.Getenv(prefix + "_SSL_MODE"); sslMode != "" {
			v.Set(section+".sslMode", sslMode)
		}
		if enabled := os.Getenv(prefix + "_ENABLED"); enabled != "" {
			v.Set(section+".enabled", enabled == "true" || enabled == "1")
		}
	}

	// Server settings
	if serverHost := os.Getenv("REG_SERVER_HOST"); serverHost != "" {
		v.Set("server.host", serverHost)
	}
	if serverPort := getEnvInt("REG_SERVER_PORT", 0); serverPort > 0 {
		v.Set("server.port", serverPort)
	}

	// Logger settings
	if logLevel := os.Getenv("REG_LOGGER_LEVEL"); logLevel != "" {
		v.Set("logger.level", logLevel)
	}

	// Lock workflow settings
	if ttl := getEnvInt("REG_LOCK_VERIFICATION_CODE_TTL_MINUTES", 0); ttl > 0 {
		v.Set("lock.verificationCodeTtl", ttl)
	}

	// Resave pipeline settings
	if parallelism := getEnvInt("REG_RESAVE_PARALLELISM", 0); parallelism > 0 {
		v.Set("resave.parallelism", parallelism)
	}
	if shardSize := getEnvInt("REG_RESAVE_SHARD_SIZE", 0); shardSize > 0 {
		v.Set("resave.shardSize", shardSize)
	}
}

// Helper function to get environment variable as int
func getEnvInt(name string, defaultVal int) int {
	valStr := os.Getenv(name)
	if valStr == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

// processDurations converts duration fields from their raw numeric values
func processDurations(config *Config) {
	// Seconds
	config.Server.ReadTimeout = time.Duration(config.Server.ReadTimeout) * time.Second
	config.Server.WriteTimeout = time.Duration(config.Server.WriteTimeout) * time.Second
	config.Server.IdleTimeout = time.Duration(config.Server.IdleTimeout) * time.Second
	config.Server.ReadHeaderTimeout = time.Duration(config.Server.ReadHeaderTimeout) * time.Second
	config.Server.ShutdownTimeout = time.Duration(config.Server.ShutdownTimeout) * time.Second
	config.Cache.ResourceTTL = time.Duration(config.Cache.ResourceTTL) * time.Second

	// Minutes
	config.Lock.VerificationCodeTTL = time.Duration(config.Lock.VerificationCodeTTL) * time.Minute

	for _, db := range []*DatabaseConfig{&config.PrimaryDatabase, &config.SecondaryDatabase} {
		db.ConnMaxLifetime = time.Duration(db.ConnMaxLifetime) * time.Minute
		db.ConnMaxIdleTime = time.Duration(db.ConnMaxIdleTime) * time.Minute
		db.RetryDelay = time.Duration(db.RetryDelay) * time.Second
	}
}
