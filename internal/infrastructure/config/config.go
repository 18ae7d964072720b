package config

import "time"

// Config holds all configuration for the application
type Config struct {
	Environment       string         `mapstructure:"environment"`
	Server            ServerConfig   `mapstructure:"server"`
	PrimaryDatabase   DatabaseConfig `mapstructure:"primaryDatabase"`
	SecondaryDatabase DatabaseConfig `mapstructure:"secondaryDatabase"`
	Logger            LoggerConfig   `mapstructure:"logger"`
	Lock              LockConfig     `mapstructure:"lock"`
	Resave            ResaveConfig   `mapstructure:"resave"`
	Cache             CacheConfig    `mapstructure:"cache"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"readTimeout"`       // seconds
	WriteTimeout      time.Duration `mapstructure:"writeTimeout"`      // seconds
	IdleTimeout       time.Duration `mapstructure:"idleTimeout"`       // seconds
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"` // seconds
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`   // seconds
}

// DatabaseConfig contains the connection settings of one backing store.
// The secondary store is the legacy system of record kept in sync during
// migration; leave it disabled to run against the primary alone
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslMode"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"` // minutes
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"` // minutes
	LogLevel        string        `mapstructure:"logLevel"`
	RetryAttempts   int           `mapstructure:"retryAttempts"`
	RetryDelay      time.Duration `mapstructure:"retryDelay"` // seconds
}

// LoggerConfig contains logger settings
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	CallerInfo bool   `mapstructure:"callerInfo"`
}

// LockConfig contains registry lock workflow settings
type LockConfig struct {
	VerificationCodeTTL time.Duration `mapstructure:"verificationCodeTtl"` // minutes
}

// ResaveConfig contains resave pipeline settings
type ResaveConfig struct {
	Parallelism int  `mapstructure:"parallelism"`
	ShardSize   int  `mapstructure:"shardSize"`
	Fast        bool `mapstructure:"fast"`
}

// CacheConfig contains read-through cache settings
type CacheConfig struct {
	ResourceTTL time.Duration `mapstructure:"resourceTtl"` // seconds
}
