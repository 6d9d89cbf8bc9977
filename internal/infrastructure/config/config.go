package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	once     sync.Once
	instance *Config
)

// Config holds all application configuration
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Storage StorageConfig `mapstructure:"storage"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
	CORS    CORSConfig    `mapstructure:"cors"`
}

type AppConfig struct {
	Name          string `mapstructure:"name"`
	Env           string `mapstructure:"env"`
	Debug         bool   `mapstructure:"debug"`
	DefaultRegion string `mapstructure:"default_region"` // phone number region, e.g. "IN"
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AuthTimeout     time.Duration `mapstructure:"auth_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ReportTimeout   time.Duration `mapstructure:"report_timeout"`
}

type MongoDBConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
	MinPoolSize    uint64        `mapstructure:"min_pool_size"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
	CookieName     string        `mapstructure:"cookie_name"`
}

// StorageConfig configures the S3-compatible bucket holding order item images.
// An empty Bucket disables uploads.
type StorageConfig struct {
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	PresignTTL      time.Duration `mapstructure:"presign_ttl"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

type CacheConfig struct {
	DashboardTTL time.Duration `mapstructure:"dashboard_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// Initialize sets up Viper with default configuration paths and environment bindings
func Initialize() error {
	// .env is optional and only feeds the environment
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/millboard")
	viper.AddConfigPath("$HOME/.millboard")

	viper.SetEnvPrefix("MILLBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

const defaultJWTSecret = "change-this-secret-in-production"

func setDefaults() {
	viper.SetDefault("app.name", "millboard")
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.default_region", "IN")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.auth_timeout", "3s")
	viper.SetDefault("server.request_timeout", "10s")
	viper.SetDefault("server.report_timeout", "15s")

	viper.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongodb.database", "millboard")
	viper.SetDefault("mongodb.max_pool_size", 50)
	viper.SetDefault("mongodb.min_pool_size", 5)
	viper.SetDefault("mongodb.connect_timeout", "10s")

	viper.SetDefault("jwt.secret", defaultJWTSecret)
	viper.SetDefault("jwt.access_token_ttl", "12h")
	viper.SetDefault("jwt.issuer", "millboard")
	viper.SetDefault("jwt.cookie_name", "token")

	viper.SetDefault("storage.region", "ap-south-1")
	viper.SetDefault("storage.bucket", "")
	viper.SetDefault("storage.presign_ttl", "15m")
	viper.SetDefault("storage.max_upload_bytes", 5<<20)

	viper.SetDefault("cache.dashboard_ttl", "30s")

	viper.SetDefault("logging.level", "debug")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.output", "stdout")

	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type", "X-Request-ID"})
}

// Load returns the singleton config instance
func Load() (*Config, error) {
	var err error
	once.Do(func() {
		if err = Initialize(); err != nil {
			return
		}
		cfg := &Config{}
		if err = viper.Unmarshal(cfg); err != nil {
			err = fmt.Errorf("failed to unmarshal config: %w", err)
			return
		}
		if err = cfg.Validate(); err != nil {
			return
		}
		instance = cfg
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// GetAddress returns the server address string
func (c *Config) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.IsProduction() && c.JWT.Secret == defaultJWTSecret {
		return fmt.Errorf("jwt.secret must be changed in production")
	}
	if c.JWT.AccessTokenTTL <= 0 {
		return fmt.Errorf("jwt.access_token_ttl must be positive")
	}
	if c.Storage.Bucket != "" && c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("storage.max_upload_bytes must be positive")
	}
	return nil
}
