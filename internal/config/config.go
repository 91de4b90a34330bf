package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Database bootstrap strategies
const (
	BootstrapEager = "eager"
	BootstrapLazy  = "lazy"
)

// Config holds all configuration for the application
type Config struct {
	DB     DatabaseConfig
	App    AppConfig
	CORS   CORSConfig
	Mail   MailConfig
	Logger LoggerConfig
}

// DatabaseConfig holds configuration for the database
type DatabaseConfig struct {
	Driver          string `mapstructure:"DB_DRIVER"`
	Host            string `mapstructure:"DB_HOST"`
	Port            string `mapstructure:"DB_PORT"`
	User            string `mapstructure:"DB_USER"`
	Password        string `mapstructure:"DB_PASSWORD"`
	Name            string `mapstructure:"DB_NAME"`
	SSLMode         string `mapstructure:"DB_SSLMODE"`
	MaxOpenConns    int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `mapstructure:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime int    `mapstructure:"DB_CONN_MAX_IDLE_TIME"`
	Bootstrap       string `mapstructure:"DB_BOOTSTRAP"`
}

// AppConfig holds configuration for the application server
type AppConfig struct {
	Environment            string `mapstructure:"APP_ENV"`
	HTTPPort               string `mapstructure:"HTTP_PORT"`
	ShutdownTimeoutSeconds int    `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
	BcryptCost             int    `mapstructure:"BCRYPT_COST"`
}

// CORSConfig holds the cross-origin policy
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// MailConfig holds SMTP relay settings for the welcome email
type MailConfig struct {
	Host           string `mapstructure:"EMAIL_HOST"`
	Port           int    `mapstructure:"EMAIL_PORT"`
	User           string `mapstructure:"EMAIL_USER"`
	Password       string `mapstructure:"EMAIL_PASSWORD"`
	From           string `mapstructure:"EMAIL_FROM"`
	FromName       string `mapstructure:"EMAIL_FROM_NAME"`
	TimeoutSeconds int    `mapstructure:"EMAIL_TIMEOUT_SECONDS"`
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level            string  `mapstructure:"LOG_LEVEL"`
	Format           string  `mapstructure:"LOG_FORMAT"`
	OutputPath       string  `mapstructure:"LOG_OUTPUT_PATH"`
	SlowQuerySeconds float64 `mapstructure:"LOG_SLOW_QUERY_SECONDS"`
	EnableSampling   bool    `mapstructure:"LOG_ENABLE_SAMPLING"`
	ServiceName      string  `mapstructure:"SERVICE_NAME"`
	ServiceVersion   string  `mapstructure:"SERVICE_VERSION"`
}

// LoadConfig reads configuration from app.env in path, a .env file in path,
// and the process environment. Environment variables win.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app") // Look for app.env
	v.SetConfigType("env")

	v.AutomaticEnv()
	// NODE_ENV is honoured for deployments that still export it.
	if err := v.BindEnv("APP_ENV", "APP_ENV", "NODE_ENV"); err != nil {
		return nil, fmt.Errorf("failed to bind APP_ENV: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setDefaults(v)

	var config Config

	config.App.Environment = v.GetString("APP_ENV")
	config.App.HTTPPort = v.GetString("HTTP_PORT")
	config.App.ShutdownTimeoutSeconds = v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")
	config.App.BcryptCost = v.GetInt("BCRYPT_COST")

	config.DB.Driver = strings.ToLower(v.GetString("DB_DRIVER"))
	config.DB.Host = v.GetString("DB_HOST")
	config.DB.Port = v.GetString("DB_PORT")
	config.DB.User = v.GetString("DB_USER")
	config.DB.Password = v.GetString("DB_PASSWORD")
	config.DB.Name = v.GetString("DB_NAME")
	config.DB.SSLMode = v.GetString("DB_SSLMODE")
	config.DB.MaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	config.DB.MaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")
	config.DB.ConnMaxLifetime = v.GetInt("DB_CONN_MAX_LIFETIME")
	config.DB.ConnMaxIdleTime = v.GetInt("DB_CONN_MAX_IDLE_TIME")
	config.DB.Bootstrap = strings.ToLower(v.GetString("DB_BOOTSTRAP"))

	config.CORS.AllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))

	config.Mail.Host = v.GetString("EMAIL_HOST")
	config.Mail.Port = v.GetInt("EMAIL_PORT")
	config.Mail.User = v.GetString("EMAIL_USER")
	config.Mail.Password = v.GetString("EMAIL_PASSWORD")
	config.Mail.From = v.GetString("EMAIL_FROM")
	config.Mail.FromName = v.GetString("EMAIL_FROM_NAME")
	config.Mail.TimeoutSeconds = v.GetInt("EMAIL_TIMEOUT_SECONDS")

	config.Logger.Level = v.GetString("LOG_LEVEL")
	config.Logger.Format = v.GetString("LOG_FORMAT")
	config.Logger.OutputPath = v.GetString("LOG_OUTPUT_PATH")
	config.Logger.SlowQuerySeconds = v.GetFloat64("LOG_SLOW_QUERY_SECONDS")
	config.Logger.EnableSampling = v.GetBool("LOG_ENABLE_SAMPLING")
	config.Logger.ServiceName = v.GetString("SERVICE_NAME")
	config.Logger.ServiceVersion = v.GetString("SERVICE_VERSION")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "3000")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)
	v.SetDefault("BCRYPT_COST", 10)

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "registration")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 60)
	v.SetDefault("DB_BOOTSTRAP", BootstrapEager)

	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173,https://registration-two-amber.vercel.app")

	v.SetDefault("EMAIL_PORT", 587)
	v.SetDefault("EMAIL_FROM_NAME", "I Work Team")
	v.SetDefault("EMAIL_TIMEOUT_SECONDS", 15)

	// Logger defaults depend on the environment; only development is verbose
	if v.GetString("APP_ENV") == "development" {
		v.SetDefault("LOG_LEVEL", "debug")
		v.SetDefault("LOG_FORMAT", "console")
		v.SetDefault("LOG_ENABLE_SAMPLING", false)
	} else {
		v.SetDefault("LOG_LEVEL", "info")
		v.SetDefault("LOG_FORMAT", "json")
		v.SetDefault("LOG_ENABLE_SAMPLING", true)
	}
	v.SetDefault("LOG_OUTPUT_PATH", "stdout")
	v.SetDefault("LOG_SLOW_QUERY_SECONDS", 0.2)
	v.SetDefault("SERVICE_NAME", "registration-service")
	v.SetDefault("SERVICE_VERSION", "1.0.0")
}

// splitList splits a comma separated value and drops empty items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks the configuration for values the application cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver))
	}

	switch c.DB.Bootstrap {
	case BootstrapEager, BootstrapLazy:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_BOOTSTRAP %q", c.DB.Bootstrap))
	}

	if _, err := strconv.Atoi(c.App.HTTPPort); err != nil {
		errs = append(errs, fmt.Errorf("HTTP_PORT must be numeric, got %q", c.App.HTTPPort))
	}

	if c.App.ShutdownTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT_SECONDS must be positive"))
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must list at least one origin"))
	}

	if c.Mail.Host == "" {
		errs = append(errs, errors.New("EMAIL_HOST is required"))
	}

	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		errs = append(errs, fmt.Errorf("EMAIL_PORT out of range: %d", c.Mail.Port))
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether verbose error logging should be enabled.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// DSN returns the Data Source Name for the configured driver
func (c *DatabaseConfig) DSN() string {
	switch c.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Name)
	case DriverSQLite:
		return c.Name
	default:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
	}
}
