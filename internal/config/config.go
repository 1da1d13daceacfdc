package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for entry attachments.
type MinIOConfig struct {
	Endpoint         string
	AccessKey        string
	SecretKey        string
	Bucket           string
	UseSSL           bool
	PresignExpirySec int
}

// AppConfig is the centralized configuration struct for the application.
type AppConfig struct {
	AppHost  string
	Port     string
	Location *time.Location
	LogLevel string
	// ErrorMode selects what controllers do with failures: "propagate" or "discard".
	ErrorMode           string
	MetricsPasswordFile string
	Database            DatabaseConfig
	MinIO               MinIOConfig
}

// PresignExpiry returns the lifetime of generated attachment URLs.
func (c MinIOConfig) PresignExpiry() time.Duration {
	return time.Duration(c.PresignExpirySec) * time.Second
}

// Load reads configuration from defaults, an optional file named by CONFIG_FILE,
// and environment variables, in increasing order of precedence.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	loc, err := time.LoadLocation(v.GetString("tz_location"))
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_LOCATION: %w", err)
	}

	mode := strings.ToLower(v.GetString("controller_error_mode"))
	if mode != "propagate" && mode != "discard" {
		return nil, fmt.Errorf("invalid CONTROLLER_ERROR_MODE %q: want propagate or discard", mode)
	}

	return &AppConfig{
		AppHost:             v.GetString("app_host"),
		Port:                v.GetString("port"),
		Location:            loc,
		LogLevel:            v.GetString("log_level"),
		ErrorMode:           mode,
		MetricsPasswordFile: v.GetString("metrics_password_file"),
		Database: DatabaseConfig{
			Host:               v.GetString("db_host"),
			Port:               v.GetString("db_port"),
			User:               v.GetString("db_user"),
			Password:           v.GetString("db_password"),
			Name:               v.GetString("db_name"),
			SSLMode:            v.GetString("db_sslmode"),
			MaxOpenConns:       v.GetInt("db_max_open_conns"),
			MaxIdleConns:       v.GetInt("db_max_idle_conns"),
			ConnMaxLifetimeSec: v.GetInt("db_conn_max_lifetime_sec"),
		},
		MinIO: MinIOConfig{
			Endpoint:         v.GetString("minio_endpoint"),
			AccessKey:        v.GetString("minio_access_key"),
			SecretKey:        v.GetString("minio_secret_key"),
			Bucket:           v.GetString("minio_bucket"),
			UseSSL:           v.GetBool("minio_use_ssl"),
			PresignExpirySec: v.GetInt("minio_presign_expiry_sec"),
		},
	}, nil
}

// Only non-sensitive values get a default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("config_file", "")
	v.SetDefault("app_host", "")
	v.SetDefault("port", "8080")
	v.SetDefault("tz_location", "UTC")
	v.SetDefault("log_level", "info")
	v.SetDefault("controller_error_mode", "propagate")
	v.SetDefault("metrics_password_file", "")

	v.SetDefault("db_host", "")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_max_open_conns", 10)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime_sec", 300)

	v.SetDefault("minio_endpoint", "")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_bucket", "")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("minio_presign_expiry_sec", 900)
}
