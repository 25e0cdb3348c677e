package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Admin       AdminConfig
	Certificate CertificateConfig
	Storage     StorageConfig
	Log         LogConfig
	Tracing     TracingConfig   `mapstructure:"tracing"`
	CORS        CORSConfig      `mapstructure:"cors"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	MigrateOnly bool   `mapstructure:"-"` // 仅迁移模式（迁移+种子数据后退出）
	ConfigFile  string `mapstructure:"-"` // 实际加载的配置文件路径，供热更新监听
}

type ServerConfig struct {
	Port      string
	Mode      string
	SecretKey string `mapstructure:"secret_key"`
	AdminBase string `mapstructure:"admin_base"`
}

type DatabaseConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Charset  string
	Seed     bool
}

type AdminConfig struct {
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"`
	// 登录接口限流：每个IP在窗口内的最大尝试次数
	LoginAttempts      int `mapstructure:"login_attempts"`
	LoginWindowMinutes int `mapstructure:"login_window_minutes"`
}

type CertificateConfig struct {
	Store          bool   `mapstructure:"store"`
	Dir            string `mapstructure:"dir"`
	LogPath        string `mapstructure:"log_path"`
	LogoPath       string `mapstructure:"logo_path"`
	SignaturePath  string `mapstructure:"signature_path"`
	Signatory      string `mapstructure:"signatory"`
	SignatoryTitle string `mapstructure:"signatory_title"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioSecure   bool   `mapstructure:"minio_secure"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.admin_base", "/controlpanel")
	v.SetDefault("server.secret_key", "change-me-in-render-env")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/app.db")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.seed", true)

	v.SetDefault("admin.login_attempts", 10)
	v.SetDefault("admin.login_window_minutes", 5)

	v.SetDefault("certificate.store", true)
	v.SetDefault("certificate.dir", "certificates")
	v.SetDefault("certificate.log_path", "data/certificates_log.xlsx")
	v.SetDefault("certificate.signatory", "Chad Riley")
	v.SetDefault("certificate.signatory_title", "Authorized Signature")

	v.SetDefault("storage.type", "local")
	v.SetDefault("log.file", "logs/app.log")

	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)
}

// LoadConfig 读取 path 目录下的 config.yaml，环境变量优先。
// 配置文件不存在时仅使用默认值与环境变量。
func LoadConfig(path string) (*Config, error) {
	// 本地开发时从 .env 注入环境变量，已存在的环境变量不会被覆盖
	_ = godotenv.Load(filepath.Join(path, "..", ".env"))

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("QUIZCERT")
	v.AutomaticEnv()
	setDefaults(v)

	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.secret_key", "SECRET_KEY")
	v.BindEnv("server.admin_base", "ADMIN_BASE")

	// Admin
	v.BindEnv("admin.password", "ADMIN_PASSWORD")
	v.BindEnv("admin.password_hash", "ADMIN_PASSWORD_HASH")

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// Certificate
	v.BindEnv("certificate.dir", "CERT_DIR")
	v.BindEnv("certificate.log_path", "CERT_LOG_PATH")
	v.BindEnv("certificate.logo_path", "CERT_LOGO_PATH")
	v.BindEnv("certificate.signature_path", "CERT_SIGNATURE_PATH")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Log
	v.BindEnv("log.file", "LOG_FILE")
	v.BindEnv("log.level", "LOG_LEVEL")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" && cfg.Certificate.Store {
		if _, err := os.Stat(cfg.Certificate.Dir); os.IsNotExist(err) {
			os.MkdirAll(cfg.Certificate.Dir, 0755)
		}
	}

	return &cfg, nil
}

// Validate 校验生产环境下的关键配置
func (c *Config) Validate() error {
	if c.Certificate.Store && c.Certificate.Dir == "" && c.Storage.Type == "local" {
		return fmt.Errorf("certificate.dir is required when certificate.store is enabled")
	}

	if c.Server.Mode != "release" {
		return nil
	}

	if len(c.Server.SecretKey) < 32 {
		return fmt.Errorf("secret key is too short (%d chars), must be at least 32 characters in release mode", len(c.Server.SecretKey))
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return fmt.Errorf("admin password or password hash must be configured in release mode")
	}
	return nil
}
