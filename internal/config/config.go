// backend-go/internal/config/config.go
package config

import (
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	App            AppConfig
	Cache          CacheConfig
	Invoices       InvoiceConfig
	Reconciliation ReconciliationConfig
	Storage        StorageConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogFormat      string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// AppConfig holds settings for the import CLI.
type AppConfig struct {
	ImportDir string
}

type CacheConfig struct {
	Enabled             bool
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	BreakdownTTLSeconds int
	RatesTTLSeconds     int
}

// InvoiceConfig drives the invoice fetch chain and KPI folds.
type InvoiceConfig struct {
	// Sources is the ordered list of candidate relations, newest schema first.
	Sources             []string
	MaxRows             int
	DefaultPageSize     int
	TransitRatioWarning float64
	TopClientsLimit     int
}

type ReconciliationConfig struct {
	MinMarginRatePct float64
	MinMarginAmount  float64
}

// StorageConfig points at the S3-compatible bucket used by the import CLI.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults(viper.GetViper())

		// Read from environment variables
		viper.AutomaticEnv()

		instance = fromViper(viper.GetViper())
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_LOG_FORMAT", "console")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "exportops")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_IMPORT_DIR", "./data/imports")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_BREAKDOWN_TTL_SECONDS", 60)
	v.SetDefault("CACHE_RATES_TTL_SECONDS", 3600)
	v.SetDefault("INVOICE_SOURCES", []string{"v_export_invoices_enriched", "invoices"})
	v.SetDefault("INVOICE_MAX_ROWS", 5000)
	v.SetDefault("INVOICE_DEFAULT_PAGE_SIZE", 50)
	v.SetDefault("INVOICE_TRANSIT_RATIO_WARNING", 0.35)
	v.SetDefault("INVOICE_TOP_CLIENTS_LIMIT", 12)
	v.SetDefault("RECON_MIN_MARGIN_RATE_PCT", 5.0)
	v.SetDefault("RECON_MIN_MARGIN_AMOUNT", 50.0)
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			LogFormat:      v.GetString("SERVER_LOG_FORMAT"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			URL:      v.GetString("DATABASE_URL"),
		},
		App: AppConfig{
			ImportDir: v.GetString("APP_IMPORT_DIR"),
		},
		Cache: CacheConfig{
			Enabled:             v.GetBool("CACHE_ENABLED"),
			RedisURL:            v.GetString("REDIS_URL"),
			RedisHost:           v.GetString("REDIS_HOST"),
			RedisPort:           v.GetString("REDIS_PORT"),
			RedisPassword:       v.GetString("REDIS_PASSWORD"),
			RedisDB:             v.GetInt("REDIS_DB"),
			BreakdownTTLSeconds: v.GetInt("CACHE_BREAKDOWN_TTL_SECONDS"),
			RatesTTLSeconds:     v.GetInt("CACHE_RATES_TTL_SECONDS"),
		},
		Invoices: InvoiceConfig{
			Sources:             splitList(v.GetStringSlice("INVOICE_SOURCES")),
			MaxRows:             v.GetInt("INVOICE_MAX_ROWS"),
			DefaultPageSize:     v.GetInt("INVOICE_DEFAULT_PAGE_SIZE"),
			TransitRatioWarning: v.GetFloat64("INVOICE_TRANSIT_RATIO_WARNING"),
			TopClientsLimit:     v.GetInt("INVOICE_TOP_CLIENTS_LIMIT"),
		},
		Reconciliation: ReconciliationConfig{
			MinMarginRatePct: v.GetFloat64("RECON_MIN_MARGIN_RATE_PCT"),
			MinMarginAmount:  v.GetFloat64("RECON_MIN_MARGIN_AMOUNT"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
	}
}

// splitList flattens comma-separated env values ("a,b") into a clean slice.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
