package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"whatrack/models"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type PricingConfig struct {
	Marketing      float64 `json:"marketing"`
	Utility        float64 `json:"utility"`
	Authentication float64 `json:"authentication"`
}

type Config struct {
	Environment           string        `json:"environment"`
	EncryptionKey         string        `json:"-"`
	ServerPort            string        `json:"server_port"`
	MetricsPort           string        `json:"metrics_port"`
	DBHost                string        `json:"db_host"`
	DBPort                string        `json:"db_port"`
	DBUser                string        `json:"db_user"`
	DBPassword            string        `json:"-"`
	DBName                string        `json:"db_name"`
	DBSSLMode             string        `json:"db_ssl_mode"`
	DBMaxIdleConns        int           `json:"db_max_idle_conns"`
	DBMaxOpenConns        int           `json:"db_max_open_conns"`
	StripeSecretKey       string        `json:"-"`
	StripeWebhookSecret   string        `json:"-"`
	DeliveryWebhookSecret string        `json:"-"`
	SentryDSN             string        `json:"sentry_dsn"`
	Pricing               PricingConfig `json:"pricing"`
	GraphAPIBaseURL       string        `json:"graph_api_base_url"`
	GraphAPITimeout       time.Duration `json:"graph_api_timeout"`
	CampaignBatchSize     int           `json:"campaign_batch_size"`
	CampaignBatchDelay    time.Duration `json:"campaign_batch_delay"`
	RateLimitSingleSend   int           `json:"rate_limit_single_send"`
	Redis                 RedisConfig   `json:"redis"`
	SMTPHost              string        `json:"smtp_host"`
	SMTPPort              string        `json:"smtp_port"`
	SMTPUsername          string        `json:"smtp_username"`
	SMTPPassword          string        `json:"-"`
	FromEmail             string        `json:"from_email"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		MetricsPort:    getEnv("METRICS_PORT", "9091"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "whatrack"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		DeliveryWebhookSecret: getEnv("DELIVERY_WEBHOOK_SECRET", ""),
		SentryDSN:           getEnv("SENTRY_DSN", ""),

		Pricing: PricingConfig{
			Marketing:      getEnvAsFloat("PRICE_MARKETING", 0.95),
			Utility:        getEnvAsFloat("PRICE_UTILITY", 0.45),
			Authentication: getEnvAsFloat("PRICE_AUTHENTICATION", 0.40),
		},

		GraphAPIBaseURL:     getEnv("META_GRAPH_API_BASE_URL", "https://graph.facebook.com/v19.0"),
		GraphAPITimeout:     time.Duration(getEnvAsInt("META_GRAPH_API_TIMEOUT_SECONDS", 30)) * time.Second,
		CampaignBatchSize:   getEnvAsInt("CAMPAIGN_BATCH_SIZE", 50),
		CampaignBatchDelay:  time.Duration(getEnvAsInt("CAMPAIGN_BATCH_DELAY_MS", 1000)) * time.Millisecond,
		RateLimitSingleSend: getEnvAsInt("RATE_LIMIT_SINGLE_SEND", 30),

		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "billing@whatrack.app"),
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if AppConfig.Environment == "production" {
		if AppConfig.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required in production")
		}
		if AppConfig.StripeWebhookSecret == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required in production")
		}
	}
	if AppConfig.CampaignBatchSize <= 0 {
		return fmt.Errorf("CAMPAIGN_BATCH_SIZE must be positive")
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("✅ Successfully connected to the database")
	log.Println("🔄 Starting database migration...")
	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Pricing (per message): marketing=%.2f utility=%.2f auth=%.2f",
		AppConfig.Pricing.Marketing,
		AppConfig.Pricing.Utility,
		AppConfig.Pricing.Authentication)
	log.Printf("Campaign batches: size=%d delay=%s",
		AppConfig.CampaignBatchSize,
		AppConfig.CampaignBatchDelay)
}

func migrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Organization{},
		&models.WhatsAppConnection{},
		&models.WhatsAppTemplate{},
		&models.Campaign{},
		&models.CampaignRecipient{},
		&models.CampaignCredits{},
		&models.CampaignCreditTransaction{},
	)
}
