package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	PublicBaseURL     string `mapstructure:"PUBLIC_BASE_URL"`

	// Mongo configuration.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr            string `mapstructure:"REDIS_ADDR"`
	RedisPassword        string `mapstructure:"REDIS_PASSWORD"`
	RedisDraftDB         int    `mapstructure:"REDIS_DRAFT_DB"`
	RedisVerifyDB        int    `mapstructure:"REDIS_VERIFY_DB"`
	RedisLockDB          int    `mapstructure:"REDIS_LOCK_DB"`
	RedisReminderQueueDB int    `mapstructure:"REDIS_REMINDER_QUEUE_DB"`

	// Draft / verification lifecycle.
	DraftTTLMin          int `mapstructure:"DRAFT_TTL_MIN"`
	VerifyRequestTTLMin  int `mapstructure:"VERIFY_REQUEST_TTL_MIN"`
	VerifyPollIntervalMS int `mapstructure:"VERIFY_POLL_INTERVAL_MS"`
	VerifyPollTimeoutMin int `mapstructure:"VERIFY_POLL_TIMEOUT_MIN"`

	// Google OAuth (popup verification channel).
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`

	// Out-of-band verification channels.
	TelegramBotName string `mapstructure:"TELEGRAM_BOT_NAME"`
	SMSGatewayURL   string `mapstructure:"SMS_GATEWAY_URL"`

	// Payments.
	StripeKey        string  `mapstructure:"STRIPE_KEY"`
	PayPalBaseURL    string  `mapstructure:"PAYPAL_BASE_URL"`
	PayPalClientID   string  `mapstructure:"PAYPAL_CLIENT_ID"`
	PayPalSecret     string  `mapstructure:"PAYPAL_SECRET"`
	PaymentCurrency  string  `mapstructure:"PAYMENT_CURRENCY"`
	DefaultBasePrice float64 `mapstructure:"DEFAULT_BASE_PRICE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "salonflow")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DRAFT_DB", 0)
	viper.SetDefault("REDIS_VERIFY_DB", 1)
	viper.SetDefault("REDIS_LOCK_DB", 2)
	viper.SetDefault("REDIS_REMINDER_QUEUE_DB", 3)
	viper.SetDefault("DRAFT_TTL_MIN", 30)
	viper.SetDefault("VERIFY_REQUEST_TTL_MIN", 15)
	viper.SetDefault("VERIFY_POLL_INTERVAL_MS", 2000)
	viper.SetDefault("VERIFY_POLL_TIMEOUT_MIN", 10)
	viper.SetDefault("PAYMENT_CURRENCY", "eur")
	viper.SetDefault("DEFAULT_BASE_PRICE", 35.0)
	viper.SetDefault("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
