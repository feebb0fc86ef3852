package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// ✅ Redis Config (token/product-id cache; optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ✅ PayPal Keys
	PayPalBaseURL   string
	PayPalClientID  string
	PayPalSecret    string
	PayPalWebhookID string

	// ✅ Kafka Config (donation event fan-out; optional)
	KafkaBrokers string
	KafkaTopic   string

	// ✅ SMTP Config
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SMTPFromName  string
	SMTPFromEmail string
}

// Load reads environment variables and returns a Config object
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file, using environment variables")
	}

	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	baseURL := os.Getenv("PAYPAL_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api-m.sandbox.paypal.com"
	}

	topic := os.Getenv("KAFKA_DONATION_TOPIC")
	if topic == "" {
		topic = "donation-events"
	}

	return &Config{
		Port:        os.Getenv("PORT"),
		Environment: os.Getenv("ENVIRONMENT"),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		PayPalBaseURL:   baseURL,
		PayPalClientID:  os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalSecret:    os.Getenv("PAYPAL_CLIENT_SECRET"),
		PayPalWebhookID: os.Getenv("PAYPAL_WEBHOOK_ID"),

		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:   topic,

		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      os.Getenv("SMTP_PORT"),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SMTPFromName:  os.Getenv("SMTP_FROM_NAME"),
		SMTPFromEmail: os.Getenv("SMTP_FROM_EMAIL"),
	}
}

// IsProduction reports whether the server should redact internal error detail.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
