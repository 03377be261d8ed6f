package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Server struct {
	AppPort          string   `env:"APP_PORT" envDefault:"8080"`
	SQLiteDSN        string   `env:"SQLITE_DSN" envDefault:"./donasi.db"`
	HMACSecret       string   `env:"HMAC_SECRET"`
	SigMaxAgeSeconds int64    `env:"SIG_MAX_AGE_SECONDS" envDefault:"300"`
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	LogLevel         string   `env:"LOG_LEVEL" envDefault:"info"`

	// Upstream QRIS gateway
	CashifyBaseURL    string   `env:"CASHIFY_BASE_URL" envDefault:"https://cashify.my.id"`
	CashifyLicenseKey string   `env:"CASHIFY_LICENSE_KEY"`
	QRISID            string   `env:"QRIS_ID"`
	PackageIDs        []string `env:"QRIS_PACKAGE_IDS" envSeparator:"," envDefault:"id.dana"`
	UseUniqueCode     bool     `env:"QRIS_USE_UNIQUE_CODE" envDefault:"true"`
	ExpiredMinutes    int      `env:"QRIS_EXPIRED_MINUTES" envDefault:"10"`

	// Paid hook
	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic       string   `env:"KAFKA_TOPIC" envDefault:"donation.paid"`
	TelegramBotToken string   `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string   `env:"TELEGRAM_CHAT_ID"`
}

type Client struct {
	APIURL     string   `env:"DONASI_API_URL" envDefault:"http://localhost:8080"`
	PageURL    string   `env:"DONASI_PAGE_URL" envDefault:"http://localhost:3000/donasi"`
	HMACSecret string   `env:"HMAC_SECRET"`
	QRISID     string   `env:"QRIS_ID"`
	PackageIDs []string `env:"QRIS_PACKAGE_IDS" envSeparator:"," envDefault:"id.dana"`
	LogLevel   string   `env:"LOG_LEVEL" envDefault:"warn"`

	CacheBackend string        `env:"CACHE_BACKEND" envDefault:"sqlite"`
	CacheDSN     string        `env:"CACHE_DSN" envDefault:"~/.donasi/cache.db"`
	RedisAddr    string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisTTL     time.Duration `env:"REDIS_TTL" envDefault:"24h"`

	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	QRImageBaseURL string        `env:"QR_IMAGE_BASE_URL" envDefault:"https://larabert-qrgen.hf.space/v1/create-qr-code"`
	Presets        []int64       `env:"DONATION_PRESETS" envSeparator:"," envDefault:"10000,25000,50000,100000"`
}

func LoadServer() (*Server, error) {
	_ = godotenv.Load()

	cfg := &Server{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ExpiredMinutes <= 0 {
		cfg.ExpiredMinutes = int(DefaultExpiry / time.Minute)
	}
	return cfg, nil
}

func LoadClient() (*Client, error) {
	_ = godotenv.Load()

	cfg := &Client{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = PollInterval
	}
	if len(cfg.Presets) == 0 {
		cfg.Presets = DonationPresets
	}
	return cfg, nil
}

// SignatureMaxAge is the accepted clock skew for signed requests.
func (c *Server) SignatureMaxAge() time.Duration {
	return time.Duration(c.SigMaxAgeSeconds) * time.Second
}
