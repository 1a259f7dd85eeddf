package utils

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Booking  BookingConfig
	Payment  PaymentConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	JWT      JWTConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

// BookingConfig drives seat holds, sessions and pricing. Money is in minor units.
type BookingConfig struct {
	HoldTTL            time.Duration
	PaymentTimeout     time.Duration
	SweepInterval      time.Duration
	TerminalRetention  time.Duration
	MaxSeatsPerSession int
	Currency           string
	ServiceFee         int64
	SubscriberBuffer   int
	HeartbeatInterval  time.Duration
	AtomicReplace      bool
}

type PaymentConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Timeout       time.Duration
	ReturnURL     string
}

// RedisConfig is optional; an empty Addr disables the price cache and
// the payment timeout queue.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// AMQPConfig is optional; an empty URL logs booking events instead.
type AMQPConfig struct {
	URL      string
	Exchange string
}

type JWTConfig struct {
	Secret string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_NAME", "cinema-booking")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("BOOKING_HOLD_TTL", "10m")
	viper.SetDefault("BOOKING_PAYMENT_TIMEOUT", "15m")
	viper.SetDefault("BOOKING_SWEEP_INTERVAL", "5s")
	viper.SetDefault("BOOKING_TERMINAL_RETENTION", "1h")
	viper.SetDefault("BOOKING_MAX_SEATS", 8)
	viper.SetDefault("BOOKING_CURRENCY", "IDR")
	viper.SetDefault("BOOKING_SERVICE_FEE", 0)
	viper.SetDefault("BOOKING_SUBSCRIBER_BUFFER", 256)
	viper.SetDefault("BOOKING_HEARTBEAT_INTERVAL", "15s")
	viper.SetDefault("BOOKING_ATOMIC_REPLACE", false)
	viper.SetDefault("PAYMENT_TIMEOUT", "10s")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_CACHE_TTL", "5m")
	viper.SetDefault("AMQP_EXCHANGE", "cinema.booking")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Booking: BookingConfig{
			HoldTTL:            viper.GetDuration("BOOKING_HOLD_TTL"),
			PaymentTimeout:     viper.GetDuration("BOOKING_PAYMENT_TIMEOUT"),
			SweepInterval:      viper.GetDuration("BOOKING_SWEEP_INTERVAL"),
			TerminalRetention:  viper.GetDuration("BOOKING_TERMINAL_RETENTION"),
			MaxSeatsPerSession: viper.GetInt("BOOKING_MAX_SEATS"),
			Currency:           viper.GetString("BOOKING_CURRENCY"),
			ServiceFee:         viper.GetInt64("BOOKING_SERVICE_FEE"),
			SubscriberBuffer:   viper.GetInt("BOOKING_SUBSCRIBER_BUFFER"),
			HeartbeatInterval:  viper.GetDuration("BOOKING_HEARTBEAT_INTERVAL"),
			AtomicReplace:      viper.GetBool("BOOKING_ATOMIC_REPLACE"),
		},
		Payment: PaymentConfig{
			BaseURL:       viper.GetString("PAYMENT_BASE_URL"),
			APIKey:        viper.GetString("PAYMENT_API_KEY"),
			WebhookSecret: viper.GetString("PAYMENT_WEBHOOK_SECRET"),
			Timeout:       viper.GetDuration("PAYMENT_TIMEOUT"),
			ReturnURL:     viper.GetString("PAYMENT_RETURN_URL"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			CacheTTL: viper.GetDuration("REDIS_CACHE_TTL"),
		},
		AMQP: AMQPConfig{
			URL:      viper.GetString("AMQP_URL"),
			Exchange: viper.GetString("AMQP_EXCHANGE"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the booking flow cannot run with.
func (c *Config) Validate() error {
	b := c.Booking
	switch {
	case b.HoldTTL <= 0:
		return errors.New("BOOKING_HOLD_TTL must be positive")
	case b.PaymentTimeout <= 0:
		return errors.New("BOOKING_PAYMENT_TIMEOUT must be positive")
	case b.SweepInterval <= 0:
		return errors.New("BOOKING_SWEEP_INTERVAL must be positive")
	case b.MaxSeatsPerSession <= 0:
		return errors.New("BOOKING_MAX_SEATS must be positive")
	case c.Payment.WebhookSecret == "":
		return errors.New("PAYMENT_WEBHOOK_SECRET is required")
	}
	return nil
}
