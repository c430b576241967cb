package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"feedgate/internal/validation"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel   string
	MaxRetries int
	RetryDelay time.Duration
	HTTP       HTTPConfig
	RPC        RPCConfig
	Payments   PaymentsConfig
	Sweep      SweepConfig
	Store      StoreConfig
	Database   DatabaseConfig
	Kafka      KafkaConfig
	HealthAddr string
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	Timeout time.Duration
}

// RPCConfig holds the wallet node connection settings
type RPCConfig struct {
	Endpoint  string
	User      string
	Password  string
	RateLimit float64
	Network   string
}

// PaymentsConfig holds the payment gate settings
type PaymentsConfig struct {
	MonthlyThreshold btcutil.Amount
	AdminAccount     string
	// AdminPassword, when set with AdminAccount, seeds the admin at startup.
	AdminPassword string
}

// SweepConfig holds settlement sweeper settings
type SweepConfig struct {
	CollectionAddress string
	NetworkFee        btcutil.Amount
	Location          *time.Location
	Concurrency       int
	Enabled           bool
}

// StoreConfig selects the account store backend
type StoreConfig struct {
	Driver string
	Path   string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	BrokerAddress string
	Topic         string
	BatchTimeout  time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// A missing .env is fine; variables may be set externally.
	_ = godotenv.Load()

	threshold, err := getEnvAsAmount("MONTHLY_THRESHOLD_BTC", 0.0002)
	if err != nil {
		return nil, err
	}
	fee, err := getEnvAsAmount("NETWORK_FEE_BTC", 0.000075)
	if err != nil {
		return nil, err
	}

	loc := time.Local
	if name := getEnv("SWEEP_TIMEZONE", ""); name != "" {
		loc, err = time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_TIMEZONE %q: %w", name, err)
		}
	}

	config := &Config{
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		MaxRetries: getEnvAsInt("RPC_MAX_RETRIES", 1),
		RetryDelay: time.Duration(getEnvAsInt("RETRY_DELAY", 5)) * time.Second,
		HTTP: HTTPConfig{
			Timeout: time.Duration(getEnvAsInt("HTTP_TIMEOUT", 30)) * time.Second,
		},
		RPC: RPCConfig{
			Endpoint:  getEnv("RPC_ENDPOINT", "http://127.0.0.1:8332/"),
			User:      getEnv("RPC_USER", "root"),
			Password:  getEnv("RPC_PASSWORD", ""),
			RateLimit: getEnvAsFloat("RPC_RATE_LIMIT", 50),
			Network:   getEnv("BITCOIN_NETWORK", "mainnet"),
		},
		Payments: PaymentsConfig{
			MonthlyThreshold: threshold,
			AdminAccount:     getEnv("ADMIN_ACCOUNT", ""),
			AdminPassword:    getEnv("ADMIN_PASSWORD", ""),
		},
		Sweep: SweepConfig{
			CollectionAddress: getEnv("COLLECTION_ADDRESS", ""),
			NetworkFee:        fee,
			Location:          loc,
			Concurrency:       getEnvAsInt("SWEEP_CONCURRENCY", 16),
			Enabled:           getEnvAsBool("SWEEP_ENABLED", true),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "bolt"),
			Path:   getEnv("STORE_PATH", "./data/accounts.db"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "feedgate"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			BrokerAddress: getEnv("KAFKA_BROKER_ADDRESS", ""),
			Topic:         getEnv("KAFKA_TOPIC", "feedgate-settlements"),
			BatchTimeout:  time.Duration(getEnvAsInt("KAFKA_BATCH_TIMEOUT", 1)) * time.Second,
		},
		HealthAddr: getEnv("HEALTH_ADDR", ":8081"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ChainParams returns the btcd network parameters for the configured network.
func (c *Config) ChainParams() (*chaincfg.Params, error) {
	switch c.RPC.Network {
	case "mainnet", "":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unknown BITCOIN_NETWORK %q", c.RPC.Network)
	}
}

// Validate checks the settings the core cannot run without.
func (c *Config) Validate() error {
	if c.RPC.Endpoint == "" {
		return errors.New("RPC_ENDPOINT is required")
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	if err := validation.ValidateAmount(c.Payments.MonthlyThreshold); err != nil {
		return fmt.Errorf("invalid MONTHLY_THRESHOLD_BTC: %w", err)
	}
	if err := validation.ValidateAmount(c.Sweep.NetworkFee); err != nil {
		return fmt.Errorf("invalid NETWORK_FEE_BTC: %w", err)
	}
	if c.Sweep.Concurrency < 1 {
		return errors.New("SWEEP_CONCURRENCY must be at least 1")
	}
	if c.MaxRetries < 1 {
		return errors.New("RPC_MAX_RETRIES must be at least 1")
	}
	if c.Store.Driver != "bolt" && c.Store.Driver != "postgres" {
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	params, err := c.ChainParams()
	if err != nil {
		return err
	}
	if c.Sweep.Enabled {
		if c.Sweep.CollectionAddress == "" {
			return errors.New("COLLECTION_ADDRESS is required when sweeping is enabled")
		}
		if err := validation.ValidateAddress(c.Sweep.CollectionAddress, params); err != nil {
			return fmt.Errorf("invalid COLLECTION_ADDRESS: %w", err)
		}
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsAmount reads a BTC-denominated value and converts it to satoshis.
// Unlike the other helpers, a malformed value is an error.
func getEnvAsAmount(key string, defaultBTC float64) (btcutil.Amount, error) {
	btc := defaultBTC
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		btc = parsed
	}

	amt, err := btcutil.NewAmount(btc)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return amt, nil
}
