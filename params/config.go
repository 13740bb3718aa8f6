package params

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type HTTP struct {
	Addr string
}

type Storage struct {
	// DBPath is where the ledger's Pebble database lives.
	DBPath string
}

type Feed struct {
	// Brokers is the Kafka broker list for the trade feed.
	// Empty means the feed is disabled.
	Brokers []string
	Topic   string
}

type Config struct {
	HTTP    HTTP
	Storage Storage
	Feed    Feed
	// Owner is the hex address allowed to list tokens.
	Owner   string
	LogFile string
}

func Default() Config {
	return Config{
		HTTP:    HTTP{Addr: ":8080"},
		Storage: Storage{DBPath: "data/ledger.db"},
		Feed: Feed{
			Brokers: nil, // feed off by default
			Topic:   "spotdex.trades",
		},
		Owner:   "0x0000000000000000000000000000000000000001",
		LogFile: "data/dexd.log",
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	cfg.HTTP.Addr = getEnv("DEX_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Storage.DBPath = getEnv("DEX_DB_PATH", cfg.Storage.DBPath)
	cfg.Owner = getEnv("DEX_OWNER", cfg.Owner)
	cfg.LogFile = getEnv("DEX_LOG_FILE", cfg.LogFile)
	cfg.Feed.Topic = getEnv("KAFKA_TOPIC", cfg.Feed.Topic)

	// Brokers from comma-separated list, e.g. "kafka1:9092,kafka2:9092"
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Feed.Brokers = strings.Split(brokers, ",")
	}

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
