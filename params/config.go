package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type API struct {
	Addr            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

type Storage struct {
	// DataDir holds the pebble journal. Empty keeps everything in memory
	// and nothing survives a restart.
	DataDir  string
	AuditLog string
}

type Feed struct {
	KafkaBrokers []string
	KafkaTopic   string
}

type Logging struct {
	File    string
	Verbose bool
}

type LoadGen struct {
	Enabled bool
	Mode    string // "default" or "high"
}

type Config struct {
	API          API
	Storage      Storage
	Feed         Feed
	Logging      Logging
	LoadGen      LoadGen
	TradeHistory int // upper bound on trades returned by /trades
}

func Default() Config {
	return Config{
		API: API{
			Addr:            ":8080",
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: Storage{
			DataDir: "data/journal",
		},
		Feed: Feed{
			KafkaTopic: "trades",
		},
		Logging: Logging{
			File: "data/matchd.log",
		},
		LoadGen: LoadGen{
			Mode: "default",
		},
		TradeHistory: 1000,
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.API.CORSOrigins = splitList(origins)
	}
	if ms := os.Getenv("SHUTDOWN_TIMEOUT_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 {
			cfg.API.ShutdownTimeout = time.Duration(v) * time.Millisecond
		}
	}

	// DATA_DIR="" explicitly selects the in-memory journal
	if dir, ok := os.LookupEnv("DATA_DIR"); ok {
		cfg.Storage.DataDir = dir
	}
	cfg.Storage.AuditLog = getEnv("AUDIT_LOG", cfg.Storage.AuditLog)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Feed.KafkaBrokers = splitList(brokers)
	}
	cfg.Feed.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.Feed.KafkaTopic)

	cfg.Logging.File = getEnv("LOG_FILE", cfg.Logging.File)
	if v := os.Getenv("VERBOSE"); v != "" {
		cfg.Logging.Verbose = v == "true"
	}

	cfg.LoadGen.Enabled = os.Getenv("ENABLE_LOADGEN") == "true"
	cfg.LoadGen.Mode = getEnv("LOADGEN_MODE", cfg.LoadGen.Mode)

	if n := os.Getenv("TRADE_HISTORY"); n != "" {
		if v, err := strconv.Atoi(n); err == nil && v > 0 {
			cfg.TradeHistory = v
		}
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

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
