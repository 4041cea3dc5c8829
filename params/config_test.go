package params

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	// point at a missing file so a stray .env in the package dir is ignored
	cfg := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	def := Default()
	if cfg.API.Addr != def.API.Addr {
		t.Errorf("Addr = %q, want %q", cfg.API.Addr, def.API.Addr)
	}
	if cfg.TradeHistory != def.TradeHistory {
		t.Errorf("TradeHistory = %d, want %d", cfg.TradeHistory, def.TradeHistory)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9999")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("SHUTDOWN_TIMEOUT_MS", "250")
	t.Setenv("DATA_DIR", "")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_TOPIC", "fills")
	t.Setenv("VERBOSE", "true")
	t.Setenv("TRADE_HISTORY", "not-a-number")
	t.Setenv("ENABLE_LOADGEN", "true")
	t.Setenv("LOADGEN_MODE", "high")

	cfg := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))

	if cfg.API.Addr != ":9999" {
		t.Errorf("Addr = %q", cfg.API.Addr)
	}
	if len(cfg.API.CORSOrigins) != 2 || cfg.API.CORSOrigins[1] != "http://b.test" {
		t.Errorf("CORSOrigins = %v", cfg.API.CORSOrigins)
	}
	if cfg.API.ShutdownTimeout != 250*time.Millisecond {
		t.Errorf("ShutdownTimeout = %v", cfg.API.ShutdownTimeout)
	}
	if cfg.Storage.DataDir != "" {
		t.Errorf("DataDir = %q, want empty (memory journal)", cfg.Storage.DataDir)
	}
	if len(cfg.Feed.KafkaBrokers) != 2 || cfg.Feed.KafkaTopic != "fills" {
		t.Errorf("Feed = %+v", cfg.Feed)
	}
	if !cfg.Logging.Verbose {
		t.Error("Verbose should be true")
	}
	if !cfg.LoadGen.Enabled || cfg.LoadGen.Mode != "high" {
		t.Errorf("LoadGen = %+v", cfg.LoadGen)
	}
	if cfg.TradeHistory != Default().TradeHistory {
		t.Errorf("invalid TRADE_HISTORY should keep default, got %d", cfg.TradeHistory)
	}
}

func TestLoadFromEnv_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("KAFKA_TOPIC=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv.Load does not override variables already set
	os.Unsetenv("KAFKA_TOPIC")
	t.Cleanup(func() { os.Unsetenv("KAFKA_TOPIC") })

	cfg := LoadFromEnv(path)
	if cfg.Feed.KafkaTopic != "from-file" {
		t.Errorf("KafkaTopic = %q, want from-file", cfg.Feed.KafkaTopic)
	}
}
