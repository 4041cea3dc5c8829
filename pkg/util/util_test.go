package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManualClock(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	c := NewManualClock(start)
	if !c.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", c.Now(), start)
	}
	c.Advance(time.Second)
	got := <-c.After(2 * time.Second)
	if want := start.Add(3 * time.Second); !got.Equal(want) {
		t.Errorf("After fired at %v, want %v", got, want)
	}
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "matchd.log")
	logger, err := NewLoggerWithFile(path, false)
	if err != nil {
		t.Fatalf("NewLoggerWithFile: %v", err)
	}
	logger.Sugar().Infow("order_submitted", "order_id", 1)
	logger.Sugar().Debugw("hidden_at_info")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"order_submitted"`) || !strings.Contains(out, `"ts":`) {
		t.Errorf("log file missing entry: %s", out)
	}
	if strings.Contains(out, "hidden_at_info") {
		t.Error("debug entry written at info level")
	}
}
