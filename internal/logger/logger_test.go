package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	sqldblogger "github.com/simukti/sqldb-logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/polkiloo/orderflow/internal/config"
)

func TestNewHonoursLevel(t *testing.T) {
	l, err := New(config.Logger{Level: "info"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l == nil {
		t.Fatal("expected logger, got nil")
	}
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Errorf("expected info level to be enabled")
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Errorf("did not expect debug level to be enabled")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(config.Logger{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orderflow.log")
	l, err := New(config.Logger{Level: "debug", Path: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Info("order marked as processing", zap.Int64("order_id", 7))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log file to contain entries")
	}
}

func TestSQLLoggerMapsLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sqlLogger := NewSQLLogger(zap.New(core))

	sqlLogger.Log(context.Background(), sqldblogger.LevelError, "exec", map[string]interface{}{"query": "SELECT 1"})
	sqlLogger.Log(context.Background(), sqldblogger.LevelInfo, "query", nil)
	sqlLogger.Log(context.Background(), sqldblogger.LevelTrace, "ping", nil)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel || entries[0].ContextMap()["query"] != "SELECT 1" {
		t.Fatalf("unexpected error entry: %+v", entries[0])
	}
	if entries[1].Level != zapcore.InfoLevel {
		t.Fatalf("expected info entry, got %v", entries[1].Level)
	}
	if entries[2].Level != zapcore.DebugLevel {
		t.Fatalf("expected debug entry, got %v", entries[2].Level)
	}
}
