package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize_Off(t *testing.T) {
	if err := Initialize("off"); err != nil {
		t.Fatalf("Initialize(off) error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be disabled for level off")
	}
}

func TestInitialize_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if err := Initialize(tt.level); err != nil {
				t.Fatalf("Initialize(%s) error = %v", tt.level, err)
			}
			core := GetLogger().Core()
			if !core.Enabled(tt.want) {
				t.Errorf("level %s should be enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && core.Enabled(tt.want-1) {
				t.Errorf("level %s should be disabled", tt.want-1)
			}
		})
	}
}

func TestInitialize_EnvFallback(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "error")
	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be disabled when env sets error")
	}
}

func TestDomainHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogResourceRequest("GET", "/api/clients/dev-1/5/0/3", 200, 15*time.Millisecond)
	LogRequestFailure("PUT", "/api/clients/dev-1/5/0/1", errors.New("boom"))
	LogDeviceState("dev-1", "download", "1", "0")

	if logs.Len() != 3 {
		t.Fatalf("got %d entries, want 3", logs.Len())
	}

	failure := logs.FilterMessage("Resource request failed").All()
	if len(failure) != 1 || failure[0].Level != zapcore.WarnLevel {
		t.Errorf("request failure should log one warn entry, got %v", failure)
	}

	state := logs.FilterField(zap.String("endpoint", "dev-1")).All()
	if len(state) != 1 {
		t.Errorf("device state entry should carry endpoint field, got %d", len(state))
	}
}

func TestInitializeToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.log")
	if err := InitializeToFile("info", path); err != nil {
		t.Fatalf("InitializeToFile() error = %v", err)
	}
	defer SetLogger(nil)

	Debug("hidden")
	Info("Device finished", zap.String("endpoint", "dev-1"))
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "Device finished") || !strings.Contains(out, "dev-1") {
		t.Errorf("log file missing entry:\n%s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry written at info level:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("log file should not contain color codes:\n%s", out)
	}
}
