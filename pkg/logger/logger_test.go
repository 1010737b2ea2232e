package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerBasic(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	l := Get()
	l.Info(ctx, "test message", String("k", "v"))
	l.Warn(ctx, "warn message", Int("n", 1), Bool("b", true))
	l.Debug(ctx, "debug message", Float64("f", 1.5))
	l.Error(ctx, "error message", Any("v", struct{}{}))
}

func TestLoggerNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	named := Named("tabulator")
	if named == nil {
		t.Fatal("named logger is nil")
	}
	named.Info(context.Background(), "named message")
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		if err := SetLevelString(in); err != nil {
			t.Fatalf("SetLevelString(%q): %v", in, err)
		}
		if got := levelVar.Level(); got != want {
			t.Errorf("SetLevelString(%q) = %v, want %v", in, got, want)
		}
	}

	if err := SetLevelString("nope"); err == nil {
		t.Error("expected error for unknown level")
	}
}
