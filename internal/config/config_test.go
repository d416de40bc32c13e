package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != "0.0.0.0:50051" {
		t.Fatalf("grpc addr = %q", cfg.GRPCAddr)
	}
	if cfg.MaxOccurrences != 300 {
		t.Fatalf("max occurrences = %d, want 300", cfg.MaxOccurrences)
	}
	if cfg.Timezone.String() != "UTC" {
		t.Fatalf("timezone = %s, want UTC", cfg.Timezone)
	}
	if cfg.RedisSettingsTTL != 5*time.Minute {
		t.Fatalf("settings ttl = %s", cfg.RedisSettingsTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SLOTWISE_GRPC_ADDR", "127.0.0.1:6000")
	t.Setenv("SLOTWISE_SCHEDULE_MAX_OCCURRENCES", "52")
	t.Setenv("SLOTWISE_SCHEDULE_TIMEZONE", "Europe/Berlin")
	t.Setenv("SLOTWISE_HTTP_REQUEST_TIMEOUT", "3s")
	t.Setenv("SLOTWISE_LOG_FORMAT", "TEXT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GRPCHost != "127.0.0.1" || cfg.GRPCPort != 6000 || cfg.GRPCAddr != "127.0.0.1:6000" {
		t.Fatalf("grpc = %s %d %s", cfg.GRPCHost, cfg.GRPCPort, cfg.GRPCAddr)
	}
	if cfg.MaxOccurrences != 52 {
		t.Fatalf("max occurrences = %d", cfg.MaxOccurrences)
	}
	if cfg.Timezone.String() != "Europe/Berlin" {
		t.Fatalf("timezone = %s", cfg.Timezone)
	}
	if cfg.HTTPRequestTimeout != 3*time.Second {
		t.Fatalf("request timeout = %s", cfg.HTTPRequestTimeout)
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("log format = %q", cfg.LogFormat)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{name: "duration", key: "SLOTWISE_SHUTDOWN_TIMEOUT", val: "soon", want: "shutdown.timeout"},
		{name: "timezone", key: "SLOTWISE_SCHEDULE_TIMEZONE", val: "Mars/Olympus", want: "schedule.timezone"},
		{name: "cap", key: "SLOTWISE_SCHEDULE_MAX_OCCURRENCES", val: "0", want: "schedule.max_occurrences"},
		{name: "log format", key: "SLOTWISE_LOG_FORMAT", val: "xml", want: "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
