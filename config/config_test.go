package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("WORKERS", "")
	cfg := FromEnv()

	if cfg.ServerAddr != ":8080" {
		t.Fatalf("unexpected server addr: %q", cfg.ServerAddr)
	}
	if cfg.Decoder != "auto" {
		t.Fatalf("expected auto decoder, got %q", cfg.Decoder)
	}
	if cfg.Workers <= 0 || cfg.Workers > 8 {
		t.Fatalf("expected workers in (0, 8], got %d", cfg.Workers)
	}
	if cfg.MaxUploadBytes() != 32<<20 {
		t.Fatalf("unexpected upload limit: %d", cfg.MaxUploadBytes())
	}
	if cfg.MinioEnabled() {
		t.Fatal("minio should be disabled by default")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("AUDIO_DECODER", "WAV")
	t.Setenv("WORKERS", "3")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_TTL", "90m")
	t.Setenv("AUDIO_MAX_SECONDS", "30.5")
	t.Setenv("MODEL_SOURCE", "minio")
	t.Setenv("MAX_UPLOAD_MB", "8")

	cfg := FromEnv()
	if cfg.ServerAddr != ":9999" {
		t.Fatalf("unexpected server addr: %q", cfg.ServerAddr)
	}
	if cfg.Decoder != "wav" {
		t.Fatalf("decoder should be lower-cased, got %q", cfg.Decoder)
	}
	if cfg.Workers != 3 {
		t.Fatalf("expected 3 workers, got %d", cfg.Workers)
	}
	if !cfg.CacheEnabled || cfg.CacheTTL != 90*time.Minute {
		t.Fatalf("unexpected cache config: %v %v", cfg.CacheEnabled, cfg.CacheTTL)
	}
	if cfg.MaxAudioSeconds != 30.5 {
		t.Fatalf("unexpected max audio seconds: %v", cfg.MaxAudioSeconds)
	}
	if !cfg.MinioEnabled() {
		t.Fatal("minio model source should enable minio")
	}
	if cfg.MaxUploadBytes() != 8<<20 {
		t.Fatalf("unexpected upload limit: %d", cfg.MaxUploadBytes())
	}
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("MODEL_WATCH", "maybe")
	t.Setenv("CACHE_TTL", "soon")

	cfg := FromEnv()
	if cfg.RedisDB != 0 {
		t.Fatalf("expected fallback redis db, got %d", cfg.RedisDB)
	}
	if cfg.ModelWatch {
		t.Fatal("expected fallback model watch false")
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Fatalf("expected fallback ttl, got %v", cfg.CacheTTL)
	}
}
