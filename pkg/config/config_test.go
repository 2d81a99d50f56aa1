package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "PORT", "STORE", "LOCK_TTL", "STATUS_EXCHANGE", "ADMIN_ALLOWED_ORIGINS", "REDIS_DB"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.HTTPAddr != ":8081" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr)
	}
	if cfg.Store != "postgres" {
		t.Fatalf("unexpected store %q", cfg.Store)
	}
	if cfg.Redis.LockTTL != 10*time.Second {
		t.Fatalf("unexpected lock ttl %s", cfg.Redis.LockTTL)
	}
	if cfg.RabbitMQ.Exchange != "booking.status" {
		t.Fatalf("unexpected exchange %q", cfg.RabbitMQ.Exchange)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "9000")
	t.Setenv("LOCK_TTL", "3s")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("ADMIN_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	cfg := Load()
	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("expected PORT fallback, got %q", cfg.HTTPAddr)
	}
	if cfg.Redis.LockTTL != 3*time.Second || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
	if got := cfg.Admin.AllowedOrigins; len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", got)
	}
}
