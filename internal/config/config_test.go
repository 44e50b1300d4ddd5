package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Errorf("expected default broker, got %v", cfg.KafkaBrokers)
	}
	if cfg.ConsumerGroup != "inventory-service" {
		t.Errorf("expected default consumer group, got %q", cfg.ConsumerGroup)
	}
	if cfg.DeadLetterTopic != "inventory.dead-letter" {
		t.Errorf("expected default dead letter topic, got %q", cfg.DeadLetterTopic)
	}
	if cfg.PublishTimeout != 10*time.Second {
		t.Errorf("expected default publish timeout, got %v", cfg.PublishTimeout)
	}
	if cfg.RetryMaxRetries != 5 {
		t.Errorf("expected default retry budget, got %d", cfg.RetryMaxRetries)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("price cache should be disabled by default, got %q", cfg.RedisAddr)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("RETRY_MAX_RETRIES", "3")
	t.Setenv("PUBLISH_TIMEOUT", "2s")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("expected :9090, got %q", cfg.HTTPAddr)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Errorf("expected two trimmed brokers, got %v", cfg.KafkaBrokers)
	}
	if cfg.RetryMaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.RetryMaxRetries)
	}
	if cfg.PublishTimeout != 2*time.Second {
		t.Errorf("expected 2s timeout, got %v", cfg.PublishTimeout)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected redis addr, got %q", cfg.RedisAddr)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("PUBLISH_TIMEOUT", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an invalid duration")
	}
}

func TestLoad_InvalidRetryCount(t *testing.T) {
	t.Setenv("RETRY_MAX_RETRIES", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a negative retry count")
	}
}
