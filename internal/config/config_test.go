package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Gateway.Port != 8081 {
		t.Errorf("ports = %d/%d", cfg.Server.Port, cfg.Gateway.Port)
	}
	if cfg.Feed.MaxSize != 30 {
		t.Errorf("feed.max_size = %d, want 30", cfg.Feed.MaxSize)
	}
	if cfg.Transport.Kind != TransportRedis || cfg.Cache.Backend != CacheMemory {
		t.Errorf("transport=%s cache=%s", cfg.Transport.Kind, cfg.Cache.Backend)
	}
	if cfg.Transport.InitialBackoff != time.Second || cfg.Transport.MaxBackoff != time.Minute {
		t.Errorf("backoff = %s..%s", cfg.Transport.InitialBackoff, cfg.Transport.MaxBackoff)
	}
	if cfg.Cache.SweepSchedule != "@every 30s" {
		t.Errorf("sweep schedule = %q", cfg.Cache.SweepSchedule)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TRANSPORT_KIND", "amqp")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("FEED_MAX_SIZE", "12")
	t.Setenv("LEADER_TTL", "45s")
	t.Setenv("INSTANCE_ID", "sync-7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d", cfg.Server.Port)
	}
	if cfg.Transport.Kind != TransportAMQP || cfg.Cache.Backend != CacheRedis {
		t.Errorf("transport=%s cache=%s", cfg.Transport.Kind, cfg.Cache.Backend)
	}
	if cfg.Feed.MaxSize != 12 {
		t.Errorf("feed.max_size = %d", cfg.Feed.MaxSize)
	}
	if cfg.Leader.TTL != 45*time.Second {
		t.Errorf("leader.ttl = %s", cfg.Leader.TTL)
	}
	if cfg.Instance.ID != "sync-7" {
		t.Errorf("instance.id = %q", cfg.Instance.ID)
	}
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	t.Setenv("TRANSPORT_KIND", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown transport")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 7000
feed:
  max_size: 5
cache:
  backend: redis
  key_prefix: q
  entry_ttl: 1m
transport:
  kind: amqp
amqp:
  notification_exchange: events
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Server.Port != 7000 || cfg.Feed.MaxSize != 5 {
		t.Errorf("server.port=%d feed.max_size=%d", cfg.Server.Port, cfg.Feed.MaxSize)
	}
	if cfg.Cache.KeyPrefix != "q" || cfg.Cache.EntryTTL != time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.AMQP.NotificationExchange != "events" || cfg.AMQP.LiveBidExchange != "auction.live_bids" {
		t.Errorf("amqp = %+v", cfg.AMQP)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Transport: TransportConfig{Kind: TransportRedis, InitialBackoff: time.Second, MaxBackoff: time.Minute},
			Cache:     CacheConfig{Backend: CacheMemory},
			Feed:      FeedConfig{MaxSize: 30},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad cache", func(c *Config) { c.Cache.Backend = "disk" }, "cache backend"},
		{"zero feed", func(c *Config) { c.Feed.MaxSize = 0 }, "feed.max_size"},
		{"zero backoff", func(c *Config) { c.Transport.InitialBackoff = 0 }, "backoff"},
		{"inverted backoff", func(c *Config) { c.Transport.MaxBackoff = time.Millisecond }, "backoff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
