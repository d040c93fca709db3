package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-sync/internal/app"
	"auction-sync/internal/config"
	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
)

const (
	modeEvents   = "events"
	modeLiveBids = "bids"
)

// Publisher replays JSON lines from a reader onto the broker. Malformed
// lines are logged and skipped.
type Publisher struct {
	publisher domain.EventPublisher
	mode      string
	log       logger.Logger
}

func NewPublisher(publisher domain.EventPublisher, mode string, log logger.Logger) *Publisher {
	return &Publisher{
		publisher: publisher,
		mode:      mode,
		log:       log,
	}
}

// Run publishes every line until EOF or ctx is done and returns the number
// of messages sent.
func (p *Publisher) Run(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	sent := 0
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		line++

		payload := bytes.TrimSpace(scanner.Bytes())
		if len(payload) == 0 {
			continue
		}

		if err := p.publishLine(ctx, payload); err != nil {
			p.log.Warn("Skipping line", "line", line, "error", err)
			continue
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return sent, fmt.Errorf("read input: %w", err)
	}
	return sent, nil
}

func (p *Publisher) publishLine(ctx context.Context, payload []byte) error {
	switch p.mode {
	case modeLiveBids:
		bid, err := domain.ParseLiveBid(payload)
		if err != nil {
			return err
		}
		return p.publisher.PublishLiveBid(ctx, bid)
	default:
		event, err := domain.ParseDomainEvent(payload)
		if err != nil {
			return err
		}
		return p.publisher.PublishDomainEvent(ctx, event)
	}
}

func main() {
	mode := flag.String("mode", modeEvents, "input kind: events or bids")
	flag.Parse()

	log := logger.New()

	if *mode != modeEvents && *mode != modeLiveBids {
		log.Fatal("Unknown mode", "mode", *mode)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	var rdb *redisClient.Client
	if cfg.Transport.Kind == config.TransportRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err = app.NewRedisClient(ctx, cfg.Redis)
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		defer rdb.Close()
	}

	brokerPublisher, err := app.NewPublisher(cfg, rdb)
	if err != nil {
		log.Fatal("Failed to create publisher", "error", err)
	}
	if closer, ok := brokerPublisher.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sent, err := NewPublisher(brokerPublisher, *mode, log).Run(ctx, os.Stdin)
	if err != nil {
		log.Error("Publishing stopped", "sent", sent, "error", err)
		return
	}
	log.Info("Published messages", "mode", *mode, "sent", sent, "transport", cfg.Transport.Kind)
}
