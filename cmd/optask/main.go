// Package main is the entry point for the optask CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"optask/internal/backend/googletasks"
	"optask/internal/backend/mockstore"
	"optask/internal/backend/traced"
	"optask/internal/cli"
	"optask/internal/commands"
	"optask/internal/config"
	"optask/internal/exitcode"
	"optask/internal/logging"
	"optask/internal/service"
	"optask/internal/tracing"
)

const traceFlushTimeout = 5 * time.Second

func main() {
	logging.ConfigureRuntime(logging.Options{})

	shutdown, err := tracing.Setup(os.Getenv(tracing.EnvTrace))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitcode.UserError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, newStore)
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	flushCtx, cancel := context.WithTimeout(context.Background(), traceFlushTimeout)
	if err := shutdown(flushCtx); err != nil {
		log.Warn().Err(err).Msg("trace flush failed")
	}
	cancel()
	os.Exit(code)
}

// newStore builds the configured backend, wrapped with tracing. Spans go to
// the provider installed by tracing.Setup.
func newStore(ctx context.Context, cfg *config.Config) (service.Store, error) {
	var store service.Store
	switch cfg.Backend {
	case config.BackendMock:
		opts := []mockstore.Option{
			mockstore.WithLatency(cfg.Latency),
			mockstore.WithFailRate(cfg.FailRate),
			mockstore.WithLogger(log.Logger),
		}
		if len(cfg.Seed) > 0 {
			opts = append(opts, mockstore.WithSeed(seedItems(cfg.Seed)))
		}
		store = mockstore.New(opts...)
	case config.BackendGoogle:
		client, err := googletasks.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store = client
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
	return traced.New(store, cfg.Backend, nil), nil
}

func seedItems(seed []config.SeedItem) []service.Item {
	items := make([]service.Item, len(seed))
	for i, s := range seed {
		items[i] = service.Item{ID: s.ID, Title: s.Title, Done: s.Done}
	}
	return items
}
