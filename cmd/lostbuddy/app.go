package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nirojbhetuwal/lostbuddy/internal/cache"
	"github.com/nirojbhetuwal/lostbuddy/internal/claims"
	"github.com/nirojbhetuwal/lostbuddy/internal/config"
	"github.com/nirojbhetuwal/lostbuddy/internal/db"
	"github.com/nirojbhetuwal/lostbuddy/internal/matching"
	"github.com/nirojbhetuwal/lostbuddy/internal/metrics"
	"github.com/nirojbhetuwal/lostbuddy/internal/notify"
	"github.com/nirojbhetuwal/lostbuddy/internal/store"
)

// app holds the services shared by the commands.
type app struct {
	db      *sql.DB
	repo    *store.Repository
	finder  *matching.Finder
	claims  *claims.Manager
	metrics *metrics.Metrics
	closers []io.Closer
}

// openApp opens the database and builds the matching and claim services.
// With external set, the Redis cache and Kafka publisher are attached when
// enabled in c.
func openApp(ctx context.Context, c *config.Config, external bool) (*app, error) {
	database, err := db.Open(c.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a := &app{db: database, repo: store.NewRepository(database)}

	if err := db.Migrate(database); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(reg)

	var sink notify.Sink = a.repo
	finderOpts := []matching.Option{matching.WithMetrics(a.metrics)}

	if external && c.Redis.Enabled {
		suggestions, err := cache.NewSuggestions(ctx, c.CacheConfig())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.closers = append(a.closers, suggestions)
		finderOpts = append(finderOpts, matching.WithCache(suggestions))
		slog.Info("suggestion cache enabled", "addr", c.Redis.Addr)
	}

	if external && c.Kafka.Enabled {
		publisher, err := notify.NewKafka(c.KafkaSinkConfig())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		a.closers = append(a.closers, publisher)
		sink = notify.Multi{a.repo, publisher}
		slog.Info("kafka notifications enabled", "topic", c.Kafka.Topic)
	}

	agg, err := matching.NewAggregator(c.Matching.Weights, c.Matching.DateRangeDays)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building aggregator: %w", err)
	}
	a.finder, err = matching.NewFinder(a.repo, agg, a.repo, sink, c.FinderConfig(), finderOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building finder: %w", err)
	}
	a.claims = claims.NewManager(a.repo, a.repo, sink, claims.WithMetrics(a.metrics), claims.WithItemObserver(a.finder))

	return a, nil
}

// Close releases external connections, then the database.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}
