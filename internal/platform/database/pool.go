package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hearth/internal/platform/config"
)

var (
	dbOpenConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hearth_db_open_conns",
		Help: "Number of established database connections",
	})
	dbInUseConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hearth_db_in_use_conns",
		Help: "Number of database connections currently in use",
	})
	dbWaitCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearth_db_wait_total",
		Help: "Number of times a caller waited for a database connection",
	})
)

// Pool wraps a *sql.DB with health checking capabilities.
type Pool struct {
	db        *sql.DB
	lastWaits int64
}

// New opens and pings a pgx backed pool. Returns nil if the URL is empty.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{db: db}, nil
}

func (p *Pool) DB() *sql.DB {
	return p.db
}

// Health checks if the database is reachable.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return fmt.Errorf("database not configured")
	}
	return p.db.PingContext(ctx)
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// RecordPoolStats publishes sql.DBStats. Call it periodically.
func (p *Pool) RecordPoolStats() {
	if p == nil || p.db == nil {
		return
	}
	stats := p.db.Stats()
	dbOpenConns.Set(float64(stats.OpenConnections))
	dbInUseConns.Set(float64(stats.InUse))
	if stats.WaitCount > p.lastWaits {
		dbWaitCount.Add(float64(stats.WaitCount - p.lastWaits))
	}
	p.lastWaits = stats.WaitCount
}
