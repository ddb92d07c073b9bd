// Package redis connects the optional impersonation session store.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"hearth/internal/platform/config"
)

var (
	poolEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearth_redis_pool_events_total",
		Help: "Connection pool events: hit, miss, timeout, stale",
	}, []string{"event"})
	poolConns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hearth_redis_pool_conns",
		Help: "Connections in the pool by state",
	}, []string{"state"})
)

var errNotConfigured = errors.New("redis not configured")

// Client embeds the go-redis client so stores can use it directly.
type Client struct {
	*redis.Client
	last redis.PoolStats
}

// New connects and pings. An empty URL yields a nil client and no error.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{Client: rdb}, nil
}

func (c *Client) Health(ctx context.Context) error {
	if c == nil {
		return errNotConfigured
	}
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.Client.Close()
}

// RecordPoolStats publishes pool gauges and advances event counters by what
// changed since the previous call.
func (c *Client) RecordPoolStats() {
	if c == nil {
		return
	}
	s := *c.PoolStats()

	poolConns.WithLabelValues("total").Set(float64(s.TotalConns))
	poolConns.WithLabelValues("idle").Set(float64(s.IdleConns))

	advance := func(event string, now, before uint32) {
		if now > before {
			poolEvents.WithLabelValues(event).Add(float64(now - before))
		}
	}
	advance("hit", s.Hits, c.last.Hits)
	advance("miss", s.Misses, c.last.Misses)
	advance("timeout", s.Timeouts, c.last.Timeouts)
	advance("stale", s.StaleConns, c.last.StaleConns)
	c.last = s
}
