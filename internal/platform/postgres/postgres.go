// Package postgres constructs the shared pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Client wraps the pgx pool with health checking.
type Client struct {
	*pgxpool.Pool
}

// New creates a connection pool from the URL. Returns nil if the URL is empty
// (Postgres not configured; callers fall back to memory stores).
func New(ctx context.Context, url string) (*Client, error) {
	if url == "" {
		return nil, nil
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &Client{Pool: pool}, nil
}

// Health checks if the database connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx)
}
