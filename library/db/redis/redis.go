// Package redis wraps the shared redis connection.
package redis

import (
	"context"

	"github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"
)

// DB is a wrapper for go-redis.
type DB struct {
	cli *redis.Client
}

// NewDB creates a new DB instance and verifies connectivity.
func NewDB(ctx context.Context, opt *redis.Options) (*DB, error) {
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}

	return &DB{cli: rdb}, nil
}

// Client exposes the underlying client for command access.
func (d *DB) Client() *redis.Client {
	return d.cli
}

// Close releases the connection pool.
func (d *DB) Close() error {
	return d.cli.Close()
}
