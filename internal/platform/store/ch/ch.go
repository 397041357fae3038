// Package ch provides a clickhouse client
package ch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures clickhouse client
type Config struct {
	URL string

	// Role and Tag end up in system.query_log client info
	Role string
	Tag  string

	// Debugf receives driver debug lines when set
	Debugf func(format string, v ...any)
}

// Rows is the minimal result set iteration for ch
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
	Columns() []string
}

// conn is the slice of driver.Conn the client uses
type conn interface {
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
	Exec(ctx context.Context, query string, args ...any) error
	Ping(ctx context.Context) error
	Close() error
}

// CH is a clickhouse native protocol client
type CH struct {
	c conn
}

// Open parses the DSN, attaches client info and connects
func Open(ctx context.Context, cfg Config) (*CH, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("ch: empty url")
	}
	opts, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ch: parse dsn: %w", err)
	}
	opts.ClientInfo = BuildClientInfo(cfg.Role, cfg.Tag)
	if cfg.Debugf != nil {
		opts.Debug = true
		opts.Debugf = cfg.Debugf
	}

	c, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ch: open: %w", err)
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ch: ping: %w", err)
	}
	return &CH{c: c}, nil
}

// New wraps an existing connection
func New(c driver.Conn) *CH { return &CH{c: c} }

// Insert appends rows to table in a single batch; each row must match the table column order
func (c *CH) Insert(ctx context.Context, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	b, err := c.c.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return fmt.Errorf("ch: prepare %s: %w", table, err)
	}
	for i, r := range rows {
		if err := b.Append(r...); err != nil {
			_ = b.Abort()
			return fmt.Errorf("ch: append %s row %d: %w", table, i, err)
		}
	}
	if err := b.Send(); err != nil {
		return fmt.Errorf("ch: send %s: %w", table, err)
	}
	return nil
}

// Query runs a query and returns ch.Rows
func (c *CH) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := c.c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Exec runs a statement with no result set
func (c *CH) Exec(ctx context.Context, sql string, args ...any) error {
	return c.c.Exec(ctx, sql, args...)
}

// Ping checks the server is reachable
func (c *CH) Ping(ctx context.Context) error { return c.c.Ping(ctx) }

// Close closes resources
func (c *CH) Close() error {
	if c == nil || c.c == nil {
		return nil
	}
	return c.c.Close()
}
