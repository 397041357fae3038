// Package store opens the optional postgres and clickhouse backends behind small seams
// that repos, the facts sink and readiness checks are written against
package store

import (
	"context"
	"errors"
	"fmt"

	"nexuscalc/internal/platform/logger"
)

// Store holds the opened backends. A nil seam means the backend is disabled
type Store struct {
	Log logger.Logger

	PG TxRunner
	CH Clickhouse
}

// Row is a single result row
type Row interface {
	Scan(dest ...any) error
}

// Rows is a result set; callers must Close it
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports what a write touched
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier runs SQL statements
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner is a RowQuerier that can also run fn in a transaction
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse is the columnar seam used for analytics facts
type Clickhouse interface {
	Insert(ctx context.Context, table string, data any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Exec(ctx context.Context, sql string, args ...any) error
	Close() error
}

// Pinger reports readiness
type Pinger interface{ Ping(context.Context) error }

// Open connects every backend enabled in cfg. Disabled ones stay nil
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s, err := newStore(opts)
	if err != nil {
		return nil, err
	}

	if cfg.PG.Enabled {
		if s.PG, err = openPG(ctx, cfg, s); err != nil {
			return nil, err
		}
	}
	if cfg.CH.Enabled {
		if s.CH, err = openCH(ctx, cfg, s); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
	}
	return s, nil
}

// Guard pings each opened backend and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	for name, seam := range map[string]any{"pg": s.PG, "ch": s.CH} {
		p, ok := seam.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every opened backend and joins the failures
func (s *Store) Close(context.Context) error {
	var errs []error
	if s.CH != nil {
		errs = append(errs, s.CH.Close())
	}
	if c, ok := s.PG.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
