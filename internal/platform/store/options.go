package store

import (
	"nexuscalc/internal/platform/logger"
)

// Option adjusts a Store before any backend is opened; an error aborts Open
type Option func(*Store) error

// WithLogger replaces the process logger for pg statement traces and clickhouse open lines.
// Trace lines still pick up client_id and run_id from each statement's context
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// newStore starts from the process logger and applies opts in order
func newStore(opts []Option) (*Store, error) {
	s := &Store{Log: *logger.Get()}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}
