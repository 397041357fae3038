// Package service loads, caches and seeds reference data snapshots
package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"nexuscalc/internal/core/refdata"
	"nexuscalc/internal/modkit/repokit"
	perr "nexuscalc/internal/platform/errors"
	"nexuscalc/internal/platform/logger"
	"nexuscalc/internal/services/refdata/domain"
	"nexuscalc/internal/services/refdata/repo"
)

// Service defines the reference data service contract
type Service interface {
	domain.GatewayPort
	domain.SeederPort
	// Reload drops the cached snapshot and loads a fresh one
	Reload(ctx context.Context) (domain.SnapshotInfo, error)
}

// Options selects the snapshot source
type Options struct {
	Source   domain.Source
	File     string
	CacheTTL time.Duration
}

// ParseSource maps a config value; blank is embedded
func ParseSource(s string) (domain.Source, error) {
	switch domain.Source(strings.ToLower(strings.TrimSpace(s))) {
	case "", domain.SourceEmbedded:
		return domain.SourceEmbedded, nil
	case domain.SourceFile:
		return domain.SourceFile, nil
	case domain.SourcePG:
		return domain.SourcePG, nil
	}
	return "", fmt.Errorf("unknown reference data source %q", s)
}

// Svc implements Service
type Svc struct {
	opts   Options
	db     repokit.TxRunner
	binder repokit.Binder[repo.Storage]
	now    func() time.Time

	mu   sync.Mutex
	snap *refdata.Dataset
	info domain.SnapshotInfo
}

// New constructs the service. db and binder may be nil unless the source is pg
func New(db repokit.TxRunner, binder repokit.Binder[repo.Storage], opts Options) *Svc {
	if opts.Source == "" {
		opts.Source = domain.SourceEmbedded
	}
	if opts.Source == domain.SourcePG && (db == nil || binder == nil) {
		panic("refdata.Service with a pg source requires a TxRunner and a Repo binder")
	}
	return &Svc{opts: opts, db: db, binder: binder, now: time.Now}
}

// Snapshot returns the cached dataset, loading it when absent or expired.
// Concurrent callers share a single load
func (s *Svc) Snapshot(ctx context.Context) (*refdata.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap != nil && !s.expired() {
		return s.snap, nil
	}
	return s.loadLocked(ctx)
}

func (s *Svc) expired() bool {
	return s.opts.CacheTTL > 0 && s.now().Sub(s.info.LoadedAt) >= s.opts.CacheTTL
}

func (s *Svc) loadLocked(ctx context.Context) (*refdata.Dataset, error) {
	d, err := s.load(ctx)
	if err != nil {
		if s.snap != nil {
			// keep serving the previous snapshot
			logger.C(ctx).Warn().Err(err).Str("version", s.info.Version).Msg("refdata reload failed")
			return s.snap, nil
		}
		return nil, err
	}
	s.snap = d
	s.info = domain.SnapshotInfo{
		Version:       d.Version,
		Source:        s.opts.Source,
		Jurisdictions: len(d.Jurisdictions),
		LoadedAt:      s.now().UTC(),
	}
	logger.C(ctx).Info().
		Str("version", d.Version).
		Str("source", string(s.opts.Source)).
		Int("jurisdictions", len(d.Jurisdictions)).
		Msg("refdata snapshot loaded")
	return d, nil
}

func (s *Svc) load(ctx context.Context) (*refdata.Dataset, error) {
	switch s.opts.Source {
	case domain.SourceEmbedded:
		return refdata.Default()
	case domain.SourceFile:
		if s.opts.File == "" {
			return nil, perr.ReferenceDataf("reference data file is not configured")
		}
		f, err := os.Open(s.opts.File)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeReferenceData, "open %s", s.opts.File)
		}
		defer f.Close()
		return refdata.LoadYAML(f)
	case domain.SourcePG:
		return s.binder.Bind(s.db).Load(ctx)
	}
	return nil, perr.ReferenceDataf("unknown reference data source %q", s.opts.Source)
}

// Reload forces a fresh load of the snapshot
func (s *Svc) Reload(ctx context.Context) (domain.SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.snap
	s.snap = nil
	if _, err := s.loadLocked(ctx); err != nil {
		s.snap = prev
		return domain.SnapshotInfo{}, err
	}
	return s.info, nil
}

// Info describes the snapshot currently served
func (s *Svc) Info(ctx context.Context) (domain.SnapshotInfo, error) {
	if _, err := s.Snapshot(ctx); err != nil {
		return domain.SnapshotInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info, nil
}

// Jurisdictions lists every jurisdiction in the snapshot ordered by code
func (s *Svc) Jurisdictions(ctx context.Context) ([]domain.JurisdictionView, error) {
	d, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	js := d.SortedJurisdictions()
	out := make([]domain.JurisdictionView, 0, len(js))
	for _, j := range js {
		out = append(out, domain.ViewOf(j))
	}
	return out, nil
}

// Rules lists the threshold rule versions of one jurisdiction
func (s *Svc) Rules(ctx context.Context, code string) ([]domain.RuleView, error) {
	d, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	j, err := d.Get(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, perr.WithField(perr.NotFoundf("unknown jurisdiction %q", code), "code")
	}
	return domain.RulesOf(*j), nil
}

// Seed validates d and replaces the stored reference data in one transaction
func (s *Svc) Seed(ctx context.Context, d *refdata.Dataset) error {
	if s.db == nil || s.binder == nil {
		return perr.Unavailablef("postgres is not configured")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	migrate := func(ctx context.Context, q repokit.Queryer) error { return s.binder.Bind(q).Migrate(ctx) }
	err := repokit.WithTx(ctx, repokit.WithBeginHooks(s.db, migrate), func(q repokit.Queryer) error {
		return s.binder.Bind(q).Replace(ctx, d)
	})
	if err != nil {
		return err
	}
	logger.C(ctx).Info().Str("version", d.Version).Int("jurisdictions", len(d.Jurisdictions)).Msg("refdata seeded")

	if s.opts.Source == domain.SourcePG {
		s.mu.Lock()
		s.snap = nil
		s.mu.Unlock()
	}
	return nil
}
