// Package service runs nexus analyses: resolve reference data, ingest, evaluate, persist
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nexuscalc/internal/core/engine"
	"nexuscalc/internal/core/ledger"
	"nexuscalc/internal/core/money"
	"nexuscalc/internal/core/threshold"
	"nexuscalc/internal/core/vda"
	"nexuscalc/internal/modkit/repokit"
	perr "nexuscalc/internal/platform/errors"
	"nexuscalc/internal/platform/logger"
	pnet "nexuscalc/internal/platform/net"
	"nexuscalc/internal/platform/store"
	"nexuscalc/internal/services/analysis/domain"
	"nexuscalc/internal/services/analysis/metrics"
	"nexuscalc/internal/services/analysis/repo"
	"nexuscalc/internal/services/analysis/sink"
	refdomain "nexuscalc/internal/services/refdata/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service defines the analysis service contract
type Service interface {
	domain.RunnerPort
	domain.ImporterPort
	Migrate(ctx context.Context) error
}

// Options are the run defaults; requests may override exposure start and band basis
type Options struct {
	// MaxRejectRate is the rejected row fraction that aborts a batch; nil means the ledger default, 0 rejects nothing
	MaxRejectRate  *float64
	Parallelism    int
	ExposureFrom   engine.ExposureFrom
	BandBasis      threshold.BandBasis
	Persist        bool
	LookbackMonths int
	InterestWaiver decimal.Decimal
}

// Deps are the collaborators of the service. Refdata is required; the rest may be nil
type Deps struct {
	PG      repokit.TxRunner
	Binder  repokit.Binder[repo.Repo]
	Refdata refdomain.GatewayPort
	Sink    *sink.Sink
	Metrics *metrics.Metrics
}

// Svc implements Service
type Svc struct {
	db      repokit.TxRunner
	binder  repokit.Binder[repo.Repo]
	refdata refdomain.GatewayPort
	sink    *sink.Sink
	metrics *metrics.Metrics
	opts    Options

	rejectRate float64

	newID func() uuid.UUID
	now   func() time.Time
}

// New constructs an analysis service
func New(d Deps, opts Options) *Svc {
	if d.Refdata == nil {
		panic("analysis.Service requires a reference data gateway")
	}
	if d.PG != nil && d.Binder == nil {
		panic("analysis.Service requires a Repo binder when postgres is configured")
	}
	rejectRate := ledger.DefaultMaxRejectRate
	if opts.MaxRejectRate != nil && *opts.MaxRejectRate >= 0 {
		rejectRate = *opts.MaxRejectRate
	}
	return &Svc{
		rejectRate: rejectRate,
		db:         d.PG,
		binder:     d.Binder,
		refdata:    d.Refdata,
		sink:       d.Sink,
		metrics:    d.Metrics,
		opts:       opts,
		newID:      uuid.New,
		now:        time.Now,
	}
}

func (s *Svc) stored() bool { return s.db != nil }

func (s *Svc) repo() repo.Repo { return s.binder.Bind(s.db) }

// Migrate creates the postgres tables and the clickhouse facts table when configured
func (s *Svc) Migrate(ctx context.Context) error {
	if s.stored() {
		if err := s.repo().Migrate(ctx); err != nil {
			return err
		}
	}
	return s.sink.Migrate(ctx)
}

// clientFor resolves the client from the body or the request scope; both set must agree
func clientFor(ctx context.Context, body string) (string, error) {
	scoped := pnet.ClientID(ctx)
	body = strings.TrimSpace(body)
	switch {
	case body == "":
		return scoped, nil
	case scoped != "" && !strings.EqualFold(scoped, body):
		return "", perr.WithField(perr.InvalidArgf("client_id %s does not match the request client %s", body, scoped), "client_id")
	}
	if _, err := uuid.Parse(body); err != nil {
		return "", perr.WithField(perr.InvalidArgf("client_id must be a uuid"), "client_id")
	}
	return body, nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, perr.WithField(perr.InvalidArgf("%s must be YYYY-MM-DD, got %q", field, s), field)
	}
	return t, nil
}

// parsePhysical returns the overrides keyed by normalized code, plus their canonical string form
func parsePhysical(in map[string]string) (map[string]time.Time, map[string]string, error) {
	if len(in) == 0 {
		return nil, nil, nil
	}
	out := make(map[string]time.Time, len(in))
	canon := make(map[string]string, len(in))
	for code, v := range in {
		d, err := parseDate("physical_presence", v)
		if err != nil {
			return nil, nil, err
		}
		c := ledger.NormalizeJurisdiction(code)
		out[c] = d
		canon[c] = d.Format(time.DateOnly)
	}
	return out, canon, nil
}

func (s *Svc) engineOptions(in domain.AnalyzeInput) engine.Options {
	o := engine.Options{ExposureFrom: s.opts.ExposureFrom, BandBasis: s.opts.BandBasis, Parallelism: s.opts.Parallelism}
	if in.ExposureFrom != "" {
		o.ExposureFrom = engine.ExposureFrom(in.ExposureFrom)
	}
	if in.BandBasis != "" {
		o.BandBasis = threshold.BandBasis(in.BandBasis)
	}
	return o
}

// analysis is one evaluated request before persistence
type analysis struct {
	clientID string
	physical map[string]string
	batch    ledger.Batch
	report   *engine.Report
}

func (s *Svc) evaluate(ctx context.Context, in domain.AnalyzeInput) (analysis, error) {
	var a analysis
	clientID, err := clientFor(ctx, in.ClientID)
	if err != nil {
		return a, err
	}
	a.clientID = clientID

	asOf, err := parseDate("as_of", in.AsOf)
	if err != nil {
		return a, err
	}
	physical, canon, err := parsePhysical(in.Physical)
	if err != nil {
		return a, err
	}
	a.physical = canon

	ref, err := s.refdata.Snapshot(ctx)
	if err != nil {
		return a, err
	}

	if len(in.Transactions) > 0 {
		a.batch, err = ledger.Ingest(in.Transactions, ledger.IngestOptions{MaxRejectRate: s.rejectRate})
		s.metrics.AddRejectedRows(len(a.batch.Rejected))
		if err != nil {
			return a, err
		}
	} else {
		if a.batch, err = s.load(ctx, clientID); err != nil {
			return a, err
		}
	}

	a.report, err = engine.Run(ref, engine.Request{
		Transactions: a.batch.Accepted,
		AsOf:         asOf,
		Physical:     physical,
		Options:      s.engineOptions(in),
	})
	return a, err
}

func (s *Svc) load(ctx context.Context, clientID string) (ledger.Batch, error) {
	if clientID == "" {
		return ledger.Batch{}, perr.WithField(perr.InvalidArgf("transactions or a client_id with stored transactions are required"), "transactions")
	}
	if !s.stored() {
		return ledger.Batch{}, perr.Unavailablef("postgres is not configured; submit transactions inline")
	}
	var txns []ledger.Transaction
	if err := s.repo().StreamTransactions(ctx, clientID, func(t ledger.Transaction) error {
		txns = append(txns, t)
		return nil
	}); err != nil {
		return ledger.Batch{}, err
	}
	if len(txns) == 0 {
		return ledger.Batch{}, perr.WithField(perr.NotFoundf("client %s has no stored transactions", clientID), "client_id")
	}
	return ledger.Batch{Accepted: txns, Total: len(txns)}, nil
}

// Analyze evaluates nexus and liability for every jurisdiction in the ledger
func (s *Svc) Analyze(ctx context.Context, in domain.AnalyzeInput) (domain.AnalyzeResult, error) {
	start := s.now()
	runID := s.newID()
	ctx = logger.WithRun(ctx, runID.String())
	log := logger.C(ctx)

	a, err := s.evaluate(ctx, in)
	if err != nil {
		s.metrics.IncrementRun(outcomeOf(err))
		log.Warn().Err(err).Msg("analysis rejected")
		return domain.AnalyzeResult{}, err
	}

	res := domain.AnalyzeResult{
		RunID:    runID.String(),
		ClientID: a.clientID,
		Batch:    domain.SummaryOf(a.batch),
		Report:   a.report,
	}

	// the configured default only applies when the run can be stored; an explicit request must be honored
	persist := s.opts.Persist && a.clientID != "" && s.stored()
	if in.Persist != nil {
		persist = *in.Persist
	}
	if persist {
		if err := s.persist(ctx, runID, a); err != nil {
			s.metrics.IncrementRun("error")
			return domain.AnalyzeResult{}, err
		}
		res.Persisted = true
	}

	outcome := "ok"
	if a.report.Failed > 0 {
		outcome = "partial"
	}
	for _, jr := range a.report.Jurisdictions {
		if jr.Failed() {
			s.metrics.IncrementJurisdictionFailure(jr.Err.Code.String())
		}
	}
	s.metrics.IncrementRun(outcome)
	s.metrics.ObserveRunDuration(s.now().Sub(start))

	log.Info().
		Str("dataset_version", a.report.DatasetVersion).
		Int("transactions", len(a.batch.Accepted)).
		Int("rejected", len(a.batch.Rejected)).
		Int("jurisdictions", len(a.report.Jurisdictions)).
		Int("failed", a.report.Failed).
		Str("total", money.Format(a.report.Totals.Total)).
		Bool("persisted", res.Persisted).
		Dur("took", s.now().Sub(start)).
		Msg("analysis complete")
	return res, nil
}

func outcomeOf(err error) string {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeValidation, perr.ErrorCodeInvalidArgument, perr.ErrorCodeNotFound:
		return "rejected"
	}
	return "error"
}

func (s *Svc) persist(ctx context.Context, runID uuid.UUID, a analysis) error {
	if a.clientID == "" {
		return perr.WithField(perr.InvalidArgf("persisting a run requires a client_id"), "client_id")
	}
	if !s.stored() {
		return perr.Unavailablef("postgres is not configured")
	}
	run := runHeader(runID.String(), a)
	rows := determinations(a.report)

	err := store.RunForClient(ctx, s.db, a.clientID, func(ctx context.Context, q store.RowQuerier) error {
		r := s.binder.Bind(q)
		if err := r.InsertRun(ctx, run); err != nil {
			return err
		}
		return r.ReplaceDeterminations(ctx, a.clientID, run.ID, rows)
	})
	if err != nil {
		return err
	}

	if s.sink.Enabled() {
		clientUUID, _ := uuid.Parse(a.clientID)
		if n, err := s.sink.Write(ctx, runID, clientUUID, a.report); err != nil {
			// facts are analytics only; the run is already committed
			logger.C(ctx).Warn().Err(err).Msg("nexus facts not written")
		} else {
			logger.C(ctx).Debug().Int("rows", n).Msg("nexus facts written")
		}
	}
	return nil
}

func runHeader(id string, a analysis) domain.Run {
	rep := a.report
	return domain.Run{
		ID:             id,
		ClientID:       a.clientID,
		AsOf:           rep.AsOf,
		DatasetVersion: rep.DatasetVersion,
		ExposureFrom:   string(rep.Options.ExposureFrom),
		BandBasis:      string(rep.Options.BandBasis),
		Physical:       a.physical,
		Transactions:   a.batch.Total,
		Rejected:       len(a.batch.Rejected),
		Jurisdictions:  len(rep.Jurisdictions),
		Failed:         rep.Failed,
		TotalLiability: rep.Totals.Total,
	}
}

// determinations flattens a report into stored rows; a failed jurisdiction is one year 0 row carrying its error
func determinations(rep *engine.Report) []domain.Determination {
	var out []domain.Determination
	for _, jr := range rep.Jurisdictions {
		if jr.Failed() {
			out = append(out, domain.Determination{
				Jurisdiction: jr.Jurisdiction,
				ErrorCode:    jr.Err.Code.String(),
				Error:        jr.Err.Message,
			})
			continue
		}
		var start *time.Time
		if jr.Obligation != nil {
			d := jr.Obligation.Start
			start = &d
		}
		for _, y := range jr.Years {
			out = append(out, domain.Determination{
				Jurisdiction:       jr.Jurisdiction,
				Year:               y.Year,
				Status:             string(y.Determination.Status),
				Type:               string(y.Determination.Type),
				FirstTriggeredYear: y.Determination.FirstTriggeredYear,
				IsSticky:           y.Determination.IsSticky,
				ObligationStart:    start,
				Gross:              y.Aggregate.Gross,
				Taxable:            y.Aggregate.Taxable,
				Count:              y.Aggregate.Count,
				BaseTax:            y.Liability.BaseTax,
				Interest:           y.Liability.Interest,
				Penalties:          y.Liability.Penalties,
				Total:              y.Liability.Total,
			})
		}
	}
	return out
}

// VDA models voluntary disclosure. A run id re-runs that run's inputs against the client's stored
// transactions without persisting; an inline analysis is evaluated first
func (s *Svc) VDA(ctx context.Context, in domain.VDAInput) (domain.VDAResult, error) {
	params, err := s.vdaParams(in)
	if err != nil {
		s.metrics.IncrementVDA("rejected")
		return domain.VDAResult{}, err
	}

	var (
		runID string
		rep   *engine.Report
	)
	switch {
	case in.RunID != "" && in.Analysis != nil:
		err = perr.WithField(perr.InvalidArgf("give either run_id or analysis, not both"), "run_id")
	case in.RunID != "":
		runID = in.RunID
		rep, err = s.rerun(ctx, in.RunID)
	case in.Analysis != nil:
		var res domain.AnalyzeResult
		res, err = s.Analyze(ctx, *in.Analysis)
		runID, rep = res.RunID, res.Report
	default:
		err = perr.WithField(perr.InvalidArgf("run_id or analysis is required"), "run_id")
	}
	if err != nil {
		s.metrics.IncrementVDA("rejected")
		return domain.VDAResult{}, err
	}

	sc, err := engine.VDA(rep, in.Jurisdictions, params)
	if err != nil {
		s.metrics.IncrementVDA("rejected")
		return domain.VDAResult{}, err
	}
	s.metrics.IncrementVDA("ok")
	logger.C(logger.WithRun(ctx, runID)).Info().
		Strs("jurisdictions", sc.SelectedJurisdictions).
		Int("lookback_months", sc.LookbackMonths).
		Str("savings", money.Format(sc.Savings)).
		Msg("vda modeled")
	return domain.VDAResult{RunID: runID, Scenario: sc}, nil
}

func (s *Svc) vdaParams(in domain.VDAInput) (vda.Params, error) {
	p := vda.Params{LookbackMonths: s.opts.LookbackMonths, InterestWaiver: s.opts.InterestWaiver}
	if in.LookbackMonths != 0 {
		p.LookbackMonths = in.LookbackMonths
	}
	if in.InterestWaiver != nil {
		w, err := money.Parse(*in.InterestWaiver)
		if err != nil {
			return p, perr.WithField(perr.InvalidArgf("interest_waiver must be a decimal, got %q", *in.InterestWaiver), "interest_waiver")
		}
		p.InterestWaiver = w
	}
	return p, nil
}

func (s *Svc) rerun(ctx context.Context, runID string) (*engine.Report, error) {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	noPersist := false
	ctx = pnet.WithRequest(ctx, "", run.ClientID)
	a, err := s.evaluate(ctx, domain.AnalyzeInput{
		ClientID:     run.ClientID,
		AsOf:         run.AsOf.Format(time.DateOnly),
		Physical:     run.Physical,
		ExposureFrom: run.ExposureFrom,
		BandBasis:    run.BandBasis,
		Persist:      &noPersist,
	})
	if err != nil {
		return nil, err
	}
	if a.report.DatasetVersion != run.DatasetVersion {
		logger.C(ctx).Warn().
			Str("run_dataset", run.DatasetVersion).
			Str("current_dataset", a.report.DatasetVersion).
			Msg("vda re-run uses a newer reference dataset than the stored run")
	}
	return a.report, nil
}

func (s *Svc) getRun(ctx context.Context, id string) (domain.Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Run{}, perr.WithField(perr.InvalidArgf("run id must be a uuid"), "id")
	}
	if !s.stored() {
		return domain.Run{}, perr.Unavailablef("postgres is not configured")
	}
	run, err := s.repo().GetRun(ctx, id)
	if err != nil {
		return domain.Run{}, err
	}
	if scoped := pnet.ClientID(ctx); scoped != "" && !strings.EqualFold(scoped, run.ClientID) {
		return domain.Run{}, perr.WithField(perr.NotFoundf("analysis run %s not found", id), "id")
	}
	return run, nil
}

// Run returns a stored run header with its determinations
func (s *Svc) Run(ctx context.Context, id string) (domain.Run, error) {
	run, err := s.getRun(ctx, id)
	if err != nil {
		return domain.Run{}, err
	}
	run.Determinations, err = s.repo().Determinations(ctx, id)
	if err != nil {
		return domain.Run{}, err
	}
	return run, nil
}

// Import validates rows and stores the accepted ones for the client
func (s *Svc) Import(ctx context.Context, in domain.ImportInput) (domain.ImportResult, error) {
	clientID, err := clientFor(ctx, in.ClientID)
	if err != nil {
		return domain.ImportResult{}, err
	}
	if clientID == "" {
		return domain.ImportResult{}, perr.WithField(perr.InvalidArgf("client_id is required"), "client_id")
	}
	if !s.stored() {
		return domain.ImportResult{}, perr.Unavailablef("postgres is not configured")
	}

	batch, err := ledger.Ingest(in.Transactions, ledger.IngestOptions{MaxRejectRate: s.rejectRate})
	s.metrics.AddRejectedRows(len(batch.Rejected))
	if err != nil {
		return domain.ImportResult{}, err
	}
	assignIDs(clientID, batch.Accepted)

	var stored int
	err = store.RunForClient(ctx, s.db, clientID, func(ctx context.Context, q store.RowQuerier) error {
		n, err := s.binder.Bind(q).ImportTransactions(ctx, clientID, batch.Accepted)
		stored = n
		return err
	})
	if err != nil {
		return domain.ImportResult{}, err
	}
	logger.C(ctx).Info().Int("stored", stored).Int("rejected", len(batch.Rejected)).Msg("transactions imported")
	return domain.ImportResult{ClientID: clientID, Stored: stored, Batch: domain.SummaryOf(batch)}, nil
}

// assignIDs gives rows without an id a stable one derived from the client and row content,
// so re-importing the same file upserts instead of duplicating
func assignIDs(clientID string, txns []ledger.Transaction) {
	ns, err := uuid.Parse(clientID)
	if err != nil {
		ns = uuid.NameSpaceOID
	}
	seen := map[string]int{}
	for i := range txns {
		t := &txns[i]
		if t.ID != "" {
			continue
		}
		key := fmt.Sprintf("%s|%s|%s|%s|%s", t.Date.Format(time.DateOnly), t.Jurisdiction, t.Gross, t.Exempt, t.Channel)
		seen[key]++
		t.ID = uuid.NewSHA1(ns, []byte(fmt.Sprintf("%s|%d", key, seen[key]))).String()
	}
}

var _ Service = (*Svc)(nil)
