package locator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/reportlocator/internal/report"
)

var (
	// ErrInvalidArgument is returned when the case number is empty.
	ErrInvalidArgument = errors.New("case number is required")
	// ErrCatalogUnavailable is returned when the database list cannot be read.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrNotFound is returned when no database holds the case number.
	ErrNotFound = errors.New("report not found")
)

// Strategy selects how databases are probed.
type Strategy string

const (
	// Sequential probes one database at a time in catalog order.
	Sequential Strategy = "sequential"
	// Parallel fans probes out and takes the first answer. With duplicates
	// across databases the winner is not tied to catalog order.
	Parallel Strategy = "parallel"
)

// ParseStrategy validates a strategy name. Empty means Sequential.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Sequential:
		return Sequential, nil
	case Parallel:
		return Parallel, nil
	}
	return "", fmt.Errorf("unknown scan strategy %q (want %q or %q)", s, Sequential, Parallel)
}

// Cluster lists candidate databases and opens scoped sessions on them.
type Cluster interface {
	ListDatabases(ctx context.Context) ([]string, error)
	Open(ctx context.Context, database string) (Session, error)
}

// Session is a connection bound to one database for the span of one probe.
type Session interface {
	FindCase(ctx context.Context, caseNumber string) (*report.CaseRecord, bool, error)
	Close(ctx context.Context) error
}

// Options configures a Locator.
type Options struct {
	Strategy    Strategy
	Parallelism int           // parallel strategy only; default 4
	Timeout     time.Duration // end-to-end deadline per Locate; 0 disables
	Recorder    Recorder      // optional
}

// Locator finds a case record by scanning every database in the catalog.
type Locator struct {
	cluster     Cluster
	strategy    Strategy
	parallelism int
	timeout     time.Duration
	recorder    Recorder
}

// New returns a Locator over c.
func New(c Cluster, opts Options) *Locator {
	if opts.Strategy == "" {
		opts.Strategy = Sequential
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	return &Locator{
		cluster:     c,
		strategy:    opts.Strategy,
		parallelism: opts.Parallelism,
		timeout:     opts.Timeout,
		recorder:    opts.Recorder,
	}
}

// Catalog returns the names of all non-reserved databases in enumeration order.
func (l *Locator) Catalog(ctx context.Context) ([]string, error) {
	names, err := l.cluster.ListDatabases(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return names, nil
}

// Locate returns the first record whose case number matches caseNumber.
//
// The id is matched exactly as given; surrounding whitespace is part of it.
//
// Errors: ErrInvalidArgument for an empty or blank id, ErrCatalogUnavailable when the
// database list cannot be read, ErrNotFound when the scan is exhausted, and
// the context error when the deadline expires mid-scan. A probe that fails
// to connect or query is logged and counted as a non-match.
func (l *Locator) Locate(ctx context.Context, caseNumber string) (report.Result, error) {
	start := time.Now()
	scanID := uuid.New().String()
	log := slog.With("scan_id", scanID, "case_number", caseNumber)

	out := Outcome{ScanID: scanID, CaseNumber: caseNumber}
	res, probed, err := l.locate(ctx, log, caseNumber)
	out.Probed = probed
	out.Duration = time.Since(start)
	switch {
	case err == nil:
		out.Status = StatusFound
		out.Database = res.Database
	case errors.Is(err, ErrInvalidArgument):
		out.Status = StatusInvalid
	case errors.Is(err, ErrNotFound):
		out.Status = StatusNotFound
	default:
		out.Status = StatusError
	}
	l.record(ctx, log, out)
	return res, err
}

func (l *Locator) locate(ctx context.Context, log *slog.Logger, caseNumber string) (report.Result, int, error) {
	if strings.TrimSpace(caseNumber) == "" {
		return report.Result{}, 0, ErrInvalidArgument
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	dbs, err := l.Catalog(ctx)
	if err != nil {
		log.Error("enumerating catalog", "error", err)
		return report.Result{}, 0, err
	}
	log.Debug("catalog enumerated", "databases", strings.Join(dbs, ", "))

	if l.strategy == Parallel {
		return l.scanParallel(ctx, log, dbs, caseNumber)
	}
	return l.scanSequential(ctx, log, dbs, caseNumber)
}

func (l *Locator) scanSequential(ctx context.Context, log *slog.Logger, dbs []string, caseNumber string) (report.Result, int, error) {
	probed := 0
	for _, db := range dbs {
		if err := ctx.Err(); err != nil {
			return report.Result{}, probed, fmt.Errorf("scan interrupted after %d databases: %w", probed, err)
		}
		probed++
		rec, ok := l.probe(ctx, log, db, caseNumber)
		if ok {
			log.Info("case found", "database", db, "probed", probed)
			return report.Result{Database: db, Report: rec}, probed, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return report.Result{}, probed, fmt.Errorf("scan interrupted after %d databases: %w", probed, err)
	}
	return report.Result{}, probed, ErrNotFound
}

func (l *Locator) scanParallel(ctx context.Context, log *slog.Logger, dbs []string, caseNumber string) (report.Result, int, error) {
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type hit struct {
		db  string
		rec *report.CaseRecord
	}
	hits := make(chan hit, 1)
	probed := make(chan struct{}, len(dbs))

	g, gctx := errgroup.WithContext(scanCtx)
	g.SetLimit(l.parallelism)
	for _, db := range dbs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			probed <- struct{}{}
			rec, ok := l.probe(gctx, log, db, caseNumber)
			if !ok {
				return nil
			}
			select {
			case hits <- hit{db: db, rec: rec}:
				cancel()
			default:
			}
			return nil
		})
	}
	g.Wait()
	close(hits)
	n := len(probed)

	if h, ok := <-hits; ok {
		log.Info("case found", "database", h.db, "probed", n)
		return report.Result{Database: h.db, Report: h.rec}, n, nil
	}
	if err := ctx.Err(); err != nil {
		return report.Result{}, n, fmt.Errorf("scan interrupted after %d databases: %w", n, err)
	}
	return report.Result{}, n, ErrNotFound
}

// probe opens a session on db, queries it and always closes the session.
func (l *Locator) probe(ctx context.Context, log *slog.Logger, db, caseNumber string) (*report.CaseRecord, bool) {
	sess, err := l.cluster.Open(ctx, db)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("opening database", "database", db, "error", err)
		}
		return nil, false
	}
	defer func() {
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("closing database", "database", db, "error", err)
		}
	}()

	rec, ok, err := sess.FindCase(ctx, caseNumber)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("querying database", "database", db, "error", err)
		}
		return nil, false
	}
	return rec, ok
}
