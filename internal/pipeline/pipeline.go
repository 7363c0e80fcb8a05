package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
	"github.com/couchcryptid/cdr-indicators-etl/internal/indicator"
	"github.com/couchcryptid/cdr-indicators-etl/internal/observability"
	"github.com/couchcryptid/cdr-indicators-etl/internal/rollup"
)

// Extractor reads the survey tables, legacy values and indicator metadata.
type Extractor interface {
	Extract(ctx context.Context) (domain.Sources, error)
}

// Loader writes the published indicator table to one destination.
type Loader interface {
	Name() string
	Load(ctx context.Context, rows []domain.OutputRow) error
}

// Options tunes a Pipeline. Zero values fall back to defaults.
type Options struct {
	Calculators   []indicator.Calculator
	Countries     map[string]string
	MaxRetries    int
	RetryInterval time.Duration
	Clock         clockwork.Clock
}

// Summary describes a completed run.
type Summary struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Rows      int
	Warnings  int
	Err       error
}

// Pipeline orchestrates one extract, compute and load run.
type Pipeline struct {
	extractor Extractor
	loaders   []Loader
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
	ready     atomic.Bool
	last      atomic.Pointer[Summary]
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.Calculators == nil {
		opts.Calculators = indicator.Calculators()
	}
	if opts.Countries == nil {
		opts.Countries = indicator.DefaultCountryCodes()
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		extractor: e,
		loaders:   loaders,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no indicator run has completed yet")
	}
	return nil
}

// LastRun returns the summary of the most recent run, if any.
func (p *Pipeline) LastRun() (Summary, bool) {
	sum := p.last.Load()
	if sum == nil {
		return Summary{}, false
	}
	return *sum, true
}

// Run executes a single batch: extract, compute, roll up and load.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString(), StartedAt: p.opts.Clock.Now()}
	logger := p.logger.With("run_id", sum.RunID)
	ctx = domain.WithRunID(ctx, sum.RunID)

	logger.Info("pipeline started", "loaders", len(p.loaders), "calculators", len(p.opts.Calculators))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	rows, warnings, err := p.run(ctx, logger)
	sum.Duration = p.opts.Clock.Since(sum.StartedAt)
	sum.Rows = len(rows)
	sum.Warnings = warnings
	sum.Err = err
	p.metrics.RunDuration.Observe(sum.Duration.Seconds())
	p.last.Store(&sum)

	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		logger.Error("pipeline failed", "error", err, "duration", sum.Duration)
		return sum, err
	}

	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.LastSuccess.Set(float64(p.opts.Clock.Now().Unix()))
	p.ready.Store(true)
	logger.Info("pipeline finished", "rows", sum.Rows, "warnings", sum.Warnings, "duration", sum.Duration)
	return sum, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger) ([]domain.OutputRow, int, error) {
	src, err := p.extractor.Extract(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("extract sources: %w", err)
	}
	logger.Info("sources extracted", "surveys", len(src.Surveys), "legacy", len(src.Legacy), "metadata", len(src.Metadata))

	out, warnings, err := p.Transform(ctx, src, logger)
	if err != nil {
		return nil, warnings, err
	}

	if err := p.load(ctx, logger, out); err != nil {
		return out, warnings, err
	}
	return out, warnings, nil
}

// Transform computes every indicator from src and returns the published
// rows together with the number of data-quality warnings raised.
func (p *Pipeline) Transform(ctx context.Context, src domain.Sources, logger *slog.Logger) ([]domain.OutputRow, int, error) {
	outputs, err := indicator.Compute(ctx, src, p.opts.Calculators)
	if err != nil {
		return nil, 0, err
	}

	warnings := 0
	computed := 0
	for _, o := range outputs {
		p.metrics.IndicatorRows.WithLabelValues(o.Code).Set(float64(len(o.Rows)))
		computed += len(o.Rows)
		for _, w := range o.Warnings {
			warnings++
			p.metrics.QualityWarning.WithLabelValues(w.Indicator, w.Kind).Inc()
			logger.Warn(w.Message,
				"indicator", w.Indicator,
				"kind", w.Kind,
				"country", w.Country,
				"year", w.Year,
			)
		}
	}
	p.stage(logger, "compute", "indicators computed", computed)

	rows := indicator.Combine(indicator.LoadLegacy(src.Legacy, p.opts.Countries), outputs)
	p.stage(logger, "combine", "legacy values combined", len(rows))

	rows = rollup.JoinMetadata(rows, src.Metadata)
	p.stage(logger, "join", "metadata joined", len(rows))

	rows = rollup.Aggregate(rows)
	p.stage(logger, "aggregate", "spatial aggregation applied", len(rows))

	rows = rollup.Fill(rows)
	p.stage(logger, "fill", "missing values filled", len(rows))

	rows = rollup.Cumulate(rows)
	p.stage(logger, "cumulate", "indicators cumulated", len(rows))

	return rollup.Project(rows), warnings, nil
}

func (p *Pipeline) stage(logger *slog.Logger, stage, msg string, n int) {
	p.metrics.StageRows.WithLabelValues(stage).Set(float64(n))
	logger.Info(msg, "rows", n)
}

// load runs every loader concurrently. A loader failing after its retries
// fails the run; the other loaders are cancelled.
func (p *Pipeline) load(ctx context.Context, logger *slog.Logger, rows []domain.OutputRow) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range p.loaders {
		g.Go(func() error {
			return p.loadWithRetry(gctx, logger.With("loader", l.Name()), l, rows)
		})
	}
	return g.Wait()
}

func (p *Pipeline) loadWithRetry(ctx context.Context, logger *slog.Logger, l Loader, rows []domain.OutputRow) error {
	attempt := 0
	op := func() error {
		attempt++
		err := l.Load(ctx, rows)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if attempt <= p.opts.MaxRetries {
			p.metrics.LoaderWrites.WithLabelValues(l.Name(), "retry").Inc()
			logger.Warn("load failed, retrying", "error", err, "attempt", attempt)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.opts.RetryInterval), uint64(p.opts.MaxRetries)),
		ctx,
	)
	if err := backoff.Retry(op, b); err != nil {
		p.metrics.LoaderWrites.WithLabelValues(l.Name(), "error").Inc()
		return fmt.Errorf("load %s: %w", l.Name(), err)
	}
	p.metrics.LoaderWrites.WithLabelValues(l.Name(), "success").Inc()
	logger.Info("rows loaded", "rows", len(rows), "attempts", attempt)
	return nil
}
