package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/seguimed/cmpscrape/internal/metrics"
)

// Notifier reports a fatal run-level failure through an alert channel.
type Notifier interface {
	NotifyFatal(subject, body string)
}

// RunConfig configures one scrape run end to end.
type RunConfig struct {
	Browser  BrowserConfig
	Workflow WorkflowConfig

	Retries int
	Backoff time.Duration

	// PaceQPS caps how often a new identifier may start; zero disables
	// pacing. Processing stays strictly sequential either way.
	PaceQPS float64

	DebugDir     string
	FailedPath   string
	ErrorLogPath string
}

// Orchestrator owns the browser process for a run and iterates identifiers
// sequentially through the retry controller. Sequential processing is a
// deliberate policy: the portal is presented load at human-like cadence.
type Orchestrator struct {
	cfg      RunConfig
	store    Persister
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewOrchestrator wires the run-level collaborators.
func NewOrchestrator(cfg RunConfig, store Persister, notifier Notifier, m *metrics.Metrics, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// identifierProcessor is what the run loop needs from the retry controller.
type identifierProcessor interface {
	Process(ctx context.Context, cmp string) (Outcome, error)
}

// Run launches the browser, processes every identifier and returns the run
// totals. A returned error is fatal: it has already been reported to the
// notifier and the caller should exit non-zero.
func (o *Orchestrator) Run(ctx context.Context, cmps []string) (Summary, error) {
	logger := o.logger.With(zap.String("run_id", uuid.NewString()))

	browser, err := Launch(ctx, o.cfg.Browser)
	if err != nil {
		return o.abort(logger, Summary{}, err)
	}
	defer browser.Close()

	capture := NewDebugCapture(o.cfg.DebugDir, logger)
	workflow := NewWorkflow(o.cfg.Workflow, NewRecaptchaProvider(), capture, logger)
	controller := NewRetryController(
		RetryControllerConfig{Retries: o.cfg.Retries, Backoff: o.cfg.Backoff},
		browser,
		workflow,
		capture,
		o.store,
		NewFailureLedger(o.cfg.FailedPath),
		NewErrorLog(o.cfg.ErrorLogPath, SystemClock{}),
		SystemClock{},
		logger,
	)

	summary, err := o.processAll(ctx, controller, cmps, logger)
	if err != nil {
		return o.abort(logger, summary, err)
	}
	return summary, nil
}

func (o *Orchestrator) processAll(ctx context.Context, proc identifierProcessor, cmps []string, logger *zap.Logger) (summary Summary, err error) {
	var limiter *rate.Limiter
	if o.cfg.PaceQPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.cfg.PaceQPS), 1)
	}

	start := time.Now()
	defer func() { summary.Elapsed = time.Since(start) }()

	for _, cmp := range cmps {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return summary, err
			}
		}

		out, err := proc.Process(ctx, cmp)
		o.observe(out)
		if err != nil {
			return summary, err
		}
		if out.Succeeded {
			summary.Successes++
		} else {
			summary.Failures++
		}
	}

	fields := []zap.Field{
		zap.Int("successes", summary.Successes),
		zap.Int("failures", summary.Failures),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("failed_ledger", o.cfg.FailedPath),
	}
	if o.metrics != nil {
		snap := o.metrics.Snapshot()
		fields = append(fields,
			zap.Float64("lookup_attempts_total", snap.Attempts),
			zap.Float64("lookup_seconds_total", snap.DurationSeconds))
	}
	logger.Info("Scrape run completed", fields...)
	return summary, nil
}

func (o *Orchestrator) observe(out Outcome) {
	if o.metrics == nil {
		return
	}
	o.metrics.ObserveLookup(out.Succeeded, out.Attempts, out.Elapsed)
}

// abort logs the fatal error and delegates to the notifier. Per-identifier
// failures never reach this path; only run-level errors do.
func (o *Orchestrator) abort(logger *zap.Logger, summary Summary, err error) (Summary, error) {
	logger.Error("Scrape run aborted", zap.Error(err))
	if o.notifier != nil {
		o.notifier.NotifyFatal(
			"Scraper stopped",
			"The scrape run stopped due to a fatal error: "+err.Error(),
		)
	}
	return summary, err
}
