package registry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Lookup runs the browser interaction for one identifier on the given page.
type Lookup interface {
	FetchDetail(pageCtx context.Context, cmp string) (string, error)
}

// Pages opens per-attempt pages on a shared browsing context.
type Pages interface {
	NewTab() (context.Context, context.CancelFunc)
}

// Capturer snapshots page state at a classified failure point.
type Capturer interface {
	Dump(pageCtx context.Context, cmp, tag string)
}

// Persister stores a successful lookup. Implementations must be idempotent:
// the status is last-write-wins and specialties are additive-only.
type Persister interface {
	SaveDoctor(ctx context.Context, doc Doctor) error
}

// RetryControllerConfig bounds the per-identifier retry policy.
type RetryControllerConfig struct {
	// Retries is the number of retries after the first attempt, so every
	// identifier gets Retries+1 attempts.
	Retries int
	Backoff time.Duration
}

// RetryController wraps the lookup workflow with the bounded retry policy:
// exactly one outcome per identifier, either persisted or ledgered.
type RetryController struct {
	cfg     RetryControllerConfig
	pages   Pages
	lookup  Lookup
	capture Capturer
	store   Persister
	ledger  *FailureLedger
	errlog  *ErrorLog
	clock   Clock
	logger  *zap.Logger
}

// NewRetryController wires the controller's collaborators.
func NewRetryController(
	cfg RetryControllerConfig,
	pages Pages,
	lookup Lookup,
	capture Capturer,
	store Persister,
	ledger *FailureLedger,
	errlog *ErrorLog,
	clock Clock,
	logger *zap.Logger,
) *RetryController {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &RetryController{
		cfg:     cfg,
		pages:   pages,
		lookup:  lookup,
		capture: capture,
		store:   store,
		ledger:  ledger,
		errlog:  errlog,
		clock:   clock,
		logger:  logger,
	}
}

// Process runs up to Retries+1 attempts for one identifier. Attempt failures
// are logged and debug-captured; exhaustion appends the identifier to the
// failure ledger. A non-nil error is returned only for run-fatal conditions
// (context cancellation), never for per-identifier failures.
func (c *RetryController) Process(ctx context.Context, cmp string) (out Outcome, err error) {
	out = Outcome{CMP: cmp}
	total := c.cfg.Retries + 1
	start := c.clock.Now()
	defer func() { out.Elapsed = c.clock.Now().Sub(start) }()

	for attempt := 1; attempt <= total; attempt++ {
		out.Attempts = attempt
		c.logger.Info("Processing CMP",
			zap.String("cmp", cmp), zap.Int("attempt", attempt), zap.Int("attempts_allowed", total))

		attemptStart := c.clock.Now()
		doc, err := c.attempt(ctx, cmp)
		c.logger.Info("CMP attempt finished",
			zap.String("cmp", cmp), zap.Int("attempt", attempt),
			zap.Duration("elapsed", c.clock.Now().Sub(attemptStart)))

		if err == nil {
			out.Succeeded = true
			out.Status = doc.Status
			c.logger.Info("Saved CMP",
				zap.String("cmp", cmp), zap.String("status", doc.Status),
				zap.Int("specialties", len(doc.Specialties)))
			return out, nil
		}

		c.logger.Error("CMP attempt failed", zap.String("cmp", cmp), zap.Error(err))
		if logErr := c.errlog.Append(cmp, err.Error()); logErr != nil {
			c.logger.Error("Could not append to error log", zap.String("cmp", cmp), zap.Error(logErr))
		}
		if ctx.Err() != nil {
			return out, ctx.Err()
		}

		if attempt == total {
			if ledgerErr := c.ledger.Append(cmp); ledgerErr != nil {
				c.logger.Error("Could not append to failure ledger", zap.String("cmp", cmp), zap.Error(ledgerErr))
			} else {
				c.logger.Warn("CMP added to failure ledger",
					zap.String("cmp", cmp), zap.String("path", c.ledger.Path()))
			}
			return out, nil
		}
		if sleepErr := sleepCtx(ctx, c.cfg.Backoff); sleepErr != nil {
			return out, sleepErr
		}
	}
	return out, nil
}

// attempt opens a fresh page, runs the workflow, extracts and persists. The
// page is closed on every exit path. An empty extracted status is a failure
// equivalent to a workflow error.
func (c *RetryController) attempt(ctx context.Context, cmp string) (Doctor, error) {
	pageCtx, closePage := c.pages.NewTab()
	defer closePage()

	html, err := c.lookup.FetchDetail(pageCtx, cmp)
	if err != nil {
		c.capture.Dump(pageCtx, cmp, TagError)
		return Doctor{}, err
	}

	result, err := ExtractDetails(html)
	if err != nil {
		c.capture.Dump(pageCtx, cmp, TagError)
		return Doctor{}, err
	}
	if result.Status == "" {
		c.capture.Dump(pageCtx, cmp, TagMissingStatus)
		return Doctor{}, fmt.Errorf("no status extracted for CMP %s", cmp)
	}

	doc := Doctor{CMP: cmp, Status: result.Status, Specialties: result.Specialties}
	if err := c.store.SaveDoctor(ctx, doc); err != nil {
		c.capture.Dump(pageCtx, cmp, TagError)
		return Doctor{}, fmt.Errorf("persist CMP %s: %w", cmp, err)
	}
	return doc, nil
}
