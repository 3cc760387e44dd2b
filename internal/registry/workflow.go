package registry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Selectors on the portal's search and results pages.
const (
	selectorCMPInput   = `input[name="cmp"]`
	selectorLastName   = `input[name="appaterno"]`
	selectorMotherName = `input[name="apmaterno"]`
	selectorGivenNames = `input[name="nombres"]`
	selectorSubmit     = `input[type="submit"][value="Buscar"]`
	selectorDetailLink = `a[href*="datos-colegiado-detallado.php"]`

	challengeResponseID = "g-recaptcha-response"
)

// WorkflowConfig bounds every wait in the lookup state machine.
type WorkflowConfig struct {
	BaseURL string
	SiteKey string
	Action  string

	PageLoadTimeout   time.Duration
	InputTimeout      time.Duration
	SubmitNavTimeout  time.Duration
	DetailLinkTimeout time.Duration
	ReloadPause       time.Duration

	SettleDelay     time.Duration
	SettleJitterMin time.Duration
	SettleJitterMax time.Duration
	TypeDelayMin    time.Duration
	TypeDelayMax    time.Duration
}

// DefaultWorkflowConfig returns the timeouts and constants the portal is
// known to tolerate.
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		BaseURL:           "https://aplicaciones.cmp.org.pe/conoce_a_tu_medico/",
		SiteKey:           "6LcYiNwrAAAAAB2vkiot46ogkFJj0MRakLVZTQRa",
		Action:            "colegiados_busqueda",
		PageLoadTimeout:   60 * time.Second,
		InputTimeout:      20 * time.Second,
		SubmitNavTimeout:  15 * time.Second,
		DetailLinkTimeout: 20 * time.Second,
		ReloadPause:       2 * time.Second,
		SettleDelay:       3 * time.Second,
		SettleJitterMin:   500 * time.Millisecond,
		SettleJitterMax:   1500 * time.Millisecond,
		TypeDelayMin:      50 * time.Millisecond,
		TypeDelayMax:      120 * time.Millisecond,
	}
}

// StepError classifies which workflow step failed. The retry controller
// decides what to do with it; the workflow itself never retries beyond the
// single internal home reload.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// Workflow drives one browser page through the full lookup interaction for
// one identifier: load the search form, obtain a challenge token, submit,
// follow the detail link and return the detail-page markup.
type Workflow struct {
	cfg       WorkflowConfig
	challenge ChallengeProvider
	capture   *DebugCapture
	logger    *zap.Logger
}

// NewWorkflow builds a workflow around the shared challenge provider and
// debug capture.
func NewWorkflow(cfg WorkflowConfig, challenge ChallengeProvider, capture *DebugCapture, logger *zap.Logger) *Workflow {
	return &Workflow{
		cfg:       cfg,
		challenge: challenge,
		capture:   capture,
		logger:    logger,
	}
}

// FetchDetail runs the full state machine on the page bound to pageCtx and
// returns the detail-page markup.
func (w *Workflow) FetchDetail(pageCtx context.Context, cmp string) (string, error) {
	if err := w.loadHome(pageCtx, cmp); err != nil {
		return "", err
	}
	if err := w.fillForm(pageCtx, cmp); err != nil {
		return "", err
	}
	if err := w.solveChallenge(pageCtx); err != nil {
		return "", err
	}
	if err := w.submit(pageCtx, cmp); err != nil {
		return "", err
	}
	if err := w.settle(pageCtx); err != nil {
		return "", &StepError{Step: "settle after submit", Err: err}
	}
	detailURL, err := w.findDetailLink(pageCtx, cmp)
	if err != nil {
		return "", err
	}
	return w.fetchDetailPage(pageCtx, detailURL)
}

// loadHome requests the search form and waits for the identifier input to
// become visible, allowing one reload for a transient render stall. A second
// stall is terminal and captured as home_timeout.
func (w *Workflow) loadHome(pageCtx context.Context, cmp string) error {
	homeURL := w.resolve("index.php")
	for attempt := 0; attempt < 2; attempt++ {
		navCtx, cancelNav := context.WithTimeout(pageCtx, w.cfg.PageLoadTimeout)
		err := chromedp.Run(navCtx, chromedp.Navigate(homeURL))
		cancelNav()
		if err != nil {
			return &StepError{Step: "load home page", Err: err}
		}

		waitCtx, cancelWait := context.WithTimeout(pageCtx, w.cfg.InputTimeout)
		err = chromedp.Run(waitCtx, chromedp.WaitVisible(selectorCMPInput, chromedp.ByQuery))
		cancelWait()
		if err == nil {
			return nil
		}
		if attempt == 1 {
			w.capture.Dump(pageCtx, cmp, TagHomeTimeout)
			return &StepError{Step: "wait for search form", Err: err}
		}
		w.logger.Warn("Search form not visible, reloading home page", zap.String("cmp", cmp))
		if err := sleepCtx(pageCtx, w.cfg.ReloadPause); err != nil {
			return &StepError{Step: "wait for search form", Err: err}
		}
	}
	return nil
}

// fillForm types the identifier at human cadence and blanks the optional
// name fields.
func (w *Workflow) fillForm(pageCtx context.Context, cmp string) error {
	fields := []struct {
		selector string
		value    string
	}{
		{selectorCMPInput, cmp},
		{selectorLastName, ""},
		{selectorMotherName, ""},
		{selectorGivenNames, ""},
	}
	for _, field := range fields {
		if err := w.humanType(pageCtx, field.selector, field.value); err != nil {
			return &StepError{Step: "fill search form", Err: err}
		}
	}
	return nil
}

// humanType clears the field and emits one keystroke at a time with a
// randomized delay to emulate human input cadence. The whole interaction is
// bounded by InputTimeout so a wedged page cannot stall the attempt.
func (w *Workflow) humanType(pageCtx context.Context, selector, text string) error {
	typeCtx, cancel := context.WithTimeout(pageCtx, w.cfg.InputTimeout)
	defer cancel()
	err := chromedp.Run(typeCtx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("clear %s: %w", selector, err)
	}
	for _, r := range text {
		if err := chromedp.Run(typeCtx, chromedp.SendKeys(selector, string(r), chromedp.ByQuery)); err != nil {
			return fmt.Errorf("type into %s: %w", selector, err)
		}
		if err := sleepCtx(typeCtx, randBetween(w.cfg.TypeDelayMin, w.cfg.TypeDelayMax)); err != nil {
			return err
		}
	}
	return nil
}

// solveChallenge asks the provider for a token and writes it into the hidden
// response field the form expects.
func (w *Workflow) solveChallenge(pageCtx context.Context) error {
	token, err := w.challenge.Token(pageCtx, w.cfg.SiteKey, w.cfg.Action)
	if err != nil {
		return &StepError{Step: "solve challenge", Err: err}
	}
	fillCtx, cancel := context.WithTimeout(pageCtx, w.cfg.InputTimeout)
	defer cancel()
	expr := fmt.Sprintf(
		"(() => { const el = document.getElementById(%q); if (el) { el.value = %q; } })()",
		challengeResponseID, token,
	)
	if err := chromedp.Run(fillCtx, chromedp.Evaluate(expr, nil)); err != nil {
		return &StepError{Step: "solve challenge", Err: fmt.Errorf("fill response field: %w", err)}
	}
	return nil
}

// submit clicks the search control and waits for the resulting navigation.
// A missing navigation within the bound is terminal for this attempt.
func (w *Workflow) submit(pageCtx context.Context, cmp string) error {
	loaded := make(chan struct{}, 1)
	listenCtx, stopListening := context.WithCancel(pageCtx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if _, ok := ev.(*page.EventLoadEventFired); ok {
			select {
			case loaded <- struct{}{}:
			default:
			}
		}
	})

	clickCtx, cancelClick := context.WithTimeout(pageCtx, w.cfg.InputTimeout)
	err := chromedp.Run(clickCtx, chromedp.Click(selectorSubmit, chromedp.ByQuery))
	cancelClick()
	if err != nil {
		return &StepError{Step: "submit search", Err: err}
	}

	timer := time.NewTimer(w.cfg.SubmitNavTimeout)
	defer timer.Stop()
	select {
	case <-loaded:
		return nil
	case <-timer.C:
		return &StepError{Step: "submit search", Err: fmt.Errorf("no navigation after submitting CMP %s", cmp)}
	case <-pageCtx.Done():
		return &StepError{Step: "submit search", Err: pageCtx.Err()}
	}
}

// settle pauses after submission so the results page can render the detail
// link asynchronously.
func (w *Workflow) settle(pageCtx context.Context) error {
	return sleepCtx(pageCtx, w.cfg.SettleDelay+randBetween(w.cfg.SettleJitterMin, w.cfg.SettleJitterMax))
}

// findDetailLink waits for the detail link to become visible and resolves its
// target to an absolute URL. An absent or empty link is terminal.
func (w *Workflow) findDetailLink(pageCtx context.Context, cmp string) (string, error) {
	waitCtx, cancel := context.WithTimeout(pageCtx, w.cfg.DetailLinkTimeout)
	defer cancel()

	var href string
	var ok bool
	err := chromedp.Run(waitCtx,
		chromedp.WaitVisible(selectorDetailLink, chromedp.ByQuery),
		chromedp.AttributeValue(selectorDetailLink, "href", &href, &ok, chromedp.ByQuery),
	)
	if err != nil {
		return "", &StepError{Step: "find detail link", Err: err}
	}
	if !ok || href == "" {
		return "", &StepError{Step: "find detail link", Err: fmt.Errorf("empty detail link for CMP %s", cmp)}
	}
	return w.resolve(href), nil
}

// fetchDetailPage loads the detail URL and returns the rendered markup.
func (w *Workflow) fetchDetailPage(pageCtx context.Context, detailURL string) (string, error) {
	loadCtx, cancel := context.WithTimeout(pageCtx, w.cfg.PageLoadTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(loadCtx,
		chromedp.Navigate(detailURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", &StepError{Step: "fetch detail page", Err: err}
	}
	return html, nil
}

func (w *Workflow) resolve(ref string) string {
	base, err := url.Parse(w.cfg.BaseURL)
	if err != nil {
		return ref
	}
	target, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(target).String()
}

func randBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
