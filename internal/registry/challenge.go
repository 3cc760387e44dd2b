package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChallengeProvider obtains a proof-of-interaction token for a form
// submission. Production drives the page's own challenge client; the workflow
// never fabricates or intercepts a token.
type ChallengeProvider interface {
	Token(ctx context.Context, siteKey, action string) (string, error)
}

// RecaptchaProvider triggers the site's grecaptcha flow inside the page and
// returns the token it produces, exactly as a human-operated browser would.
type RecaptchaProvider struct {
	ReadyTimeout   time.Duration
	ExecuteTimeout time.Duration
}

// NewRecaptchaProvider returns a provider with the default readiness and
// execution bounds.
func NewRecaptchaProvider() RecaptchaProvider {
	return RecaptchaProvider{
		ReadyTimeout:   10 * time.Second,
		ExecuteTimeout: 60 * time.Second,
	}
}

// Token waits for the challenge client library to become ready inside the
// page bound to ctx, then invokes its token-generation entry point.
func (p RecaptchaProvider) Token(ctx context.Context, siteKey, action string) (string, error) {
	readyCtx, cancel := context.WithTimeout(ctx, p.readyTimeout())
	defer cancel()

	var ready bool
	err := chromedp.Run(readyCtx,
		chromedp.Poll("window.grecaptcha && !!grecaptcha.execute", &ready,
			chromedp.WithPollingTimeout(p.readyTimeout())),
	)
	if err != nil {
		return "", fmt.Errorf("challenge client not ready: %w", err)
	}

	// The execute call awaits a promise the page controls; without its own
	// deadline a never-settling promise would block the attempt forever.
	execCtx, cancelExec := context.WithTimeout(ctx, p.executeTimeout())
	defer cancelExec()

	var token string
	expr := fmt.Sprintf("grecaptcha.execute(%q, {action: %q})", siteKey, action)
	err = chromedp.Run(execCtx,
		chromedp.Evaluate(expr, &token, awaitPromise),
	)
	if err != nil {
		return "", fmt.Errorf("execute challenge: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("challenge returned an empty token")
	}
	return token, nil
}

func (p RecaptchaProvider) readyTimeout() time.Duration {
	if p.ReadyTimeout > 0 {
		return p.ReadyTimeout
	}
	return 10 * time.Second
}

func (p RecaptchaProvider) executeTimeout() time.Duration {
	if p.ExecuteTimeout > 0 {
		return p.ExecuteTimeout
	}
	return 60 * time.Second
}

func awaitPromise(params *runtime.EvaluateParams) *runtime.EvaluateParams {
	return params.WithAwaitPromise(true)
}
