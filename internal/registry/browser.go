package registry

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// BrowserConfig controls the Chrome process shared by a whole run.
type BrowserConfig struct {
	Headless  bool
	UserAgent string
	Locale    string
}

// Browser owns one Chrome process and one browsing context whose cookies and
// storage are shared by every tab opened from it. Identifiers are processed
// strictly sequentially, so the shared session is never mutated concurrently.
type Browser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// Launch starts Chrome and warms up the browsing context.
func Launch(ctx context.Context, cfg BrowserConfig) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.Locale != "" {
		opts = append(opts, chromedp.Flag("lang", cfg.Locale), chromedp.Flag("accept-lang", cfg.Locale))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Browser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// NewTab opens a fresh page bound to the shared browsing context. The returned
// cancel func closes the tab and must be called on every exit path of an
// attempt.
func (b *Browser) NewTab() (context.Context, context.CancelFunc) {
	return chromedp.NewContext(b.browserCtx)
}

// Close tears down the browser and allocator contexts.
func (b *Browser) Close() {
	if b == nil {
		return
	}
	b.browserCancel()
	b.allocCancel()
}
