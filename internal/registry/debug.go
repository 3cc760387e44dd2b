package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// DebugCapture snapshots the current page markup and a full-page screenshot
// at a classified failure point. It is strictly best-effort: its own failures
// are logged and swallowed so they never mask the error being diagnosed.
type DebugCapture struct {
	dir     string
	timeout time.Duration
	logger  *zap.Logger
}

// NewDebugCapture returns a capture writing into dir, defaulting to the
// system temporary directory.
func NewDebugCapture(dir string, logger *zap.Logger) *DebugCapture {
	if dir == "" {
		dir = os.TempDir()
	}
	return &DebugCapture{
		dir:     dir,
		timeout: 15 * time.Second,
		logger:  logger,
	}
}

// Dump writes the page HTML and screenshot for the given identifier and
// failure tag. The page context may already be broken; every error here is
// logged, never returned.
func (c *DebugCapture) Dump(pageCtx context.Context, cmp, tag string) {
	if c == nil {
		return
	}
	tag = strings.ReplaceAll(tag, " ", "_")
	htmlPath := filepath.Join(c.dir, fmt.Sprintf("cmp_%s_%s.html", cmp, tag))
	imgPath := filepath.Join(c.dir, fmt.Sprintf("cmp_%s_%s.png", cmp, tag))

	ctx, cancel := context.WithTimeout(pageCtx, c.timeout)
	defer cancel()

	var html string
	var shot []byte
	err := chromedp.Run(ctx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.FullScreenshot(&shot, 90),
	)
	if err != nil {
		c.logger.Error("Could not capture debug artifacts",
			zap.String("cmp", cmp), zap.String("tag", tag), zap.Error(err))
		return
	}
	if err := os.WriteFile(htmlPath, []byte(html), 0o600); err != nil {
		c.logger.Error("Could not write debug HTML", zap.String("path", htmlPath), zap.Error(err))
		return
	}
	if err := os.WriteFile(imgPath, shot, 0o600); err != nil {
		c.logger.Error("Could not write debug screenshot", zap.String("path", imgPath), zap.Error(err))
		return
	}
	c.logger.Warn("Debug artifacts saved",
		zap.String("html", htmlPath), zap.String("screenshot", imgPath))
}
