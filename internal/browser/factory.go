package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qepting91/threadbot/internal/config"
	"github.com/qepting91/threadbot/internal/domain"
)

// NewSession selects the session backend based on DD_BROWSER_MODE
func NewSession(ctx context.Context, cfg config.Config, logger *slog.Logger) (domain.Session, error) {
	switch cfg.BrowserMode {
	case "rod":
		return NewRodSession(ctx, RodOptions{
			Bin:        cfg.BrowserBin,
			Headless:   cfg.Headless,
			NavTimeout: 30 * time.Second,
		}, logger)
	case "http":
		// Page limit: 1 req / 1.5 seconds
		return NewHTTPSession(ctx, HTTPOptions{
			BaseURL:  cfg.BaseURL,
			Interval: 1500 * time.Millisecond,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown DD_BROWSER_MODE: %s (use 'rod' or 'http')", cfg.BrowserMode)
	}
}
