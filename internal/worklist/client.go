package worklist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qepting91/threadbot/internal/domain"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

var ErrSheetNotFound = errors.New("sheet not found")

type ClientOptions struct {
	// Minimum gap between grid calls. Zero disables throttling.
	Interval time.Duration
	// Total tries per call, including the first
	Attempts int
	// First backoff delay; doubles on each retry
	BaseDelay time.Duration
}

// Client wraps a Grid so every call is throttled, retried with exponential
// backoff and counted. Calls are serialized.
type Client struct {
	grid    domain.Grid
	limiter *rate.Limiter
	opts    ClientOptions
	calls   atomic.Int64
	mu      sync.Mutex
	logger  *slog.Logger
}

func NewClient(grid domain.Grid, opts ClientOptions, logger *slog.Logger) *Client {
	if opts.Attempts <= 0 {
		opts.Attempts = 4
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	return &Client{
		grid:    grid,
		limiter: rate.NewLimiter(limit, 1),
		opts:    opts,
		logger:  logger,
	}
}

// APICalls counts every attempt made against the grid, retries included
func (c *Client) APICalls() int64 {
	return c.calls.Load()
}

func (c *Client) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := retry.WithMaxRetries(uint64(c.opts.Attempts-1), retry.NewExponential(c.opts.BaseDelay))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		c.calls.Add(1)
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrSheetNotFound) {
			return err
		}
		c.logger.Warn("Worklist call failed", "op", op, "err", err)
		return retry.RetryableError(err)
	})
}

func (c *Client) GetAllRows(ctx context.Context, sheet string) ([][]string, error) {
	var rows [][]string
	err := c.do(ctx, "get_all_rows", func(ctx context.Context) error {
		var err error
		rows, err = c.grid.GetAllRows(ctx, sheet)
		return err
	})
	return rows, err
}

func (c *Client) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	return c.do(ctx, "update_cell", func(ctx context.Context) error {
		return c.grid.UpdateCell(ctx, sheet, row, col, value)
	})
}

func (c *Client) InsertRow(ctx context.Context, sheet string, values []string, at int) error {
	return c.do(ctx, "insert_row", func(ctx context.Context) error {
		return c.grid.InsertRow(ctx, sheet, values, at)
	})
}

func (c *Client) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	return c.do(ctx, "append_rows", func(ctx context.Context) error {
		return c.grid.AppendRows(ctx, sheet, rows)
	})
}

func (c *Client) GetOrCreateSheet(ctx context.Context, name string, header []string) error {
	return c.do(ctx, "get_or_create_sheet", func(ctx context.Context) error {
		return c.grid.GetOrCreateSheet(ctx, name, header)
	})
}
