package pipeline

import (
	"context"

	"github.com/qepting91/threadbot/internal/domain"
)

// Hook runs once after every target of a run is terminal. Errors are logged, never fatal.
type Hook interface {
	Name() string
	AfterRun(ctx context.Context, s domain.RunSummary) error
}

// HookFunc adapts a plain function to Hook
type HookFunc struct {
	Label string
	Fn    func(ctx context.Context, s domain.RunSummary) error
}

func (h HookFunc) Name() string {
	return h.Label
}

func (h HookFunc) AfterRun(ctx context.Context, s domain.RunSummary) error {
	return h.Fn(ctx, s)
}
