package conversation

import (
	"context"

	"github.com/geekyuvi069/CureLink/pkg/logging"
)

// FallbackBackend wraps a primary backend with a fallback provider.
// If the primary fails, the same request is retried on the fallback.
type FallbackBackend struct {
	primary  Backend
	fallback Backend
	logger   *logging.Logger
}

// NewFallbackBackend creates a fallback-enabled backend. A nil fallback
// leaves only the primary in play.
func NewFallbackBackend(primary, fallback Backend, logger *logging.Logger) *FallbackBackend {
	if primary == nil {
		panic("conversation: primary backend cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackBackend{primary: primary, fallback: fallback, logger: logger}
}

func (b *FallbackBackend) Name() string {
	if b.fallback == nil {
		return b.primary.Name()
	}
	return b.primary.Name() + "+" + b.fallback.Name()
}

func (b *FallbackBackend) Generate(ctx context.Context, req GenerateRequest) (*Reply, error) {
	reply, err := b.primary.Generate(ctx, req)
	if err == nil {
		return reply, nil
	}

	b.logger.Warn("primary backend failed, attempting fallback",
		"backend", b.primary.Name(),
		"error", err.Error(),
		"fallback_available", b.fallback != nil,
	)
	if b.fallback == nil {
		return nil, err
	}

	reply, fallbackErr := b.fallback.Generate(ctx, req)
	if fallbackErr != nil {
		b.logger.Error("fallback backend also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return nil, fallbackErr
	}
	b.logger.Info("fallback backend succeeded after primary failure", "backend", b.fallback.Name())
	return reply, nil
}
