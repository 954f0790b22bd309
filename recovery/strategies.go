package recovery

import (
	"context"
	"fmt"

	"pdfcore/observability"
)

// StrictStrategy implements a fail-fast recovery strategy: the first error
// at any location aborts parsing or rendering.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy {
	return &StrictStrategy{}
}

func (s *StrictStrategy) OnError(ctx context.Context, err error, location Location) Action {
	return ActionFail
}

// LenientStrategy implements a best-effort recovery policy: every error is
// recorded in Errors, logged as a warning and answered with ActionWarn,
// never fatal.
type LenientStrategy struct {
	Log    observability.Logger
	Errors []error
}

func NewLenientStrategy(log observability.Logger) *LenientStrategy {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &LenientStrategy{Log: log}
}

func (s *LenientStrategy) OnError(ctx context.Context, err error, location Location) Action {
	s.Errors = append(s.Errors, fmt.Errorf("[%s] offset %d: %w", location.Component, location.ByteOffset, err))
	s.Log.Warn("recoverable parse error",
		observability.String("component", location.Component),
		observability.Int64("offset", location.ByteOffset),
		observability.Error("err", err))
	return ActionWarn
}
