package text

import (
	"context"

	"sitegen/internal/ratelimit"
)

// Limited decorates a Generator with a service rate limiter.
type Limited struct {
	next    Generator
	limiter *ratelimit.Limiter
}

func NewLimited(next Generator, limiter *ratelimit.Limiter) *Limited {
	return &Limited{next: next, limiter: limiter}
}

func (l *Limited) Generate(ctx context.Context, req Request) (*Response, error) {
	var out *Response
	err := ratelimit.Do(ctx, l.limiter, func(ctx context.Context) error {
		res, err := l.next.Generate(ctx, req)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Check forwards to the wrapped generator when it supports checks.
func (l *Limited) Check(ctx context.Context) error {
	if checker, ok := l.next.(Checker); ok {
		return checker.Check(ctx)
	}
	return nil
}

var _ Generator = (*Limited)(nil)
var _ Checker = (*Limited)(nil)
