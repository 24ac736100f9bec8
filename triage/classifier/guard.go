package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("modbot/classifier")

const DefaultTimeout = 10 * time.Second

// Guard bounds calls to an inner classifier. Any failure of the inner classifier, including a
// missed deadline or a panic, is reported as ErrClassifierUnavailable.
type Guard struct {
	Inner   Classifier
	Name    string
	Timeout time.Duration
	// optional
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

var _ Classifier = (*Guard)(nil)

func NewGuard(name string, inner Classifier, timeout time.Duration, limiter *rate.Limiter) *Guard {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Guard{
		Inner:   inner,
		Name:    name,
		Timeout: timeout,
		Limiter: limiter,
		Logger:  slog.Default().With("system", "classifier", "classifier", name),
	}
}

func (g *Guard) Classify(ctx context.Context, text string) (res *Result, err error) {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, span := tracer.Start(ctx, "Classify")
	span.SetAttributes(attribute.String("classifier", g.Name), attribute.Int("text_len", len(text)))
	defer span.End()

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		classifyDuration.WithLabelValues(g.Name).Observe(time.Since(start).Seconds())
		if err != nil {
			classifyCount.WithLabelValues(g.Name, "error").Inc()
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("classifier call failed", "err", err)
			return
		}
		classifyCount.WithLabelValues(g.Name, "ok").Inc()
		span.SetAttributes(attribute.Float64("score", res.Score))
	}()

	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit: %w", ErrClassifierUnavailable, err)
		}
	}

	// the inner call may not honor ctx; the deadline still applies
	done := make(chan classifyResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- classifyResult{err: fmt.Errorf("classifier panic: %v", r)}
			}
		}()
		out, err := g.Inner.Classify(ctx, text)
		done <- classifyResult{res: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrClassifierUnavailable, ctx.Err())
	case cr := <-done:
		if cr.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrClassifierUnavailable, cr.err)
		}
		if cr.res == nil {
			return nil, fmt.Errorf("%w: empty result", ErrClassifierUnavailable)
		}
		cr.res.Score = clampScore(cr.res.Score)
		return cr.res, nil
	}
}

type classifyResult struct {
	res *Result
	err error
}
