package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/mindfusion/backend/services"
	"github.com/mindfusion/backend/services/providers"
)

// DefaultPerCallTimeout bounds a provider call when the caller passes none
const DefaultPerCallTimeout = 30 * time.Second

const unexpectedFailureDetail = "provider failed unexpectedly"

// Dispatcher invokes every configured adapter concurrently and waits for all
// of them to settle. One provider's failure never cancels another call.
type Dispatcher struct {
	registry *providers.Registry
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher over a built registry
func NewDispatcher(registry *providers.Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger,
	}
}

// FanOut sends q to every provider and returns one outcome per provider.
// Each call gets its own deadline of perCallTimeout, so FanOut returns within
// roughly one timeout regardless of how many providers are configured.
// A panicking adapter becomes a failure outcome for that provider alone.
func (d *Dispatcher) FanOut(ctx context.Context, q providers.Query, perCallTimeout time.Duration) (providers.Breakdown, error) {
	if perCallTimeout <= 0 {
		perCallTimeout = DefaultPerCallTimeout
	}

	adapters := d.registry.Adapters()
	outcomes := make([]providers.Outcome, len(adapters))

	var wg conc.WaitGroup
	for i, adapter := range adapters {
		wg.Go(func() {
			outcomes[i] = d.invoke(ctx, adapter, q, perCallTimeout)
		})
	}
	if r := wg.WaitAndRecover(); r != nil {
		d.logger.Error("provider dispatch panicked",
			zap.Any("panic", r.Value),
			zap.String("stack", string(r.Stack)))
		return nil, services.WrapInternal("provider dispatch failed", fmt.Errorf("%v", r.Value))
	}

	breakdown := make(providers.Breakdown, len(adapters))
	for i, adapter := range adapters {
		outcome := outcomes[i]
		breakdown[adapter.Name()] = outcome

		if outcome.IsSuccess() {
			d.logger.Debug("provider responded",
				zap.String("provider", adapter.Name()),
				zap.Int("confidence", outcome.Confidence),
				zap.Int("text_length", len(outcome.Text)),
				zap.Duration("latency", outcome.Latency))
		} else {
			d.logger.Debug("provider failed",
				zap.String("provider", adapter.Name()),
				zap.String("reason", string(outcome.Reason)),
				zap.String("detail", outcome.Detail),
				zap.Duration("latency", outcome.Latency))
		}
	}

	return breakdown, nil
}

// invoke runs one adapter under its own deadline. When the deadline passes
// before the adapter returns, the call is abandoned and reported as a
// network error; the adapter goroutine exits once it observes the canceled
// context.
func (d *Dispatcher) invoke(parent context.Context, adapter providers.Adapter, q providers.Query, timeout time.Duration) providers.Outcome {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := time.Now()
	type settled struct {
		outcome   providers.Outcome
		recovered *panics.Recovered
	}
	done := make(chan settled, 1)

	go func() {
		var pc panics.Catcher
		var outcome providers.Outcome
		pc.Try(func() { outcome = adapter.Invoke(ctx, q) })
		done <- settled{outcome: outcome, recovered: pc.Recovered()}
	}()

	select {
	case s := <-done:
		if s.recovered != nil {
			d.logger.Error("provider adapter panicked",
				zap.String("provider", adapter.Name()),
				zap.Any("panic", s.recovered.Value),
				zap.String("stack", string(s.recovered.Stack)))
			return providers.Failure(providers.ReasonProviderRejected, unexpectedFailureDetail).WithLatency(time.Since(start))
		}
		return normalize(s.outcome).WithLatency(time.Since(start))
	case <-ctx.Done():
		return providers.FailureFrom(ctx.Err()).WithLatency(time.Since(start))
	}
}

// normalize coerces whatever an adapter returned into a well-formed outcome:
// a success always has text and every outcome has a tag.
func normalize(o providers.Outcome) providers.Outcome {
	switch o.Status {
	case providers.StatusSuccess:
		if o.Text == "" {
			return providers.Failure(providers.ReasonParseError, "empty answer")
		}
		return providers.Success(o.Text, o.Confidence)
	case providers.StatusFailure:
		return providers.Failure(o.Reason, o.Detail)
	}
	return providers.Failure(providers.ReasonParseError, "adapter returned no outcome")
}
