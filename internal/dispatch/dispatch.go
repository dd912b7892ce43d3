// Package dispatch runs a destination's subscriptions against incoming events.
//
// For every enabled subscription the dispatcher parses the subscription text
// (through the engine's parser, usually a cache), validates the event against
// it, builds the action payload from the mapping and performs the action.
// Subscriptions run concurrently; the first action failure cancels the rest
// of the set and is returned to the caller.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/segmentio/action-destinations-sub030/internal/fql"
	"github.com/segmentio/action-destinations-sub030/internal/mapping"
	"github.com/segmentio/action-destinations-sub030/internal/types"
)

// State is the outcome of one subscription for one event.
type State string

const (
	StatePending State = "pending"
	StateSkipped State = "skipped"
	StateDone    State = "done"
	StateErrored State = "errored"
)

// Skip reasons reported in Result.Output.
const (
	OutputInvalidSubscription = "invalid subscription"
	OutputNotSubscribed       = "not subscribed"
)

// Action performs a partner call with a mapped payload.
type Action interface {
	Perform(ctx context.Context, payload map[string]any) (any, error)
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(ctx context.Context, payload map[string]any) (any, error)

// Perform calls f(ctx, payload).
func (f ActionFunc) Perform(ctx context.Context, payload map[string]any) (any, error) {
	return f(ctx, payload)
}

// Destination is a named set of actions keyed by partner action slug.
type Destination struct {
	Name    string
	Actions map[string]Action
}

// Transformer builds an action payload from a subscription mapping.
type Transformer interface {
	Transform(mapping map[string]any, event types.Event) (map[string]any, error)
}

// Result describes what happened to one subscription.
type Result struct {
	SubscriptionID types.SubscriptionID
	Name           string
	Action         string
	State          State
	Output         string
	Data           any
	Err            error
}

// Stats is reported once per subscription after it settles.
type Stats struct {
	Duration    time.Duration
	Destination string
	Action      string
	Subscribe   string
	State       State
	Output      string
	Err         error
}

// Dispatcher fans an event out to a destination's subscriptions.
type Dispatcher struct {
	dest        Destination
	engine      *fql.Engine
	transformer Transformer
	logger      *zap.Logger
	onComplete  func(Stats)
	concurrency int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithEngine sets the engine used to parse and match subscriptions.
func WithEngine(e *fql.Engine) Option {
	return func(d *Dispatcher) {
		if e != nil {
			d.engine = e
		}
	}
}

// WithTransformer replaces the default mapping transformer.
func WithTransformer(t Transformer) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.transformer = t
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithOnComplete registers a callback invoked once per settled subscription.
// It may be called from several goroutines at once.
func WithOnComplete(fn func(Stats)) Option {
	return func(d *Dispatcher) {
		d.onComplete = fn
	}
}

// WithConcurrency bounds how many subscriptions run at once. n <= 0 means no limit.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		d.concurrency = n
	}
}

// New creates a dispatcher for dest.
func New(dest Destination, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		dest:        dest,
		engine:      fql.NewEngine(),
		transformer: mapping.New(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(zap.String("destination", dest.Name))
	return d
}

// OnEvent runs every enabled subscription against event. Results are in the
// order of the enabled subscriptions. When an action fails, the returned error
// is the first failure and results of cancelled subscriptions may be pending.
func (d *Dispatcher) OnEvent(ctx context.Context, event types.Event, subs []types.Subscription) ([]Result, error) {
	enabled := make([]types.Subscription, 0, len(subs))
	for _, s := range subs {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}

	results := make([]Result, len(enabled))
	g, gctx := errgroup.WithContext(ctx)
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}
	for i, sub := range enabled {
		results[i] = Result{SubscriptionID: sub.ID, Name: sub.Name, Action: sub.PartnerAction, State: StatePending}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := d.onSubscription(gctx, event, sub)
			results[i] = r
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (d *Dispatcher) onSubscription(ctx context.Context, event types.Event, sub types.Subscription) (res Result, err error) {
	start := time.Now()
	res = Result{
		SubscriptionID: sub.ID,
		Name:           sub.Name,
		Action:         sub.PartnerAction,
		State:          StatePending,
	}

	defer func() {
		res.Err = err
		d.report(sub, res, time.Since(start))
	}()

	if sub.Subscribe == "" {
		res.State, res.Output = StateSkipped, OutputInvalidSubscription
		return res, nil
	}

	tree := d.engine.Parse(sub.Subscribe)
	if en, ok := tree.(*fql.ErrorNode); ok {
		res.State, res.Output = StateSkipped, OutputInvalidSubscription+" : "+en.Err.Error()
		return res, nil
	}

	matched, verr := fql.Validate(tree, event)
	if verr != nil {
		res.State, res.Output = StateSkipped, OutputInvalidSubscription+" : "+verr.Error()
		return res, nil
	}
	if !matched {
		res.State, res.Output = StateSkipped, OutputNotSubscribed
		return res, nil
	}

	action, ok := d.dest.Actions[sub.PartnerAction]
	if !ok {
		res.State = StateErrored
		return res, fmt.Errorf("%w: %s/%s", types.ErrActionNotFound, d.dest.Name, sub.PartnerAction)
	}

	payload, err := d.transformer.Transform(sub.Mapping, event)
	if err != nil {
		res.State = StateErrored
		return res, fmt.Errorf("subscription %q: %w", sub.Name, err)
	}

	out, err := action.Perform(ctx, payload)
	if err != nil {
		res.State = StateErrored
		return res, fmt.Errorf("subscription %q: %s: %w", sub.Name, sub.PartnerAction, err)
	}

	res.State, res.Data = StateDone, out
	return res, nil
}

func (d *Dispatcher) report(sub types.Subscription, res Result, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("subscription", sub.Name),
		zap.String("action", sub.PartnerAction),
		zap.String("state", string(res.State)),
		zap.Duration("duration", elapsed),
	}
	switch {
	case res.Err != nil && errors.Is(res.Err, context.Canceled):
		d.logger.Debug("subscription cancelled", fields...)
	case res.Err != nil:
		d.logger.Error("subscription failed", append(fields, zap.Error(res.Err))...)
	case res.State == StateSkipped:
		d.logger.Debug("subscription skipped", append(fields, zap.String("output", res.Output))...)
	default:
		d.logger.Debug("subscription performed", fields...)
	}

	if d.onComplete != nil {
		d.onComplete(Stats{
			Duration:    elapsed,
			Destination: d.dest.Name,
			Action:      sub.PartnerAction,
			Subscribe:   sub.Subscribe,
			State:       res.State,
			Output:      res.Output,
			Err:         res.Err,
		})
	}
}
