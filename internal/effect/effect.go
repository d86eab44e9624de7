package effect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var defaultTracer = otel.Tracer("signalstore.effect")

// Workflow is the body of an effect.
type Workflow[In any] func(ctx context.Context, in In) error

// Effect runs a Workflow for each input it is given.
//
// Thread-safety: all methods are safe for concurrent use.
type Effect[In any] struct {
	name    string
	fn      Workflow[In]
	logger  *slog.Logger
	tracer  trace.Tracer
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mu   sync.Mutex
	idle *sync.Cond
	// active counts executions and streams that have not finished yet.
	active  int
	stopped bool
	err     error
}

// Option configures an Effect.
type Option func(*config)

type config struct {
	name    string
	logger  *slog.Logger
	tracer  trace.Tracer
	limiter *rate.Limiter
	limit   int
}

// WithName names the effect in logs and spans. Default: "effect".
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithConcurrency bounds the number of executions running at once.
// Zero or negative means unbounded.
func WithConcurrency(n int) Option {
	return func(c *config) {
		c.limit = n
	}
}

// WithRateLimit spaces executions to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *config) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// WithLogger sets the logger for failed executions. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTracer sets the tracer for execution spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		c.tracer = tracer
	}
}

// New creates an effect running fn.
func New[In any](fn Workflow[In], opts ...Option) *Effect[In] {
	cfg := config{
		name:   "effect",
		logger: slog.Default(),
		tracer: defaultTracer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Effect[In]{
		name:    cfg.name,
		fn:      fn,
		logger:  cfg.logger,
		tracer:  cfg.tracer,
		limiter: cfg.limiter,
		ctx:     ctx,
		cancel:  cancel,
	}
	e.idle = sync.NewCond(&e.mu)
	if cfg.limit > 0 {
		e.group.SetLimit(cfg.limit)
	}
	return e
}

// Name returns the effect name.
func (e *Effect[In]) Name() string {
	return e.name
}

// Run starts one execution for in without blocking.
// Returns false if the effect is stopped.
func (e *Effect[In]) Run(in In) bool {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return false
	}
	e.active++
	e.mu.Unlock()

	go func() {
		e.group.Go(func() error {
			defer e.finish()
			if err := e.execute(in); err != nil {
				e.mu.Lock()
				if e.err == nil {
					e.err = err
				}
				e.mu.Unlock()
			}
			return nil
		})
	}()
	return true
}

// RunStream runs the workflow for every value received on in until in is
// closed or the effect is stopped.
func (e *Effect[In]) RunStream(in <-chan In) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.active++
	e.mu.Unlock()

	go func() {
		defer e.finish()
		for {
			select {
			case <-e.ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				e.Run(v)
			}
		}
	}()
}

// Stop cancels running executions and rejects future ones.
// Actions already dispatched by the workflow stay applied.
func (e *Effect[In]) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	e.cancel()
}

// Stopped reports whether Stop was called.
func (e *Effect[In]) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// Wait blocks until every started execution has finished and returns the
// first workflow error since the previous Wait, if any.
func (e *Effect[In]) Wait() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.active > 0 {
		e.idle.Wait()
	}
	err := e.err
	e.err = nil
	return err
}

func (e *Effect[In]) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active--
	if e.active == 0 {
		e.idle.Broadcast()
	}
}

func (e *Effect[In]) execute(in In) (err error) {
	if e.ctx.Err() != nil {
		return nil
	}
	if e.limiter != nil {
		if werr := e.limiter.Wait(e.ctx); werr != nil {
			// Stopped while waiting for a token.
			return nil
		}
	}

	ctx, span := e.tracer.Start(e.ctx, "effect."+e.name,
		trace.WithAttributes(attribute.String("effect.name", e.name)),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("effect %s panicked: %v", e.name, r)
		}
		if err != nil && errors.Is(err, context.Canceled) && e.ctx.Err() != nil {
			span.SetStatus(codes.Unset, "stopped")
			err = nil
			return
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.logger.Error("effect failed",
				slog.String("effect", e.name),
				slog.Any("error", err),
			)
			return
		}
		span.SetStatus(codes.Ok, "")
	}()

	return e.fn(ctx, in)
}
