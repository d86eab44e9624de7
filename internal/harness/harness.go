package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/signalstore/internal/demo"
	"github.com/roach88/signalstore/internal/effect"
	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/extension"
	"github.com/roach88/signalstore/internal/ir"
	"github.com/roach88/signalstore/internal/testutil"
)

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger     *slog.Logger
	sinks      []extension.Sink
	extensions []engine.Extension
}

// WithLogger sets the store and effect logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithSink mirrors every traced action to sink, for example a TraceSink
// recording the run in SQLite.
func WithSink(sink extension.Sink) Option {
	return func(c *runConfig) {
		c.sinks = append(c.sinks, sink)
	}
}

// WithExtensions installs additional extensions such as Logger or Metrics.
func WithExtensions(exts ...engine.Extension) Option {
	return func(c *runConfig) {
		c.extensions = append(c.extensions, exts...)
	}
}

// traceQueueSize keeps the recorder from dropping actions of long scenarios.
const traceQueueSize = 4096

// runner holds the store and demo features of one run.
type runner struct {
	st      *engine.Store
	api     *demo.MemoryTodosAPI
	counter *demo.Counter
	todos   *demo.TodosStore
	logger  *slog.Logger
}

// Run executes scenario on a fresh store and returns its result.
//
// The store has the undo, immutable-state and devtools extensions installed
// and the products reducer configured; counter and todos are feature stores.
// The trace covers configuration and every step; teardown is not traced.
// An error is returned only when the run could not be set up; failed steps
// and expectations are reported in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	rec := &recorder{sinks: cfg.sinks, trace: []TraceEvent{}}
	st := engine.New(
		engine.WithLogger(cfg.logger),
		engine.WithClock(testutil.NewResettableClock()),
		engine.WithIDGenerator(testutil.NewSequenceGenerator("id")),
	)
	defer func() {
		rec.stop()
		if err := st.Shutdown(); err != nil {
			cfg.logger.Warn("store shutdown failed", "scenario", scenario.Name, "error", err)
		}
	}()

	devtools := extension.DevTools(rec, extension.WithQueueSize(traceQueueSize))
	exts := append([]engine.Extension{
		extension.Undo(),
		extension.ImmutableState(),
		devtools,
	}, cfg.extensions...)
	if err := st.Configure(demo.ProductsConfig(exts...)); err != nil {
		return nil, fmt.Errorf("configure store: %w", err)
	}

	r, err := newRunner(st, scenario.Initial, cfg.logger)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.step(ctx, step); err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
		}
		cfg.logger.Debug("step completed", "scenario", scenario.Name, "step", i, "op", step.Op)
	}

	devtools.Flush()
	rec.stop()
	result.Trace = rec.events()
	result.Final = r.summarize()

	for _, msg := range checkExpect(result.Final, scenario.Expect) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, st.State()) {
		result.AddError(msg)
	}
	return result, nil
}

func newRunner(st *engine.Store, initial Initial, logger *slog.Logger) (*runner, error) {
	seed := make([]demo.Todo, len(initial.Todos))
	for i, t := range initial.Todos {
		seed[i] = demo.Todo{ID: t.ID, Title: t.Title, IsDone: t.Done, IsBusiness: t.Business, IsPrivate: t.Private}
	}
	api := demo.NewMemoryTodosAPI(seed...)

	counter, err := demo.NewCounter(st, initial.Count)
	if err != nil {
		return nil, fmt.Errorf("counter feature: %w", err)
	}
	todos, err := demo.NewTodosStore(st, api, effect.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("todos feature: %w", err)
	}
	if err := todos.Wait(); err != nil {
		return nil, fmt.Errorf("load todos: %w", err)
	}

	if len(initial.Products) > 0 {
		products := make([]demo.Product, len(initial.Products))
		for i, p := range initial.Products {
			products[i] = demo.Product{ID: p.ID, Name: p.Name, Price: p.Price}
		}
		if _, err := st.Dispatch(ir.NewAction(demo.ActionLoadProducts, products)); err != nil {
			return nil, fmt.Errorf("load products: %w", err)
		}
	}

	return &runner{st: st, api: api, counter: counter, todos: todos, logger: logger}, nil
}

// step runs one step. A step marked fail succeeds only if it returned an error.
func (r *runner) step(ctx context.Context, step Step) error {
	if step.Fail {
		r.api.FailNext(apiOp(step.Op))
	}
	err := r.apply(ctx, step)
	switch {
	case step.Fail && err == nil:
		return errors.New("expected the API call to fail")
	case step.Fail:
		r.logger.Debug("step failed as expected", "op", step.Op, "error", err)
		return nil
	}
	return err
}

func (r *runner) apply(ctx context.Context, step Step) error {
	switch step.Op {
	case OpIncrement:
		return r.counter.Inc()
	case OpDecrement:
		return r.counter.Dec()
	case OpUndo:
		return r.counter.UndoLast()

	case OpCreateTodo:
		draft, err := r.todos.InitNewTodo()
		if err != nil {
			return err
		}
		draft.Title = step.Title
		r.todos.Create(draft)
		return r.todos.Wait()
	case OpUpdateTodo:
		t, err := r.findTodo(step.ID)
		if err != nil {
			return err
		}
		if step.Title != "" {
			t.Title = step.Title
		}
		t.IsDone = step.Done
		return r.todos.UpdateTodo(ctx, t)
	case OpDeleteTodo:
		return r.todos.Delete(ctx, demo.Todo{ID: step.ID})
	case OpSelectTodo:
		t, err := r.findTodo(step.ID)
		if err != nil {
			return err
		}
		return r.todos.SelectTodo(t)
	case OpFilterTodos:
		return r.todos.UpdateFilter(demo.TodoFilter{Search: step.Search})

	case OpAddToCart:
		return r.dispatch(demo.ActionAddToCart, step.Product)
	case OpRemoveFromCart:
		return r.dispatch(demo.ActionRemoveFromCart, step.Product)
	case OpSearchProducts:
		return r.dispatch(demo.ActionUpdateSearch, step.Search)
	}
	return fmt.Errorf("unknown op %q", step.Op)
}

func (r *runner) dispatch(actionType string, payload any) error {
	_, err := r.st.Dispatch(ir.NewAction(actionType, payload))
	return err
}

func (r *runner) findTodo(id string) (demo.Todo, error) {
	for _, t := range r.todos.State().Todos {
		if t.ID == id {
			return t, nil
		}
	}
	return demo.Todo{}, fmt.Errorf("todo %q not found", id)
}

func (r *runner) summarize() Final {
	final := Final{
		Count:     r.counter.Count.Get(),
		TodoIDs:   []string{},
		CartTotal: demo.CartTotal.Select(r.st.State()),
	}
	for _, t := range r.todos.State().Todos {
		id := t.ID
		if id == "" {
			id = t.TempID
		}
		final.TodoIDs = append(final.TodoIDs, id)
	}
	return final
}

func apiOp(op string) string {
	switch op {
	case OpCreateTodo:
		return "create"
	case OpUpdateTodo:
		return "update"
	case OpDeleteTodo:
		return "delete"
	}
	return ""
}

// recorder is the devtools sink of a run. It traces every action until
// stopped and forwards it to the configured sinks.
type recorder struct {
	mu      sync.Mutex
	stopped bool
	trace   []TraceEvent
	sinks   []extension.Sink
}

func (r *recorder) Send(ctx context.Context, a ir.Action, state engine.AppState) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	hash, hashErr := ir.StateHash(state)
	r.trace = append(r.trace, TraceEvent{
		Seq:        a.Seq,
		Type:       a.Type,
		FeatureKey: a.Meta.FeatureKey,
		StateHash:  hash,
	})
	sinks := r.sinks
	r.mu.Unlock()

	var errs []error
	if hashErr != nil {
		errs = append(errs, hashErr)
	}
	for _, sink := range sinks {
		if err := sink.Send(ctx, a, state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *recorder) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
}

func (r *recorder) events() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEvent, len(r.trace))
	copy(out, r.trace)
	return out
}
