package effect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/time/rate"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func TestEffect_RunAndWait(t *testing.T) {
	var sum atomic.Int64
	e := New(func(_ context.Context, n int) error {
		sum.Add(int64(n))
		return nil
	}, quiet)

	for i := 1; i <= 4; i++ {
		assert.True(t, e.Run(i))
	}
	require.NoError(t, e.Wait())
	assert.Equal(t, int64(10), sum.Load())
}

func TestEffect_RunConcurrentWithWait(t *testing.T) {
	var count atomic.Int64
	e := New(func(context.Context, int) error {
		count.Add(1)
		return nil
	}, quiet)

	var producers sync.WaitGroup
	for i := 0; i < 4; i++ {
		producers.Add(1)
		go func() {
			defer producers.Done()
			for j := 0; j < 100; j++ {
				e.Run(j)
			}
		}()
	}
	waited := make(chan struct{})
	go func() {
		defer close(waited)
		for k := 0; k < 50; k++ {
			assert.NoError(t, e.Wait())
		}
	}()

	producers.Wait()
	<-waited
	require.NoError(t, e.Wait())
	assert.Equal(t, int64(400), count.Load())
}

func TestEffect_ConcurrencyLimit(t *testing.T) {
	var active, peak atomic.Int32
	e := New(func(context.Context, struct{}) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return nil
	}, WithConcurrency(2), quiet)

	for i := 0; i < 10; i++ {
		e.Run(struct{}{})
	}
	require.NoError(t, e.Wait())
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestEffect_ErrorsAreTracedAndReturned(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	boom := errors.New("api unavailable")
	e := New(func(_ context.Context, fail bool) error {
		if fail {
			return boom
		}
		return nil
	}, WithName("load-todos"), WithTracer(tp.Tracer("test")), quiet)

	e.Run(false)
	require.NoError(t, e.Wait())
	e.Run(true)
	assert.ErrorIs(t, e.Wait(), boom)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	for _, span := range spans {
		assert.Equal(t, "effect.load-todos", span.Name())
	}
	statuses := []codes.Code{spans[0].Status().Code, spans[1].Status().Code}
	assert.ElementsMatch(t, []codes.Code{codes.Ok, codes.Error}, statuses)
}

func TestEffect_PanicBecomesError(t *testing.T) {
	e := New(func(context.Context, int) error {
		panic("exploded")
	}, WithName("crashy"), quiet)

	e.Run(1)
	err := e.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "effect crashy panicked: exploded")
}

func TestEffect_StopCancelsAndRejects(t *testing.T) {
	started := make(chan struct{})
	e := New(func(ctx context.Context, _ int) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, quiet)

	require.True(t, e.Run(1))
	<-started
	e.Stop()

	assert.NoError(t, e.Wait(), "cancellation by Stop is not a failure")
	assert.True(t, e.Stopped())
	assert.False(t, e.Run(2))
}

func TestEffect_RunStream(t *testing.T) {
	var count atomic.Int32
	e := New(func(context.Context, string) error {
		count.Add(1)
		return nil
	}, quiet)

	in := make(chan string)
	e.RunStream(in)
	for _, s := range []string{"a", "b", "c"} {
		in <- s
	}
	close(in)

	require.NoError(t, e.Wait())
	assert.Equal(t, int32(3), count.Load())
}

func TestEffect_RateLimit(t *testing.T) {
	var count atomic.Int32
	e := New(func(context.Context, int) error {
		count.Add(1)
		return nil
	}, WithRateLimit(rate.Every(time.Millisecond), 1), quiet)

	for i := 0; i < 3; i++ {
		e.Run(i)
	}
	require.NoError(t, e.Wait())
	assert.Equal(t, int32(3), count.Load())
}

func TestEffect_WaitResetsError(t *testing.T) {
	boom := errors.New("boom")
	e := New(func(_ context.Context, fail bool) error {
		if fail {
			return boom
		}
		return nil
	}, quiet)

	e.Run(true)
	assert.ErrorIs(t, e.Wait(), boom)

	e.Run(false)
	assert.NoError(t, e.Wait(), "an earlier failure is reported once")
}
