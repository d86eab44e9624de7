package extension

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
	"github.com/roach88/signalstore/internal/store"
)

func TestDevTools_MirrorsEveryAction(t *testing.T) {
	sink := NewMemorySink()
	dt := DevTools(sink)
	s := setupStore(t, dt)
	require.NoError(t, s.AddFeature("slice", sliceReducer, engine.WithInitialState(1)))

	dispatch(t, s, setState(5))
	dt.Flush()

	assert.Equal(t, []string{
		"@signalstore/slice/init",
		"@signalstore/slice/set-state",
	}, sink.Types())
	entries := sink.Entries()
	assert.Equal(t, engine.AppState{"slice": 5}, entries[1].State)
}

func TestDevTools_SinkFailuresAreSwallowed(t *testing.T) {
	failing := SinkFunc(func(context.Context, ir.Action, engine.AppState) error {
		return errors.New("monitor offline")
	})
	panicking := SinkFunc(func(context.Context, ir.Action, engine.AppState) error {
		panic("monitor crashed")
	})

	s := setupStore(t, DevTools(failing), DevTools(panicking))
	require.NoError(t, s.AddFeature("slice", sliceReducer, engine.WithInitialState(1)))

	dispatch(t, s, setState(2))
	assert.Equal(t, 2, s.State()["slice"])
}

func TestDevTools_StalledSinkDoesNotBlockDispatch(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	t.Cleanup(func() { once.Do(func() { close(release) }) })

	stalled := SinkFunc(func(ctx context.Context, _ ir.Action, _ engine.AppState) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})
	dt := DevTools(stalled, WithQueueSize(2), WithSendTimeout(time.Minute))
	s := setupStore(t, dt)
	require.NoError(t, s.AddFeature("slice", sliceReducer, engine.WithInitialState(0)))

	start := time.Now()
	for i := 1; i <= 10; i++ {
		dispatch(t, s, setState(i))
	}
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 10, s.State()["slice"])
	assert.Positive(t, dt.Dropped(), "a full queue drops instead of blocking")

	once.Do(func() { close(release) })
	dt.Flush()
}

type closingSink struct {
	*MemorySink
	closed bool
}

func (c *closingSink) Close() error {
	c.closed = true
	return nil
}

func TestDevTools_ClosesSinkOnShutdown(t *testing.T) {
	sink := &closingSink{MemorySink: NewMemorySink()}
	s := setupStore(t, DevTools(sink))
	require.NoError(t, s.AddFeature("slice", sliceReducer))

	require.NoError(t, s.Shutdown())
	assert.True(t, sink.closed)
	assert.Equal(t, "@signalstore/slice/destroy", sink.Types()[len(sink.Types())-1])
}

func TestTraceSink_RecordsSession(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sink := NewTraceSink(db, "session-1")
	dt := DevTools(sink)
	s := setupStore(t, dt)
	require.NoError(t, s.AddFeature("slice", sliceReducer, engine.WithInitialState(1)))
	dispatch(t, s, setState(7))
	dt.Flush()

	entries, err := db.ReadSession(context.Background(), sink.Session())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "@signalstore/slice/set-state", entries[1].ActionType)
	assert.Equal(t, `{"slice":7}`, string(entries[1].State))
	assert.Equal(t, ir.MustStateHash(engine.AppState{"slice": 7}), entries[1].StateHash)
}

func TestWebSocketSink_StreamsFrames(t *testing.T) {
	frames := make(chan Message, 8)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			frames <- msg
		}
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sink, err := DialWebSocketSink(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)

	s := setupStore(t, DevTools(sink))
	require.NoError(t, s.AddFeature("slice", sliceReducer, engine.WithInitialState(1)))

	select {
	case msg := <-frames:
		assert.Equal(t, MessageTypeAction, msg.Type)
		var a map[string]any
		require.NoError(t, json.Unmarshal(msg.Action, &a))
		assert.Equal(t, "@signalstore/slice/init", a["type"])
		assert.JSONEq(t, `{"slice":1}`, string(msg.State))
	case <-time.After(5 * time.Second):
		t.Fatal("no frame received")
	}
}
