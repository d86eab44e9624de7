package extension

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
)

// Message is the frame a WebSocketSink writes for each action.
type Message struct {
	Type   string          `json:"type"`
	Action json.RawMessage `json:"action"`
	State  json.RawMessage `json:"state"`
}

// MessageTypeAction marks action frames.
const MessageTypeAction = "ACTION"

// WebSocketSink streams deliveries as JSON frames to a devtools monitor.
type WebSocketSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketSink wraps an established connection.
func NewWebSocketSink(conn *websocket.Conn) *WebSocketSink {
	return &WebSocketSink{conn: conn}
}

// DialWebSocketSink connects to a devtools monitor at url.
func DialWebSocketSink(ctx context.Context, url string) (*WebSocketSink, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial devtools %s: %w", url, err)
	}
	return NewWebSocketSink(conn), nil
}

// Send writes one action frame. The context deadline bounds the write.
func (w *WebSocketSink) Send(ctx context.Context, a ir.Action, state engine.AppState) error {
	actionJSON, err := ir.Snapshot(a)
	if err != nil {
		return err
	}
	stateJSON, err := ir.Snapshot(state)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultSendTimeout)
	}
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return w.conn.WriteJSON(Message{
		Type:   MessageTypeAction,
		Action: actionJSON,
		State:  stateJSON,
	})
}

// Close sends a close frame and closes the connection.
func (w *WebSocketSink) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return w.conn.Close()
}
