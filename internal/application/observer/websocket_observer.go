package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smilemakc/flowgraph/internal/infrastructure/logger"
	"github.com/smilemakc/flowgraph/pkg/engine"
)

// WebSocketObserver streams execution events and progress updates to
// connected websocket clients. It implements both Observer and the engine's
// ProgressSink.
type WebSocketObserver struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// wsMessage is the wire format pushed to clients.
type wsMessage struct {
	Kind      string      `json:"kind"` // "event" or "progress"
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// wsEvent is the JSON shape of an execution event.
type wsEvent struct {
	Type        string                 `json:"type"`
	ExecutionID string                 `json:"execution_id"`
	WorkflowID  string                 `json:"workflow_id,omitempty"`
	NodeID      string                 `json:"node_id,omitempty"`
	NodeName    string                 `json:"node_name,omitempty"`
	NodeType    string                 `json:"node_type,omitempty"`
	Status      string                 `json:"status,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Output      map[string]interface{} `json:"output,omitempty"`
	DurationMs  int64                  `json:"duration_ms,omitempty"`
	Message     string                 `json:"message,omitempty"`
}

// NewWebSocketObserver creates a websocket observer.
func NewWebSocketObserver(l *logger.Logger) *WebSocketObserver {
	return &WebSocketObserver{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: l,
		conns:  make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP upgrades the request and keeps the connection until the client
// disconnects.
func (o *WebSocketObserver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := o.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("websocket upgrade failed", "error", err.Error())
		}
		return
	}

	o.mu.Lock()
	o.conns[conn] = true
	o.mu.Unlock()

	// Reader loop only to detect disconnects; clients don't send data.
	go func() {
		defer o.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Name identifies the observer.
func (o *WebSocketObserver) Name() string { return "websocket" }

// Filter returns nil; clients receive the full stream.
func (o *WebSocketObserver) Filter() EventFilter { return nil }

// OnEvent broadcasts one execution event.
func (o *WebSocketObserver) OnEvent(_ context.Context, event engine.ExecutionEvent) error {
	payload := wsEvent{
		Type:        string(event.Type),
		ExecutionID: event.ExecutionID,
		WorkflowID:  event.WorkflowID,
		NodeID:      event.NodeID,
		NodeName:    event.NodeName,
		NodeType:    event.NodeType,
		Status:      string(event.Status),
		Output:      event.Output,
		DurationMs:  event.DurationMs,
		Message:     event.Message,
	}
	if event.Error != nil {
		payload.Error = event.Error.Error()
	}
	o.broadcast(wsMessage{Kind: "event", Payload: payload, Timestamp: event.Timestamp})
	return nil
}

// Publish implements engine.ProgressSink.
func (o *WebSocketObserver) Publish(_ context.Context, update engine.ProgressUpdate) {
	o.broadcast(wsMessage{Kind: "progress", Payload: update, Timestamp: time.Now()})
}

// Close disconnects every client.
func (o *WebSocketObserver) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for conn := range o.conns {
		_ = conn.Close()
	}
	o.conns = make(map[*websocket.Conn]bool)
}

func (o *WebSocketObserver) broadcast(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for conn := range o.conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(o.conns, conn)
			_ = conn.Close()
		}
	}
}

func (o *WebSocketObserver) drop(conn *websocket.Conn) {
	o.mu.Lock()
	delete(o.conns, conn)
	o.mu.Unlock()
	_ = conn.Close()
}
