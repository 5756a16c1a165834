package builtin

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/smilemakc/flowgraph/pkg/executor"
)

// WaitHandler pauses the execution until an external resume supplies user
// input (human-in-the-loop).
type WaitHandler struct {
	*executor.BaseHandler
}

// NewWaitHandler creates a wait handler.
func NewWaitHandler() *WaitHandler {
	return &WaitHandler{BaseHandler: executor.NewBaseHandler("wait")}
}

// Execute emits a pause signal. The waitpoint token comes from config or is
// generated; timeout is in seconds.
func (h *WaitHandler) Execute(_ context.Context, inv *executor.Invocation) (*executor.Result, error) {
	token := h.GetStringDefault(inv.Config, "waitpoint_id", "")
	if token == "" {
		token = uuid.New().String()
	}

	pause := &executor.PauseSignal{
		WaitpointID: token,
		Reason:      h.GetStringDefault(inv.Config, "reason", "waiting for user input"),
	}
	if seconds := h.GetIntDefault(inv.Config, "timeout_seconds", 0); seconds > 0 {
		pause.Timeout = time.Duration(seconds) * time.Second
	}
	if schema, err := h.GetMap(inv.Config, "expected_input"); err == nil {
		pause.ExpectedInputSchema = schema
	}

	res := executor.OK(map[string]interface{}{
		"waiting":     true,
		"waitpointId": token,
		"reason":      pause.Reason,
	})
	res.Signals = &executor.Signals{Pause: pause}
	return res, nil
}
