// Package engine executes compiled workflow plans.
//
// The engine is built from three pieces that the executor owns for the
// duration of a run: an ExecutionQueue (dependency-aware ready set), a
// ContextManager (node outputs, variables, loop/parallel scopes) and the
// orchestration loop itself, which fans ready batches out to node handlers
// and folds their result signals back into the queue and context.
package engine

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/smilemakc/flowgraph/pkg/executor"
)

// Default limits.
const (
	// DefaultMaxOutputSize caps the serialized size of a single node output;
	// larger outputs are replaced by a truncation sentinel.
	DefaultMaxOutputSize = 100_000

	// TruncationPreviewSize is how much of an oversized output's
	// serialization survives in the sentinel.
	TruncationPreviewSize = 1_000

	// DefaultMaxConcurrency bounds handler goroutines per batch.
	DefaultMaxConcurrency = 10

	// DefaultNodeTimeout is the per-node deadline when the node config does
	// not override it.
	DefaultNodeTimeout = 2 * time.Minute

	// DefaultCancelGracePeriod is how long the orchestrator waits for
	// in-flight handlers after cancellation before returning without them.
	DefaultCancelGracePeriod = 5 * time.Second
)

// Node config keys understood by the engine.
const (
	// ConfigTimeoutMs overrides the node deadline, in milliseconds.
	ConfigTimeoutMs = "timeout"
)

// Options configures an Executor. Registry is required; every other
// collaborator is optional.
type Options struct {
	// Registry dispatches node invocations to handlers.
	Registry executor.Registry

	// Waitpoints is required only for workflows that pause.
	Waitpoints WaitpointStore

	// Progress receives fire-and-forget status updates.
	Progress ProgressSink

	// Notifier receives diagnostic lifecycle events.
	Notifier ExecutionNotifier

	// Tracer, when set, wraps every node dispatch in a span; executions get
	// no span of their own.
	Tracer trace.Tracer

	// MaxConcurrency limits handler goroutines within a batch.
	MaxConcurrency int

	// NodeTimeout is the default per-node deadline (0 = none).
	NodeTimeout time.Duration

	// MaxOutputSize caps serialized node output size in bytes.
	MaxOutputSize int

	// CancelGracePeriod bounds the wait for in-flight handlers after
	// cancellation.
	CancelGracePeriod time.Duration

	// StrictTemplates makes unresolved config placeholders fail the node.
	StrictTemplates bool

	// Variables are execution-level variables layered over the plan's
	// workflow variables.
	Variables map[string]interface{}

	UserID       string
	ConnectionID string
}

// DefaultOptions returns options with sensible defaults and the given
// registry.
func DefaultOptions(registry executor.Registry) *Options {
	return &Options{
		Registry:          registry,
		Notifier:          NoopNotifier{},
		MaxConcurrency:    DefaultMaxConcurrency,
		NodeTimeout:       DefaultNodeTimeout,
		MaxOutputSize:     DefaultMaxOutputSize,
		CancelGracePeriod: DefaultCancelGracePeriod,
	}
}

func (o *Options) withDefaults() *Options {
	out := *o
	if out.Notifier == nil {
		out.Notifier = NoopNotifier{}
	}
	if out.MaxConcurrency <= 0 {
		out.MaxConcurrency = DefaultMaxConcurrency
	}
	if out.MaxOutputSize <= 0 {
		out.MaxOutputSize = DefaultMaxOutputSize
	}
	if out.CancelGracePeriod <= 0 {
		out.CancelGracePeriod = DefaultCancelGracePeriod
	}
	return &out
}
