package builtin

import "github.com/smilemakc/flowgraph/pkg/executor"

// Options configures built-in handler registration.
type Options struct {
	// OpenAIAPIKey is the default key for llm nodes without their own.
	OpenAIAPIKey string
}

// RegisterBuiltins registers all built-in handlers with the registry.
// Registration order matters: earlier handlers win CanHandle ties.
func RegisterBuiltins(registry executor.Registry, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}

	handlers := []executor.Handler{
		NewInputHandler(),
		NewOutputHandler(),
		NewStopHandler(),
		NewTransformHandler(),
		NewConditionalHandler(),
		NewSwitchHandler(),
		NewMergeHandler(),
		NewVariableHandler(),
		NewHTTPHandler(),
		NewLLMHandler(opts.OpenAIAPIKey),
		NewWaitHandler(),
		NewLoopHandler(),
		NewLoopEndHandler(),
		NewParallelHandler(),
		NewParallelEndHandler(),
	}

	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return err
		}
	}
	return nil
}

// MustRegisterBuiltins registers all built-in handlers and panics on error.
func MustRegisterBuiltins(registry executor.Registry, opts *Options) {
	if err := RegisterBuiltins(registry, opts); err != nil {
		panic("failed to register built-in handlers: " + err.Error())
	}
}
