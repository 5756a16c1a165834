package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHandler struct {
	*BaseHandler
	data map[string]interface{}
}

func (h *staticHandler) Execute(context.Context, *Invocation) (*Result, error) {
	return OK(h.data), nil
}

func newStatic(nodeType, marker string) *staticHandler {
	return &staticHandler{
		BaseHandler: NewBaseHandler(nodeType),
		data:        map[string]interface{}{"from": marker},
	}
}

func TestRegistry_RegistrationOrderBreaksTies(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(newStatic("task", "first")))
	require.NoError(t, r.Register(newStatic("task", "second")))

	res := r.Dispatch(context.Background(), &Invocation{NodeType: "task"})
	assert.Equal(t, "first", res.Data["from"])
}

func TestRegistry_FallbackPassthrough(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	inv := &Invocation{
		NodeType: "mystery",
		Input:    map[string]interface{}{"k": "v"},
	}

	res := r.Dispatch(context.Background(), inv)
	require.True(t, res.Success)
	assert.Equal(t, "v", res.Data["k"])
	assert.Equal(t, "mystery", res.Data["__unhandled_node_type"])
	assert.False(t, r.Has("mystery"))
}

func TestRegistry_PanicConvertedToFailure(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(&HandlerFunc{
		NodeType: "bad",
		ExecuteFn: func(context.Context, *Invocation) (*Result, error) {
			panic("kaboom")
		},
	}))

	res := r.Dispatch(context.Background(), &Invocation{NodeType: "bad"})
	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, "handler_panic", res.Error.Code)
	assert.Contains(t, res.Error.Message, "kaboom")
}

func TestRegistry_ErrorReturnBecomesFailedResult(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(&HandlerFunc{
		NodeType: "broken",
		ExecuteFn: func(context.Context, *Invocation) (*Result, error) {
			return nil, &NodeError{Message: "wire cut", Retryable: true}
		},
	}))

	res := r.Dispatch(context.Background(), &Invocation{NodeType: "broken"})
	require.False(t, res.Success)
	assert.Equal(t, "wire cut", res.Error.Message)
	assert.True(t, res.Error.Retryable)
}

func TestRegistry_NilResultNormalized(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(&HandlerFunc{
		NodeType: "quiet",
		ExecuteFn: func(context.Context, *Invocation) (*Result, error) {
			return nil, nil
		},
	}))

	res := r.Dispatch(context.Background(), &Invocation{NodeType: "quiet"})
	require.True(t, res.Success)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
}

func TestRegistry_RejectsNilHandler(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	assert.Error(t, r.Register(nil))
}

func TestBaseHandler_ConfigGetters(t *testing.T) {
	t.Parallel()

	b := NewBaseHandler("x")
	config := map[string]interface{}{
		"s":   "str",
		"n":   float64(7),
		"b":   true,
		"m":   map[string]interface{}{"k": "v"},
		"arr": []interface{}{1},
	}

	s, err := b.GetString(config, "s")
	require.NoError(t, err)
	assert.Equal(t, "str", s)

	_, err = b.GetString(config, "n")
	assert.Error(t, err)

	n, err := b.GetInt(config, "n")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	assert.Equal(t, 9, b.GetIntDefault(config, "missing", 9))
	assert.True(t, b.GetBoolDefault(config, "b", false))
	assert.Equal(t, "dflt", b.GetStringDefault(config, "missing", "dflt"))

	m, err := b.GetMap(config, "m")
	require.NoError(t, err)
	assert.Equal(t, "v", m["k"])

	arr, err := b.GetSlice(config, "arr")
	require.NoError(t, err)
	assert.Len(t, arr, 1)

	assert.NoError(t, b.ValidateRequired(config, "s", "n"))
	assert.Error(t, b.ValidateRequired(config, "missing"))
}
