package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionCache_EvaluateBool(t *testing.T) {
	t.Parallel()

	cc := NewConditionCache(10)
	env := map[string]interface{}{"input": map[string]interface{}{"x": 5}}

	ok, err := cc.EvaluateBool("input.x > 3", env)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, cc.Len())

	// Second evaluation reuses the compiled program.
	ok, err = cc.EvaluateBool("input.x > 3", map[string]interface{}{"input": map[string]interface{}{"x": 1}})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, cc.Len())
}

func TestConditionCache_EmptyConditionIsTrue(t *testing.T) {
	t.Parallel()

	cc := NewConditionCache(10)
	ok, err := cc.EvaluateBool("", map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConditionCache_CompileErrorNotCached(t *testing.T) {
	t.Parallel()

	cc := NewConditionCache(10)
	_, err := cc.EvaluateBool("not valid ((", map[string]interface{}{})
	require.Error(t, err)
	assert.Equal(t, 0, cc.Len())
}

func TestConditionCache_EvictsOverCapacity(t *testing.T) {
	t.Parallel()

	cc := NewConditionCache(2)
	for _, cond := range []string{"1 > 0", "2 > 0", "3 > 0"} {
		_, err := cc.EvaluateBool(cond, map[string]interface{}{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cc.Len())
}
