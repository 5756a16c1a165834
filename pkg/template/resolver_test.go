package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *Context {
	return &Context{
		Inputs: map[string]interface{}{
			"name": "world",
			"user": map[string]interface{}{"email": "a@b.c"},
		},
		Variables: map[string]interface{}{
			"model": "gpt-4o",
			"items": []interface{}{"first", "second"},
		},
		NodeOutputs: map[string]map[string]interface{}{
			"fetch": {
				"status": 200,
				"body":   map[string]interface{}{"list": []interface{}{1, 2, 3}},
			},
		},
		Loop: map[string]interface{}{
			"index": 2,
			"item":  "banana",
			"total": 5,
		},
		Parallel: map[string]interface{}{
			"parallelId":  "p1",
			"branchIndex": 1,
		},
	}
}

func TestResolver_Grammar(t *testing.T) {
	t.Parallel()

	r := NewResolver(testContext(), Options{})

	tests := []struct {
		ref  string
		want interface{}
	}{
		{"inputs.name", "world"},
		{"inputs.user.email", "a@b.c"},
		{"variables.model", "gpt-4o"},
		{"var.model", "gpt-4o"},
		{"variables.items[1]", "second"},
		{"loop.index", 2},
		{"loop.item", "banana"},
		{"parallel.branchIndex", 1},
		{"fetch.status", 200},
		{"fetch.body.list[2]", 3},
	}

	for _, tc := range tests {
		t.Run(tc.ref, func(t *testing.T) {
			got, err := r.Resolve(tc.ref)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolver_MissingVariable(t *testing.T) {
	t.Parallel()

	r := NewResolver(testContext(), Options{})

	_, err := r.Resolve("inputs.nope")
	assert.ErrorIs(t, err, ErrVariableNotFound)

	_, err = r.Resolve("unknownNode.field")
	assert.ErrorIs(t, err, ErrVariableNotFound)

	_, err = r.Resolve("variables.items[9]")
	assert.ErrorIs(t, err, ErrVariableNotFound)
}

func TestEngine_WholeStringKeepsType(t *testing.T) {
	t.Parallel()

	e := NewEngine(testContext(), Options{})

	got, err := e.ResolveString("{{fetch.status}}")
	require.NoError(t, err)
	assert.Equal(t, 200, got)

	got, err = e.ResolveString("{{fetch.body}}")
	require.NoError(t, err)
	assert.IsType(t, map[string]interface{}{}, got)
}

func TestEngine_Interpolation(t *testing.T) {
	t.Parallel()

	e := NewEngine(testContext(), Options{})

	got, err := e.ResolveString("hello {{inputs.name}}, status={{fetch.status}}")
	require.NoError(t, err)
	assert.Equal(t, "hello world, status=200", got)
}

func TestEngine_MissingVariableModes(t *testing.T) {
	t.Parallel()

	lax := NewEngine(testContext(), Options{})
	got, err := lax.ResolveString("value: {{inputs.nope}}")
	require.NoError(t, err)
	assert.Equal(t, "value: ", got)

	strict := NewEngine(testContext(), Options{Strict: true})
	_, err = strict.ResolveString("value: {{inputs.nope}}")
	assert.ErrorIs(t, err, ErrVariableNotFound)
}

func TestEngine_ResolveConfig(t *testing.T) {
	t.Parallel()

	e := NewEngine(testContext(), Options{})

	config := map[string]interface{}{
		"url":    "https://api/{{inputs.name}}",
		"status": "{{fetch.status}}",
		"nested": map[string]interface{}{
			"model": "{{variables.model}}",
		},
		"list":    []interface{}{"{{loop.item}}", "plain"},
		"untyped": 42,
	}

	resolved, err := e.ResolveConfig(config)
	require.NoError(t, err)

	assert.Equal(t, "https://api/world", resolved["url"])
	assert.Equal(t, 200, resolved["status"])
	assert.Equal(t, "gpt-4o", resolved["nested"].(map[string]interface{})["model"])
	assert.Equal(t, "banana", resolved["list"].([]interface{})[0])
	assert.Equal(t, "plain", resolved["list"].([]interface{})[1])
	assert.Equal(t, 42, resolved["untyped"])

	// The source config is untouched.
	assert.Equal(t, "https://api/{{inputs.name}}", config["url"])
}

func TestEngine_NoPlaceholders(t *testing.T) {
	t.Parallel()

	e := NewEngine(testContext(), Options{})
	got, err := e.ResolveString("no placeholders here")
	require.NoError(t, err)
	assert.Equal(t, "no placeholders here", got)
}
