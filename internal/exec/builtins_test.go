package exec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-go/internal/exec"
)

func call(t *testing.T, name string, receiver interface{}, args ...interface{}) interface{} {
	t.Helper()
	b, ok := exec.LookupBuiltin(name)
	require.True(t, ok, "builtin %q is registered", name)
	params := map[string]interface{}{}
	for i, a := range args {
		params[argKey(i)] = a
	}
	out, err := b.Invoke(receiver, params)
	require.NoError(t, err)
	return out
}

func argKey(i int) string {
	return "arg" + string(rune('0'+i))
}

func TestStringBuiltins(t *testing.T) {
	assert.Equal(t, "HELLO", call(t, "toUpperCase", "hello"))
	assert.Equal(t, "hello", call(t, "toLowerCase", "HELLO"))
	assert.Equal(t, "hi", call(t, "trim", "  hi  "))
	assert.Equal(t, "ab", call(t, "slice", "abcdef", float64(0), float64(2)))
	assert.Equal(t, "aXcde", call(t, "replace", "abcde", "b", "X"))
	assert.Equal(t, "aXaXaX", call(t, "replaceAll", "ababab", "b", "X"))
	assert.Equal(t, "abab", call(t, "repeat", "ab", float64(2)))
	assert.Equal(t, "--hi", call(t, "padStart", "hi", float64(4), "-"))
	assert.Equal(t, "hi--", call(t, "padEnd", "hi", float64(4), "-"))
}

func TestArrayBuiltins(t *testing.T) {
	arr := []interface{}{"a", "b"}
	assert.Equal(t, []interface{}{"a", "b", "c"}, call(t, "concat", arr, []interface{}{"c"}))
	assert.Equal(t, []interface{}{"b", "a"}, call(t, "reverse", arr))
	assert.Equal(t, []interface{}{"a", "b", "c"}, call(t, "sort", []interface{}{"c", "a", "b"}))
}

func TestCommonBuiltins(t *testing.T) {
	assert.Equal(t, float64(5), call(t, "length", "hello"))
	assert.Equal(t, float64(2), call(t, "length", []interface{}{"a", "b"}))
	assert.Equal(t, "a,b", call(t, "join", []interface{}{"a", "b"}))
	assert.Equal(t, []interface{}{"a", "b"}, call(t, "split", "a-b", "-"))
	assert.Equal(t, true, call(t, "includes", "hello world", "world"))
	assert.Equal(t, float64(6), call(t, "indexOf", "hello world", "world"))
	assert.Equal(t, true, call(t, "startsWith", "hello", "he"))
	assert.Equal(t, true, call(t, "endsWith", "hello", "lo"))
}

func TestTypeCheckBuiltins(t *testing.T) {
	assert.Equal(t, true, call(t, "isArray", []interface{}{}))
	assert.Equal(t, true, call(t, "isObject", map[string]interface{}{}))
	assert.Equal(t, true, call(t, "isString", "x"))
	assert.Equal(t, true, call(t, "isNumber", float64(1)))
	assert.Equal(t, true, call(t, "isBoolean", true))
	assert.Equal(t, true, call(t, "isNull", nil))
	assert.Equal(t, false, call(t, "isDefined", nil))
}

func TestLookupBuiltinUnknownName(t *testing.T) {
	_, ok := exec.LookupBuiltin("notARealBuiltin")
	assert.False(t, ok)
}
