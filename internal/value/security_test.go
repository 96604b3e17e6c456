package value_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-go/internal/value"
)

func TestMergeSecurityDescriptorsIsMonotonic(t *testing.T) {
	a := &value.SecurityDescriptor{Labels: map[string]struct{}{"pii": {}}, Taint: value.TaintClean, Sources: []string{"a.mld"}}
	b := &value.SecurityDescriptor{Labels: map[string]struct{}{"secret": {}}, Taint: value.TaintTainted, Sources: []string{"b.mld"}}

	merged := value.MergeSecurityDescriptors(a, b)

	assert.Equal(t, value.TaintTainted, merged.Taint, "merge must take the max taint")
	assert.Contains(t, merged.Labels, "pii")
	assert.Contains(t, merged.Labels, "secret")
	assert.ElementsMatch(t, []string{"a.mld", "b.mld"}, merged.Sources)
}

func TestMergeSecurityDescriptorsAssociativeAndIdempotent(t *testing.T) {
	a := &value.SecurityDescriptor{Labels: map[string]struct{}{"pii": {}}, Taint: value.TaintUnknown, Sources: []string{"a"}}
	b := &value.SecurityDescriptor{Labels: map[string]struct{}{"net": {}}, Taint: value.TaintClean, Sources: []string{"b"}}
	c := &value.SecurityDescriptor{Labels: map[string]struct{}{"fs": {}}, Taint: value.TaintTainted, Sources: []string{"c"}}

	left := value.MergeSecurityDescriptors(value.MergeSecurityDescriptors(a, b), c)
	right := value.MergeSecurityDescriptors(a, value.MergeSecurityDescriptors(b, c))

	assert.Equal(t, left.Taint, right.Taint, "merge must be associative on taint")
	assert.ElementsMatch(t, left.Sources, right.Sources)

	idempotent := value.MergeSecurityDescriptors(left, left)
	assert.Equal(t, left.Taint, idempotent.Taint)
	assert.ElementsMatch(t, left.Sources, idempotent.Sources)
}

func TestWrapExecResultPrimitiveRoundTrip(t *testing.T) {
	sv := value.WrapExecResult(42, value.WrapOptions{})
	require.Equal(t, value.KindText, sv.Type)
	assert.Equal(t, "42", sv.Text)
	assert.Equal(t, 42, sv.Data.(int))
}

func TestWrapExecResultIdempotentOnStructured(t *testing.T) {
	first := value.WrapExecResult(map[string]interface{}{"a": 1.0}, value.WrapOptions{})
	second := value.WrapExecResult(value.AsData(first), value.WrapOptions{})

	if diff := cmp.Diff(first.Data, second.Data); diff != "" {
		t.Errorf("wrapExecResult(asData(wrapExecResult(x))) != wrapExecResult(x):\n%s", diff)
	}
	assert.Equal(t, first.Type, second.Type)
}

func TestParseAndWrapJSONFallsBackToNilOnNonJSON(t *testing.T) {
	assert.Nil(t, value.ParseAndWrapJSON("not json"))
	sv := value.ParseAndWrapJSON(`{"a":1}`)
	require.NotNil(t, sv)
	assert.Equal(t, value.KindObject, sv.Type)
}
