package eval_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/eval"
)

func newTestRoot() *env.Environment {
	return env.NewRoot(&env.Capabilities{})
}

func varDirective(name string, rhs *ast.Node) *ast.Node {
	return &ast.Node{
		NodeKind: ast.KindDirective,
		Fields: map[string]interface{}{
			"kind": "var",
			"name": name,
			"rhs":  rhs,
		},
	}
}

func textNode(s string) *ast.Node {
	return &ast.Node{NodeKind: ast.KindText, Fields: map[string]interface{}{"value": s}}
}

func TestEvaluateDocumentVarAndShowLiteralText(t *testing.T) {
	root := newTestRoot()
	nodes := []*ast.Node{
		varDirective("greeting", textNode("hello")),
		{
			NodeKind: ast.KindDirective,
			Fields: map[string]interface{}{
				"kind":   "show",
				"target": &ast.Node{NodeKind: ast.KindVariableRef, Fields: map[string]interface{}{"name": "greeting"}},
			},
		},
	}

	out, err := eval.New().EvaluateDocument(context.Background(), nodes, root)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestEvaluateDocumentPreservesLiteralTextWithNoDirectives(t *testing.T) {
	root := newTestRoot()
	nodes := []*ast.Node{
		textNode("plain markdown"),
		{NodeKind: ast.KindNewline},
		textNode("second line"),
	}

	out, err := eval.New().EvaluateDocument(context.Background(), nodes, root)
	require.NoError(t, err)
	assert.Equal(t, "plain markdown\nsecond line", out)
}

func TestEvaluateDocumentVarObjectAndArray(t *testing.T) {
	root := newTestRoot()
	obj := &ast.Node{
		NodeKind: ast.KindObject,
		Fields: map[string]interface{}{
			"values": map[string]*ast.Node{"k": textNode("v")},
		},
	}
	arr := &ast.Node{
		NodeKind: ast.KindArray,
		Fields: map[string]interface{}{
			"items": []*ast.Node{textNode("a"), textNode("b")},
		},
	}

	nodes := []*ast.Node{
		varDirective("obj", obj),
		varDirective("arr", arr),
	}

	_, err := eval.New().EvaluateDocument(context.Background(), nodes, root)
	require.NoError(t, err)

	got, ok := root.GetVariable("obj")
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"k": "v"}, got.Value)

	gotArr, ok := root.GetVariable("arr")
	require.True(t, ok)
	assert.Equal(t, []interface{}{"a", "b"}, gotArr.Value)
}

func TestEvaluateDocumentShowMissingTargetIsFatal(t *testing.T) {
	root := newTestRoot()
	nodes := []*ast.Node{
		{NodeKind: ast.KindDirective, Fields: map[string]interface{}{"kind": "show"}},
	}
	_, err := eval.New().EvaluateDocument(context.Background(), nodes, root)
	assert.Error(t, err)
}
