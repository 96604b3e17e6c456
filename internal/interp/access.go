package interp

import (
	"context"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// FieldAccessKind selects how AccessField indexes into a value (spec
// §4.3 accessField).
type FieldAccessKind string

const (
	FieldKey      FieldAccessKind = "field"
	FieldArrayIdx FieldAccessKind = "arrayIndex"
	FieldVarIdx   FieldAccessKind = "variableIndex"
)

// FieldAccess is one step of a field/index chain.
type FieldAccess struct {
	Kind  FieldAccessKind
	Key   string      // for FieldKey
	Index int         // for FieldArrayIdx
	Expr  *ast.Node   // for FieldVarIdx: sub-expression computing the key
}

// Forbid controls whether a missing key is an error or yields nil.
type Forbid bool

// AccessField implements spec §4.3 accessField: supports string-key
// field access, numeric array index, and variableIndex (a key
// computed by evaluating a sub-expression). Missing keys return nil
// unless the caller forbids that (Forbid(true)).
func AccessField(ctx context.Context, v interface{}, access FieldAccess, e *env.Environment, evalr Evaluator, forbid Forbid) (interface{}, error) {
	if v == nil {
		if forbid {
			return nil, errors.New(errors.KindTypeMismatch, errors.Location{}, "access", "cannot access field on undefined value")
		}
		return nil, nil
	}
	data := value.AsData(v) // structured wrappers are auto-projected to data (spec §4.3)

	switch access.Kind {
	case FieldKey:
		obj, ok := data.(map[string]interface{})
		if !ok {
			if forbid {
				return nil, errors.New(errors.KindTypeMismatch, errors.Location{}, "access", "value is not an object, cannot access field %q", access.Key)
			}
			return nil, nil
		}
		res, ok := obj[access.Key]
		if !ok && forbid {
			return nil, errors.New(errors.KindTypeMismatch, errors.Location{}, "access", "object has no field %q", access.Key)
		}
		return res, nil

	case FieldArrayIdx:
		arr, ok := data.([]interface{})
		if !ok {
			if forbid {
				return nil, errors.New(errors.KindTypeMismatch, errors.Location{}, "access", "value is not an array, cannot index %d", access.Index)
			}
			return nil, nil
		}
		idx := access.Index
		if idx < 0 {
			idx += len(arr)
		}
		if idx < 0 || idx >= len(arr) {
			if forbid {
				return nil, errors.New(errors.KindTypeMismatch, errors.Location{}, "access", "array index %d out of range", access.Index)
			}
			return nil, nil
		}
		return arr[idx], nil

	case FieldVarIdx:
		keyVal, err := evalr.EvaluateDataValue(ctx, access.Expr, e)
		if err != nil {
			return nil, err
		}
		switch k := value.AsData(keyVal).(type) {
		case string:
			return AccessField(ctx, v, FieldAccess{Kind: FieldKey, Key: k}, e, evalr, forbid)
		case float64:
			return AccessField(ctx, v, FieldAccess{Kind: FieldArrayIdx, Index: int(k)}, e, evalr, forbid)
		case int:
			return AccessField(ctx, v, FieldAccess{Kind: FieldArrayIdx, Index: k}, e, evalr, forbid)
		default:
			return nil, errors.New(errors.KindTypeMismatch, errors.Location{}, "access", "computed index must be a string or number")
		}

	default:
		return nil, errors.New(errors.KindTypeMismatch, errors.Location{}, "access", "unknown field access kind %q", access.Kind)
	}
}

// AccessFieldChain applies a sequence of field nodes in order,
// short-circuiting to nil as soon as any step yields nil (spec §4.3
// "undefined field chain short-circuits").
func AccessFieldChain(ctx context.Context, v interface{}, fields []*ast.Node, e *env.Environment, evalr Evaluator) (interface{}, error) {
	cur := v
	for _, f := range fields {
		if cur == nil {
			return nil, nil
		}
		access, err := fieldAccessFromNode(f)
		if err != nil {
			return nil, err
		}
		cur, err = AccessField(ctx, cur, access, e, evalr, false)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func fieldAccessFromNode(n *ast.Node) (FieldAccess, error) {
	switch n.NodeKind {
	case "field":
		return FieldAccess{Kind: FieldKey, Key: n.StringField("name")}, nil
	case "arrayIndex":
		idx, _ := n.Field("index")
		i, _ := idx.(int)
		return FieldAccess{Kind: FieldArrayIdx, Index: i}, nil
	case "variableIndex":
		expr, _ := n.Field("expr")
		sub, _ := expr.(*ast.Node)
		return FieldAccess{Kind: FieldVarIdx, Expr: sub}, nil
	default:
		return FieldAccess{}, errors.New(errors.KindTypeMismatch, errors.Location{}, "access", "unsupported field access node kind %q", n.NodeKind)
	}
}
