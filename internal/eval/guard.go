package eval

import (
	"context"
	"sync"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/iface"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// guardDef is a registered /guard directive (spec §4.4.5): a when-
// shaped decision body that runs before or after invocations of a
// named target (or every invocation, for the "*" wildcard target).
type guardDef struct {
	name     string
	timing   string // "before" | "after"
	target   string // callable name, or "*" for every invocation
	branches []*ast.Node
}

// GuardManager implements iface.HookManager by routing RunPre/RunPost
// calls to whichever /guard directives were registered against the
// invocation's callable name. It is the bridge spec §4.5 describes
// between the exec engine's guard call sites and the guard decision
// logic in evalGuard: registration happens when the directive is
// evaluated, matching happens when an invocation reaches runPreGuards/
// runPostGuards.
type GuardManager struct {
	ev *Evaluator

	mu     sync.Mutex
	guards []*guardDef
}

// NewGuardManager constructs a GuardManager bound to the Evaluator
// whose EvaluateDataValue it reuses to evaluate guard conditions.
func NewGuardManager(ev *Evaluator) *GuardManager {
	return &GuardManager{ev: ev}
}

// Register adds a guard definition. Guards run in registration order;
// within a guard the first matching branch decides, and the first guard
// whose decision is not Allow short-circuits the rest.
func (g *GuardManager) Register(def *guardDef) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.guards = append(g.guards, def)
}

func (g *GuardManager) matching(timing, target string) []*guardDef {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*guardDef, 0, len(g.guards))
	for _, gd := range g.guards {
		if gd.timing != timing {
			continue
		}
		if gd.target != "*" && gd.target != target {
			continue
		}
		out = append(out, gd)
	}
	return out
}

// RunPre implements iface.HookManager: runs every registered "before"
// guard matching opCtx.ExecutableName, in order, stopping at the first
// non-Allow decision.
func (g *GuardManager) RunPre(node interface{}, inputs map[string]interface{}, envArg interface{}, opCtx iface.OpContext) (iface.Decision, error) {
	return g.run("before", nil, inputs, envArg, opCtx)
}

// RunPost implements iface.HookManager: runs every registered "after"
// guard matching opCtx.ExecutableName, with @output bound to result.
func (g *GuardManager) RunPost(node interface{}, result interface{}, inputs map[string]interface{}, envArg interface{}, opCtx iface.OpContext) (iface.Decision, error) {
	return g.run("after", result, inputs, envArg, opCtx)
}

func (g *GuardManager) run(timing string, result interface{}, inputs map[string]interface{}, envArg interface{}, opCtx iface.OpContext) (iface.Decision, error) {
	e, ok := envArg.(*env.Environment)
	if !ok || e == nil {
		return iface.Decision{Kind: iface.DecisionAllow}, nil
	}
	for _, gd := range g.matching(timing, opCtx.ExecutableName) {
		decision, err := g.evaluate(gd, result, inputs, e, opCtx)
		if err != nil {
			return iface.Decision{}, err
		}
		if decision.Kind != iface.DecisionAllow {
			return decision, nil
		}
	}
	return iface.Decision{Kind: iface.DecisionAllow}, nil
}

// evaluate runs one guard's when-shaped branches against a scratch
// child env carrying @output and @mx.guard.try (spec §4.4.5), mirroring
// evalWhen's branch-matching but translating the matched branch's
// decision verb into an iface.Decision instead of an EvalResult.
func (g *GuardManager) evaluate(gd *guardDef, result interface{}, inputs map[string]interface{}, e *env.Environment, opCtx iface.OpContext) (iface.Decision, error) {
	child := e.CreateChild(e.CurrentFilePath())
	if result != nil {
		outputVal := result
		if sv, ok := result.(*value.StructuredValue); ok {
			outputVal = value.AsData(sv)
		}
		bindGuardVar(child, "output", outputVal)
	}
	bindGuardVar(child, "input", inputs)
	bindGuardVar(child, "mx", map[string]interface{}{
		"guard": map[string]interface{}{"try": opCtx.TryCount},
	})

	ctx := context.Background()
	for _, branch := range gd.branches {
		matched := true
		if condNode, hasCond := branch.Field("condition"); hasCond {
			cond, _ := condNode.(*ast.Node)
			v, err := g.ev.EvaluateDataValue(ctx, cond, child)
			if err != nil {
				return iface.Decision{}, err
			}
			matched = truthy(v)
		}
		if !matched {
			continue
		}
		reason := branch.StringField("reason")
		switch branch.StringField("decision") {
		case "deny":
			return iface.Decision{Kind: iface.DecisionDeny, Reason: reason}, nil
		case "retry":
			return iface.Decision{Kind: iface.DecisionRetry, Reason: reason}, nil
		default:
			return iface.Decision{Kind: iface.DecisionAllow}, nil
		}
	}
	return iface.Decision{Kind: iface.DecisionAllow}, nil
}

func bindGuardVar(e *env.Environment, name string, v interface{}) {
	pv := value.NewVariable(name, value.KindObjectVar, v, value.Source{Directive: "guard"})
	_ = e.SetParameterVariable(name, pv)
}
