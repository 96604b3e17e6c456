// Package ast defines the node shapes the evaluator consumes from the
// external parser (spec §1, §6 — the concrete grammar and parser are
// out of scope; this package is the contract the evaluator programs
// against). Nodes are read-only from the evaluator's perspective;
// Location is propagated into every error the evaluator raises.
package ast

// Location is a source position, copied onto raised errors.
type Location struct {
	File   string
	Line   int
	Column int
}

// NodeKind is the closed set of node kinds spec §6 lists as consumed.
type NodeKind string

const (
	KindText            NodeKind = "Text"
	KindNewline         NodeKind = "Newline"
	KindVariableRef     NodeKind = "VariableReference"
	KindDirective       NodeKind = "Directive"
	KindObject          NodeKind = "object"
	KindArray           NodeKind = "array"
	KindCommand         NodeKind = "command"
	KindCode            NodeKind = "code"
	KindPath            NodeKind = "path"
	KindSection         NodeKind = "section"
	KindExecInvocation  NodeKind = "ExecInvocation"
	KindNewExpression   NodeKind = "NewExpression"
	KindLoadContent     NodeKind = "load-content"
	KindWhenExpression  NodeKind = "WhenExpression"
	KindForExpression   NodeKind = "ForExpression"
	KindForeach         NodeKind = "foreach"
	KindRegexLiteral    NodeKind = "RegexLiteral"
	KindTemplateCore    NodeKind = "TemplateCore"
	KindResolver        NodeKind = "resolver"
	KindData            NodeKind = "data"
)

// Node is the common shape every AST node satisfies. Concrete node
// data lives in the Fields map keyed by the node's own convention
// (e.g. a Directive's "kind"/"values"/"meta"); the evaluator asserts
// the shapes it needs via the typed accessors below rather than a
// giant sum-of-structs type, since the parser (external) is free to
// evolve its concrete representation.
type Node struct {
	NodeKind NodeKind
	Loc      Location
	Fields   map[string]interface{}
}

// Field fetches a named field, returning (nil, false) if absent.
func (n *Node) Field(name string) (interface{}, bool) {
	if n == nil || n.Fields == nil {
		return nil, false
	}
	v, ok := n.Fields[name]
	return v, ok
}

// StringField fetches a string-typed field, returning "" if absent or
// of the wrong type.
func (n *Node) StringField(name string) string {
	v, ok := n.Field(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// NodesField fetches a []*Node-typed field.
func (n *Node) NodesField(name string) []*Node {
	v, ok := n.Field(name)
	if !ok {
		return nil
	}
	nodes, _ := v.([]*Node)
	return nodes
}

// Text returns the literal text of a Text node.
func (n *Node) Text() string { return n.StringField("value") }

// DirectiveKind returns a Directive node's kind, e.g. "var", "show".
func (n *Node) DirectiveKind() string { return n.StringField("kind") }

// Values returns a Directive node's named value sub-nodes.
func (n *Node) Values() map[string]*Node {
	v, ok := n.Field("values")
	if !ok {
		return nil
	}
	m, _ := v.(map[string]*Node)
	return m
}

// Meta returns a Directive node's metadata bag (with-clause options,
// flags like multiline/interpolated, etc).
func (n *Node) Meta() map[string]interface{} {
	v, ok := n.Field("meta")
	if !ok {
		return nil
	}
	m, _ := v.(map[string]interface{})
	return m
}

// Document is an ordered sequence of top-level nodes (spec §6 Parser
// output: "an ordered sequence of AST nodes").
type Document struct {
	Nodes []*Node
}
