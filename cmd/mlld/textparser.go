package main

import "github.com/mlld-lang/mlld-go/internal/ast"

// literalParser is a placeholder Parser (internal/eval.Parser):
// source is out of scope per spec §1/§6 ("the concrete surface
// grammar and parser producing the AST" is a named external
// collaborator), so this process has no directive grammar of its own.
// It satisfies the literal-preservation invariant (spec §7: "for any
// input that contains no directives, the output equals the input") by
// treating the whole source as a single Text node, which lets this
// CLI host run end-to-end against directive-free documents while a
// real grammar-aware parser is wired in by the host.
type literalParser struct{}

func (literalParser) Parse(source string) ([]*ast.Node, error) {
	return []*ast.Node{{
		NodeKind: ast.KindText,
		Fields:   map[string]interface{}{"value": source},
	}}, nil
}
