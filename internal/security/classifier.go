package security

import (
	"strings"

	"github.com/mlld-lang/mlld-go/internal/errors"
)

// unconditionallyForbidden operators are rejected regardless of
// surrounding context (spec §4.6): &&, ||, ;, >, >> (a `>` that is part
// of `&>` is exempt).
var unconditionallyForbidden = []string{"&&", "||", ";", ">>", ">"}

// ClassifyCommand strips quoted substrings and escaped characters,
// then rejects the literal presence of a forbidden operator outside
// quotes (spec §4.6): `&&`, `||`, `;` always; `>`, `>>` unless the `>`
// is part of `&>`; `<` unless part of `<<` (heredoc) or `<=`; a lone
// backgrounding `&` unless part of `&&` (itself separately forbidden)
// or `&>`.
func ClassifyCommand(cmd string) error {
	stripped := stripQuotedAndEscaped(cmd)

	for _, op := range unconditionallyForbidden {
		target := stripped
		if op == ">" || op == ">>" {
			target = strings.ReplaceAll(stripped, "&>", "")
		}
		if strings.Contains(target, op) {
			return errors.New(errors.KindForbiddenOperator, errors.Location{}, "run",
				"forbidden shell operator %q in command", op)
		}
	}

	// `<` is forbidden unless every occurrence is part of `<<` or `<=`.
	masked := strings.ReplaceAll(stripped, "<<", "")
	masked = strings.ReplaceAll(masked, "<=", "")
	if strings.Contains(masked, "<") {
		return errors.New(errors.KindForbiddenOperator, errors.Location{}, "run",
			"forbidden shell operator \"<\" in command")
	}

	// A lone `&` (backgrounding) is forbidden unless it is part of
	// `&>` (redirect both streams); `&&` was already caught above.
	masked = strings.ReplaceAll(stripped, "&&", "")
	masked = strings.ReplaceAll(masked, "&>", "")
	if strings.Contains(masked, "&") {
		return errors.New(errors.KindForbiddenOperator, errors.Location{}, "run",
			"forbidden shell operator \"&\" in command")
	}
	return nil
}

// stripQuotedAndEscaped removes the contents of single/double-quoted
// substrings and escaped characters so operator detection only looks
// at the command's unquoted structure (spec §4.6 "strip quoted
// substrings and escaped characters, then reject the literal
// presence").
func stripQuotedAndEscaped(cmd string) string {
	var b strings.Builder
	var quote rune
	escaped := false
	for _, r := range cmd {
		switch {
		case escaped:
			escaped = false
			continue
		case r == '\\':
			escaped = true
			continue
		case quote != 0:
			if r == quote {
				quote = 0
			}
			continue
		case r == '\'' || r == '"':
			quote = r
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
