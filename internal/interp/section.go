package interp

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// DefaultSectionMatchThreshold bounds how many edits (relative to the
// length of the requested section name) a fuzzy section-heading match may differ by
// before it's rejected (spec §4.4.3 step 5: "fuzzy similarity ≥
// threshold using normalized Levenshtein"). Shared by import's section
// extraction and the exec engine's section{} executable dispatch so
// both use the identical matching rule.
const DefaultSectionMatchThreshold = 0.4

// ExtractSection finds the Markdown heading that best fuzzy-matches
// name and returns the content from that heading up to (but not
// including) the next heading at the same or shallower level.
func ExtractSection(content, name string, threshold float64) (string, bool) {
	lines := strings.Split(content, "\n")
	type heading struct {
		line  int
		level int
		text  string
	}
	var headings []heading
	for i, l := range lines {
		trimmed := strings.TrimLeft(l, " ")
		level := 0
		for level < len(trimmed) && trimmed[level] == '#' {
			level++
		}
		if level > 0 && level < len(trimmed) && trimmed[level] == ' ' {
			headings = append(headings, heading{line: i, level: level, text: strings.TrimSpace(trimmed[level:])})
		}
	}
	if len(headings) == 0 {
		return "", false
	}

	candidates := make([]string, len(headings))
	for i, h := range headings {
		candidates[i] = h.text
	}
	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) == 0 {
		return "", false
	}
	best := ranks[0]
	for _, r := range ranks[1:] {
		if r.Distance < best.Distance {
			best = r
		}
	}
	normalized := float64(best.Distance) / float64(maxInt(len(name), 1))
	if normalized > threshold {
		return "", false
	}

	match := headings[best.OriginalIndex]
	end := len(lines)
	for _, h := range headings {
		if h.line > match.line && h.level <= match.level {
			end = h.line
			break
		}
	}
	return strings.Join(lines[match.line:end], "\n"), true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
