// Package security implements spec §4.7: the shared import/resolution
// cycle stacks, the shell command classifier, URL policy enforcement,
// and the import-approval/immutable content-addressed cache.
package security

import (
	"strings"
	"sync"

	"github.com/mlld-lang/mlld-go/internal/errors"
)

// ImportStack is the shared, path-normalized set an environment tree
// uses to detect circular imports (spec §4.1, §4.7, §8 property 2).
// Child environments share their parent's pointer so a cycle started
// in a descendant scope is visible to ancestors too.
type ImportStack struct {
	mu    sync.Mutex
	order []string
	set   map[string]struct{}
}

// NewImportStack returns an empty, ready-to-share stack.
func NewImportStack() *ImportStack {
	return &ImportStack{set: map[string]struct{}{}}
}

func normalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// Begin pushes path, returning CircularImport if already present.
func (s *ImportStack) Begin(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := normalizePath(path)
	if _, ok := s.set[norm]; ok {
		cycle := append(append([]string(nil), s.order...), norm)
		return errors.NewCircularImport(errors.Location{}, cycle)
	}
	s.set[norm] = struct{}{}
	s.order = append(s.order, norm)
	return nil
}

// End pops path. Must run in a finally-equivalent (defer) so the
// stack stays consistent on the error path too (spec §4.1 Failure
// semantics: "binding cleanup in error paths MUST still pop cycle
// stacks").
func (s *ImportStack) End(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := normalizePath(path)
	delete(s.set, norm)
	for i, p := range s.order {
		if p == norm {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Contains reports whether path is currently on the stack.
func (s *ImportStack) Contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[normalizePath(path)]
	return ok
}

// ResolutionStack tracks in-flight executable-name resolution to
// detect circular calls (spec §4.1 beginResolving/endResolving, §8
// property 2). Builtin method names and reserved names never enter
// this stack (spec §4.1).
type ResolutionStack struct {
	mu    sync.Mutex
	order []string
	set   map[string]struct{}
}

func NewResolutionStack() *ResolutionStack {
	return &ResolutionStack{set: map[string]struct{}{}}
}

// IsExcluded reports whether name is a builtin method or reserved
// name and therefore exempt from resolution-cycle tracking.
func IsExcluded(name string, isBuiltin, isReserved bool) bool {
	return isBuiltin || isReserved
}

func (s *ResolutionStack) Begin(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.set[name]; ok {
		cycle := append(append([]string(nil), s.order...), name)
		return &errors.EvalError{
			Kind:    errors.KindCircularExecutable,
			Message: "circular executable call: " + strings.Join(cycle, " -> "),
		}
	}
	s.set[name] = struct{}{}
	s.order = append(s.order, name)
	return nil
}

func (s *ResolutionStack) End(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.set, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
