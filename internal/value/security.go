// Package value implements the mlld typed value model: Variable,
// StructuredValue, and SecurityDescriptor (spec §3, §4.2).
//
// The security-descriptor taint lattice is grounded on the teacher's
// secret.Handle (core/sdk/secret/handle.go), which tracks a single
// tainted bool per value; here that generalizes to an ordered lattice
// so descriptors can be merged monotonically across pipeline stages.
package value

// Taint is the security lattice clean < unknown < tainted (spec §3).
type Taint int

const (
	TaintClean Taint = iota
	TaintUnknown
	TaintTainted
)

func (t Taint) String() string {
	switch t {
	case TaintClean:
		return "clean"
	case TaintUnknown:
		return "unknown"
	case TaintTainted:
		return "tainted"
	default:
		return "unknown"
	}
}

// max returns the higher taint level, the lattice join operator.
func (t Taint) max(o Taint) Taint {
	if o > t {
		return o
	}
	return t
}

// SecurityDescriptor is the {labels, taint, sources, policyContext}
// tuple attached to variables and structured values (spec §3, §4.2).
// Merges are monotonic: union of labels/sources, max of taint, and
// the leftmost non-nil policyContext wins.
type SecurityDescriptor struct {
	Labels        map[string]struct{}
	Taint         Taint
	Sources       []string
	PolicyContext interface{}
}

// NewSecurityDescriptor returns a clean descriptor with no labels.
func NewSecurityDescriptor() *SecurityDescriptor {
	return &SecurityDescriptor{Labels: map[string]struct{}{}}
}

// Clone returns a deep-enough copy safe to mutate independently.
func (d *SecurityDescriptor) Clone() *SecurityDescriptor {
	if d == nil {
		return NewSecurityDescriptor()
	}
	labels := make(map[string]struct{}, len(d.Labels))
	for l := range d.Labels {
		labels[l] = struct{}{}
	}
	sources := append([]string(nil), d.Sources...)
	return &SecurityDescriptor{Labels: labels, Taint: d.Taint, Sources: sources, PolicyContext: d.PolicyContext}
}

// MergeSecurityDescriptors unions labels/sources and takes the max
// taint across all inputs (spec §4.2 mergeSecurityDescriptors). The
// operation is associative and idempotent: merging a descriptor with
// itself, or merging in any order, yields the same result.
func MergeSecurityDescriptors(descriptors ...*SecurityDescriptor) *SecurityDescriptor {
	out := NewSecurityDescriptor()
	for _, d := range descriptors {
		if d == nil {
			continue
		}
		for l := range d.Labels {
			out.Labels[l] = struct{}{}
		}
		out.Taint = out.Taint.max(d.Taint)
		for _, s := range d.Sources {
			if !containsString(out.Sources, s) {
				out.Sources = append(out.Sources, s)
			}
		}
		if out.PolicyContext == nil && d.PolicyContext != nil {
			out.PolicyContext = d.PolicyContext
		}
	}
	return out
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// ExtractOptions controls ExtractSecurityDescriptor's traversal.
type ExtractOptions struct {
	Recursive          bool
	MergeArrayElements bool
}

// ExtractSecurityDescriptor returns the descriptor attached to v,
// optionally traversing container children and merging their
// descriptors in too (spec §4.2 extractSecurityDescriptor).
func ExtractSecurityDescriptor(v interface{}, opts ExtractOptions) *SecurityDescriptor {
	switch sv := v.(type) {
	case *StructuredValue:
		d := sv.Ctx
		if d == nil {
			d = NewSecurityDescriptor()
		}
		if opts.Recursive {
			switch sv.Type {
			case KindArray:
				if arr, ok := sv.Data.([]interface{}); ok && opts.MergeArrayElements {
					all := []*SecurityDescriptor{d}
					for _, el := range arr {
						all = append(all, ExtractSecurityDescriptor(el, opts))
					}
					return MergeSecurityDescriptors(all...)
				}
			case KindObject:
				if obj, ok := sv.Data.(map[string]interface{}); ok {
					all := []*SecurityDescriptor{d}
					for _, el := range obj {
						all = append(all, ExtractSecurityDescriptor(el, opts))
					}
					return MergeSecurityDescriptors(all...)
				}
			}
		}
		return d
	case *Variable:
		return sv.Ctx
	default:
		return NewSecurityDescriptor()
	}
}
