package exec

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// BuiltinMethod is one of the JavaScript-semantics builtins spec
// §4.5 names: string, array, common, and type-check methods. Each
// closes over a receiver-typed implementation selected by name.
type BuiltinMethod struct {
	Name string
	fn   func(receiver interface{}, args []interface{}) (interface{}, error)
}

// Invoke runs the builtin against its receiver with positional
// arguments taken from params in parameter order ("arg0", "arg1", ...).
func (b *BuiltinMethod) Invoke(receiver interface{}, params map[string]interface{}) (interface{}, error) {
	args := make([]interface{}, 0, len(params))
	for i := 0; ; i++ {
		v, ok := params[fmt.Sprintf("arg%d", i)]
		if !ok {
			break
		}
		args = append(args, v)
	}
	return b.fn(receiver, args)
}

var builtins map[string]*BuiltinMethod

func init() {
	builtins = map[string]*BuiltinMethod{}
	register := func(name string, fn func(interface{}, []interface{}) (interface{}, error)) {
		builtins[name] = &BuiltinMethod{Name: name, fn: fn}
	}

	register("toLowerCase", func(r interface{}, a []interface{}) (interface{}, error) { return strings.ToLower(asStr(r)), nil })
	register("toUpperCase", func(r interface{}, a []interface{}) (interface{}, error) { return strings.ToUpper(asStr(r)), nil })
	register("trim", func(r interface{}, a []interface{}) (interface{}, error) { return strings.TrimSpace(asStr(r)), nil })
	register("slice", func(r interface{}, a []interface{}) (interface{}, error) { return sliceValue(r, a) })
	register("substring", func(r interface{}, a []interface{}) (interface{}, error) { return substringValue(r, a) })
	register("substr", func(r interface{}, a []interface{}) (interface{}, error) { return substrValue(r, a) })
	register("replace", func(r interface{}, a []interface{}) (interface{}, error) { return replaceValue(r, a, false) })
	register("replaceAll", func(r interface{}, a []interface{}) (interface{}, error) { return replaceValue(r, a, true) })
	register("padStart", func(r interface{}, a []interface{}) (interface{}, error) { return padValue(r, a, true) })
	register("padEnd", func(r interface{}, a []interface{}) (interface{}, error) { return padValue(r, a, false) })
	register("repeat", func(r interface{}, a []interface{}) (interface{}, error) {
		n := asInt(argAt(a, 0))
		if n < 0 {
			return nil, errors.New(errors.KindTypeMismatch, errors.Location{}, "exe", "repeat count must be non-negative")
		}
		return strings.Repeat(asStr(r), n), nil
	})

	register("concat", func(r interface{}, a []interface{}) (interface{}, error) {
		out := append([]interface{}{}, asArr(r)...)
		for _, x := range a {
			if arr, ok := x.([]interface{}); ok {
				out = append(out, arr...)
			} else {
				out = append(out, x)
			}
		}
		return out, nil
	})
	register("reverse", func(r interface{}, a []interface{}) (interface{}, error) {
		src := asArr(r)
		out := make([]interface{}, len(src))
		for i, v := range src {
			out[len(src)-1-i] = v
		}
		return out, nil
	})
	register("sort", func(r interface{}, a []interface{}) (interface{}, error) {
		src := append([]interface{}{}, asArr(r)...)
		sort.SliceStable(src, func(i, j int) bool {
			return value.AsText(src[i]) < value.AsText(src[j])
		})
		return src, nil
	})

	register("length", func(r interface{}, a []interface{}) (interface{}, error) {
		switch t := value.AsData(r).(type) {
		case string:
			return float64(len([]rune(t))), nil
		case []interface{}:
			return float64(len(t)), nil
		default:
			return nil, errors.New(errors.KindTypeMismatch, errors.Location{}, "exe", "length is not defined for this value")
		}
	})
	register("join", func(r interface{}, a []interface{}) (interface{}, error) {
		sep := ","
		if len(a) > 0 {
			sep = asStr(a[0])
		}
		parts := make([]string, 0, len(asArr(r)))
		for _, v := range asArr(r) {
			parts = append(parts, value.AsText(v))
		}
		return strings.Join(parts, sep), nil
	})
	register("split", func(r interface{}, a []interface{}) (interface{}, error) {
		sep := ""
		if len(a) > 0 {
			sep = asStr(a[0])
		}
		var parts []string
		if sep == "" {
			for _, ch := range asStr(r) {
				parts = append(parts, string(ch))
			}
		} else {
			parts = strings.Split(asStr(r), sep)
		}
		out := make([]interface{}, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	})
	register("includes", func(r interface{}, a []interface{}) (interface{}, error) {
		target := argAt(a, 0)
		switch t := value.AsData(r).(type) {
		case string:
			return strings.Contains(t, asStr(target)), nil
		case []interface{}:
			for _, v := range t {
				if deepEqual(v, target) {
					return true, nil
				}
			}
			return false, nil
		}
		return false, nil
	})
	register("indexOf", func(r interface{}, a []interface{}) (interface{}, error) {
		target := argAt(a, 0)
		switch t := value.AsData(r).(type) {
		case string:
			return float64(strings.Index(t, asStr(target))), nil
		case []interface{}:
			for i, v := range t {
				if deepEqual(v, target) {
					return float64(i), nil
				}
			}
			return float64(-1), nil
		}
		return float64(-1), nil
	})
	register("startsWith", func(r interface{}, a []interface{}) (interface{}, error) {
		return strings.HasPrefix(asStr(r), asStr(argAt(a, 0))), nil
	})
	register("endsWith", func(r interface{}, a []interface{}) (interface{}, error) {
		return strings.HasSuffix(asStr(r), asStr(argAt(a, 0))), nil
	})
	register("match", func(r interface{}, a []interface{}) (interface{}, error) {
		re, err := regexp.Compile(asStr(argAt(a, 0)))
		if err != nil {
			return nil, errors.New(errors.KindTypeMismatch, errors.Location{}, "exe", "invalid regex: %v", err)
		}
		m := re.FindStringSubmatch(asStr(r))
		if m == nil {
			return nil, nil
		}
		out := make([]interface{}, len(m))
		for i, g := range m {
			out[i] = g
		}
		return out, nil
	})

	register("isArray", func(r interface{}, a []interface{}) (interface{}, error) { _, ok := value.AsData(r).([]interface{}); return ok, nil })
	register("isObject", func(r interface{}, a []interface{}) (interface{}, error) { _, ok := value.AsData(r).(map[string]interface{}); return ok, nil })
	register("isString", func(r interface{}, a []interface{}) (interface{}, error) { _, ok := value.AsData(r).(string); return ok, nil })
	register("isNumber", func(r interface{}, a []interface{}) (interface{}, error) {
		switch value.AsData(r).(type) {
		case float64, int, int64:
			return true, nil
		}
		return false, nil
	})
	register("isBoolean", func(r interface{}, a []interface{}) (interface{}, error) { _, ok := value.AsData(r).(bool); return ok, nil })
	register("isNull", func(r interface{}, a []interface{}) (interface{}, error) { return value.AsData(r) == nil, nil })
	register("isDefined", func(r interface{}, a []interface{}) (interface{}, error) { return r != nil, nil })
}

// LookupBuiltin finds a registered builtin by name (spec §4.5 callable
// resolution step 1).
func LookupBuiltin(name string) (*BuiltinMethod, bool) {
	b, ok := builtins[name]
	return b, ok
}

func asStr(v interface{}) string { return value.AsText(v) }

func asArr(v interface{}) []interface{} {
	arr, _ := value.AsData(v).([]interface{})
	return arr
}

func asInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}

func argAt(a []interface{}, i int) interface{} {
	if i < len(a) {
		return a[i]
	}
	return nil
}

func deepEqual(a, b interface{}) bool {
	return value.AsText(a) == value.AsText(b) && fmt.Sprintf("%T", value.AsData(a)) == fmt.Sprintf("%T", value.AsData(b))
}

func normalizeIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	if i < 0 {
		i = 0
	}
	if i > length {
		i = length
	}
	return i
}

func sliceValue(r interface{}, a []interface{}) (interface{}, error) {
	switch t := value.AsData(r).(type) {
	case string:
		runes := []rune(t)
		start, end := sliceBounds(a, len(runes))
		return string(runes[start:end]), nil
	case []interface{}:
		start, end := sliceBounds(a, len(t))
		return append([]interface{}{}, t[start:end]...), nil
	default:
		return nil, errors.New(errors.KindTypeMismatch, errors.Location{}, "exe", "slice is not defined for this value")
	}
}

func sliceBounds(a []interface{}, length int) (int, int) {
	start, end := 0, length
	if len(a) > 0 {
		start = normalizeIndex(asInt(a[0]), length)
	}
	if len(a) > 1 {
		end = normalizeIndex(asInt(a[1]), length)
	}
	if end < start {
		end = start
	}
	return start, end
}

// substringValue implements JS String.prototype.substring: negative
// and out-of-order arguments are clamped/swapped rather than wrapping.
func substringValue(r interface{}, a []interface{}) (interface{}, error) {
	runes := []rune(asStr(r))
	length := len(runes)
	clamp := func(i int) int {
		if i < 0 {
			return 0
		}
		if i > length {
			return length
		}
		return i
	}
	start := 0
	if len(a) > 0 {
		start = clamp(asInt(a[0]))
	}
	end := length
	if len(a) > 1 {
		end = clamp(asInt(a[1]))
	}
	if start > end {
		start, end = end, start
	}
	return string(runes[start:end]), nil
}

func substrValue(r interface{}, a []interface{}) (interface{}, error) {
	runes := []rune(asStr(r))
	length := len(runes)
	start := normalizeIndex(asInt(argAt(a, 0)), length)
	count := length - start
	if len(a) > 1 {
		count = asInt(a[1])
	}
	if count < 0 {
		count = 0
	}
	end := start + count
	if end > length {
		end = length
	}
	return string(runes[start:end]), nil
}

func replaceValue(r interface{}, a []interface{}, all bool) (interface{}, error) {
	s := asStr(r)
	search := asStr(argAt(a, 0))
	repl := asStr(argAt(a, 1))
	if all {
		return strings.ReplaceAll(s, search, repl), nil
	}
	return strings.Replace(s, search, repl, 1), nil
}

func padValue(r interface{}, a []interface{}, start bool) (interface{}, error) {
	s := asStr(r)
	target := asInt(argAt(a, 0))
	pad := " "
	if len(a) > 1 {
		pad = asStr(a[1])
	}
	if pad == "" || len([]rune(s)) >= target {
		return s, nil
	}
	var b strings.Builder
	need := target - len([]rune(s))
	for b.Len() < need {
		b.WriteString(pad)
	}
	padding := string([]rune(b.String())[:need])
	if start {
		return padding + s, nil
	}
	return s + padding, nil
}
