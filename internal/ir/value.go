package ir

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// IRValue is a sealed interface representing the typed scalar values that
// appear in filter predicates and forced sort orders.
// Only IRInt, IRFloat, IRString, IRBool and IRArray implement this.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRInt represents an integer value.
type IRInt int64

func (IRInt) irValue() {}

// IRFloat represents a floating-point value.
// NaN and infinities are representable in memory but rejected by
// MarshalCanonical.
type IRFloat float64

func (IRFloat) irValue() {}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray is a composite value: an ordered tuple of scalars.
// Nested arrays are not allowed; see IsScalar.
type IRArray []IRValue

func (IRArray) irValue() {}

// NewIRInt creates an IRInt value.
func NewIRInt(n int64) IRInt {
	return IRInt(n)
}

// NewIRFloat creates an IRFloat value.
func NewIRFloat(f float64) IRFloat {
	return IRFloat(f)
}

// NewIRString creates an IRString value.
func NewIRString(s string) IRString {
	return IRString(s)
}

// NewIRBool creates an IRBool value.
func NewIRBool(b bool) IRBool {
	return IRBool(b)
}

// NewIRArray creates an IRArray from values.
func NewIRArray(vals ...IRValue) IRArray {
	return IRArray(vals)
}

// IsScalar reports whether v is one of the non-composite value types.
func IsScalar(v IRValue) bool {
	switch v.(type) {
	case IRInt, IRFloat, IRString, IRBool:
		return true
	default:
		return false
	}
}

// CheckValue verifies v is a known value type and, for arrays, that every
// element is a scalar.
func CheckValue(v IRValue) error {
	switch val := v.(type) {
	case IRInt, IRFloat, IRString, IRBool:
		return nil
	case IRArray:
		for i, elem := range val {
			if !IsScalar(elem) {
				return fmt.Errorf("array[%d]: composite values may only contain scalars, got %T", i, elem)
			}
		}
		return nil
	case nil:
		return fmt.Errorf("nil value")
	default:
		return fmt.Errorf("unknown IRValue type: %T", v)
	}
}

// EqualValues reports structural equality of two values.
// Values of different kinds are never equal: IRInt(1) != IRFloat(1).
func EqualValues(a, b IRValue) bool {
	switch av := a.(type) {
	case IRInt:
		bv, ok := b.(IRInt)
		return ok && av == bv
	case IRFloat:
		bv, ok := b.(IRFloat)
		if !ok {
			return false
		}
		// NaN compares equal to itself so decoded queries match their source.
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return av == bv
	case IRString:
		bv, ok := b.(IRString)
		return ok && av == bv
	case IRBool:
		bv, ok := b.(IRBool)
		return ok && av == bv
	case IRArray:
		bv, ok := b.(IRArray)
		return ok && slices.EqualFunc(av, bv, EqualValues)
	case nil:
		return b == nil
	default:
		return false
	}
}

// EqualValueSlices compares two value sequences element-wise.
// A nil slice equals an empty one.
func EqualValueSlices(a, b []IRValue) bool {
	return slices.EqualFunc(a, b, EqualValues)
}

// CloneValue deep-copies a value. Only arrays carry shared backing storage.
func CloneValue(v IRValue) IRValue {
	if arr, ok := v.(IRArray); ok {
		return slices.Clone(arr)
	}
	return v
}

// CloneValues deep-copies a value sequence, preserving nil.
func CloneValues(vals []IRValue) []IRValue {
	if vals == nil {
		return nil
	}
	out := make([]IRValue, len(vals))
	for i, v := range vals {
		out[i] = CloneValue(v)
	}
	return out
}

// FormatValue renders a value as query text.
// Strings are single-quoted with embedded quotes doubled, floats use the
// shortest representation that round-trips, arrays render as (a,b).
func FormatValue(v IRValue) string {
	switch val := v.(type) {
	case IRInt:
		return strconv.FormatInt(int64(val), 10)
	case IRFloat:
		s := strconv.FormatFloat(float64(val), 'g', -1, 64)
		// Keep a float visibly a float so re-parsing does not produce an int.
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case IRString:
		return "'" + strings.ReplaceAll(string(val), "'", "''") + "'"
	case IRBool:
		return strconv.FormatBool(bool(val))
	case IRArray:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = FormatValue(elem)
		}
		return "(" + strings.Join(parts, ",") + ")"
	default:
		return fmt.Sprintf("<%T>", v)
	}
}

// sortedKeys returns map keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
