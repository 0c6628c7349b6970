package mapdef

import (
	"github.com/zclconf/go-cty/cty"
)

// String wraps a scalar request value.
func String(s string) cty.Value {
	return cty.StringVal(s)
}

// Strings wraps an array request value.
func Strings(ss ...string) cty.Value {
	if len(ss) == 0 {
		return cty.EmptyTupleVal
	}
	vals := make([]cty.Value, len(ss))
	for i, s := range ss {
		vals[i] = cty.StringVal(s)
	}
	return cty.TupleVal(vals)
}

// Index wraps an integer request value such as the interactivity layer.
func Index(i int) cty.Value {
	return cty.NumberIntVal(int64(i))
}

// Absent is the value of an omitted optional request field.
var Absent = cty.NullVal(cty.DynamicPseudoType)

func isAbsent(v cty.Value) bool {
	return v.IsNull()
}

func isSequence(v cty.Value) bool {
	ty := v.Type()
	return ty.IsTupleType() || ty.IsListType() || ty.IsSetType()
}

// elements returns the entries of a sequence, or the value itself as the
// single entry of a scalar.
func elements(v cty.Value) (vals []cty.Value, array bool) {
	if isSequence(v) {
		return v.AsValueSlice(), true
	}
	return []cty.Value{v}, false
}

// kindName names the shape of a value the way request authors think of it.
func kindName(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	if !v.IsKnown() {
		return "unknown"
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return "string"
	case ty == cty.Number:
		return "number"
	case ty == cty.Bool:
		return "boolean"
	case ty.IsObjectType(), ty.IsMapType(), ty.IsListType(), ty.IsTupleType(), ty.IsSetType():
		return "object"
	default:
		return ty.FriendlyName()
	}
}

// isFalsy reports whether an interactivity entry means "no interactivity".
func isFalsy(v cty.Value) bool {
	if v.IsNull() {
		return true
	}
	if !v.IsKnown() {
		return false
	}
	switch v.Type() {
	case cty.String:
		return v.AsString() == ""
	case cty.Bool:
		return v.False()
	case cty.Number:
		return v.AsBigFloat().Sign() == 0
	}
	return false
}
