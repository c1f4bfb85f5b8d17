package lwm2m

import (
	"fmt"
	"math"
	"strconv"
)

// Value is a resource value as returned in a read response's content.value.
// A Value only exists for a successful read; a failed read returns
// ErrUnavailable instead, so a zero Value is never mistaken for "no answer".
type Value struct {
	raw any
}

// NewValue wraps a decoded JSON value
func NewValue(raw any) Value {
	return Value{raw: raw}
}

// Raw returns the decoded JSON value
func (v Value) Raw() any {
	return v.raw
}

// Int returns the value as an integer. Numeric strings are accepted because
// some clients report integer resources as strings.
func (v Value) Int() (int, bool) {
	switch n := v.raw.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Bool returns the value as a boolean
func (v Value) Bool() (bool, bool) {
	switch b := v.raw.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}

// String formats the value for display and for string comparisons
// such as the device-type filter.
func (v Value) String() string {
	switch s := v.raw.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
