package condition

import (
	"fmt"

	"github.com/storyloom/server/internal/vars"
)

// Evaluate reports whether every condition in the list holds against the
// store (AND semantics, matching the parser). An empty list always holds.
func Evaluate(conds []Condition, store *vars.Store) bool {
	for _, c := range conds {
		if !evaluateOne(c, store) {
			return false
		}
	}
	return true
}

func evaluateOne(c Condition, store *vars.Store) bool {
	value, defined := store.Get(c.Flag)

	switch c.Operator {
	case OpIsSet:
		return defined && vars.Truthy(value)
	case OpIsNotSet:
		return !defined || !vars.Truthy(value)
	case OpEquals:
		return defined && looseEqual(value, c.Value)
	case OpNotEquals:
		return !defined || !looseEqual(value, c.Value)
	case OpGreaterThan, OpLessThan, OpGreaterEqual, OpLessEqual:
		if !defined {
			return false
		}
		a, aok := vars.ToNumber(value)
		b, bok := vars.ToNumber(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Operator {
		case OpGreaterThan:
			return a > b
		case OpLessThan:
			return a < b
		case OpGreaterEqual:
			return a >= b
		default:
			return a <= b
		}
	default:
		return false
	}
}

// looseEqual compares numerically when both sides coerce to numbers, so a
// stored 3 matches a parsed "3"; otherwise it compares stringified forms.
func looseEqual(a, b interface{}) bool {
	an, aok := vars.ToNumber(a)
	bn, bok := vars.ToNumber(b)
	if aok && bok {
		return an == bn
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
