package condition

import (
	"fmt"
	"strconv"
	"strings"
)

var operatorText = map[Operator]string{
	OpEquals:       "==",
	OpNotEquals:    "!=",
	OpGreaterEqual: ">=",
	OpLessEqual:    "<=",
	OpGreaterThan:  ">",
	OpLessThan:     "<",
}

// Format renders a condition list back to its textual form, joining
// clauses with "and". Format is the inverse of Parse up to operator
// spelling (symbolic forms are canonical on output).
func Format(conds []Condition) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		parts = append(parts, FormatCondition(c))
	}
	return strings.Join(parts, " and ")
}

// FormatCondition renders one condition. A comparison missing its value
// degrades to the bare-flag form rather than producing invalid text.
func FormatCondition(c Condition) string {
	switch c.Operator {
	case OpIsSet:
		return "$" + c.Flag
	case OpIsNotSet:
		return "not $" + c.Flag
	}
	op, ok := operatorText[c.Operator]
	if !ok || c.Value == nil {
		return "$" + c.Flag
	}
	return fmt.Sprintf("$%s %s %s", c.Flag, op, formatValue(c.Value))
}

// FormatLiteral prints a flag value the way condition values print:
// strings re-quoted, numbers and booleans bare.
func FormatLiteral(v interface{}) string {
	return formatValue(v)
}

// formatValue prints strings re-quoted and numbers/booleans bare.
func formatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}
