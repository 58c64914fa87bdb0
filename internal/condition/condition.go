package condition

// Operator identifies how a condition tests a flag.
type Operator string

const (
	OpIsSet        Operator = "IS_SET"
	OpIsNotSet     Operator = "IS_NOT_SET"
	OpEquals       Operator = "EQUALS"
	OpNotEquals    Operator = "NOT_EQUALS"
	OpGreaterThan  Operator = "GREATER_THAN"
	OpLessThan     Operator = "LESS_THAN"
	OpGreaterEqual Operator = "GREATER_EQUAL"
	OpLessEqual    Operator = "LESS_EQUAL"
)

// Condition is one boolean test against a named flag. A list of conditions
// on a choice or conditional block is AND-combined; OR/XOR are not
// supported by the flag language.
type Condition struct {
	Flag     string      `json:"flag"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value,omitempty"`
}
