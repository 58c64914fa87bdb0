package condition

import (
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokFlag tokenKind = iota // $name
	tokOp                    // == != >= <= > < && !
	tokWord                  // bare word: and, not, eq, true, hello
	tokString                // quoted string, quotes stripped
	tokNumber
)

type token struct {
	kind tokenKind
	text string
}

// Parse turns a condition string into a list of conditions. Clauses are
// split on "and"/"&&" and matched against the flag-language patterns in
// precedence order; clauses that match nothing are silently dropped, so a
// malformed clause never fails the whole string.
func Parse(input string) []Condition {
	tokens := scan(input)
	var conds []Condition
	for _, clause := range splitClauses(tokens) {
		if c, ok := parseClause(clause); ok {
			conds = append(conds, c)
		}
	}
	return conds
}

// scan tokenizes a condition string. Multi-character operators are matched
// before their single-character prefixes so ">=" never reads as ">".
func scan(input string) []token {
	var tokens []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '$':
			j := i + 1
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			tokens = append(tokens, token{tokFlag, string(runes[i+1 : j])})
			i = j
		case r == '"' || r == '\'':
			quote := r
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			tokens = append(tokens, token{tokString, string(runes[i+1 : j])})
			if j < len(runes) {
				j++ // closing quote
			}
			i = j
		case r == '=' || r == '!' || r == '>' || r == '<' || r == '&':
			two := ""
			if i+1 < len(runes) {
				two = string(runes[i : i+2])
			}
			switch two {
			case "==", "!=", ">=", "<=", "&&":
				tokens = append(tokens, token{tokOp, two})
				i += 2
			default:
				tokens = append(tokens, token{tokOp, string(r)})
				i++
			}
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, string(runes[i:j])})
			i = j
		case isIdentRune(r):
			j := i + 1
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			tokens = append(tokens, token{tokWord, string(runes[i:j])})
			i = j
		default:
			i++ // unknown rune, skip
		}
	}
	return tokens
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// splitClauses divides a token stream on the AND separators.
func splitClauses(tokens []token) [][]token {
	var clauses [][]token
	var current []token
	for _, t := range tokens {
		isAnd := (t.kind == tokWord && strings.EqualFold(t.text, "and")) ||
			(t.kind == tokOp && t.text == "&&")
		if isAnd {
			if len(current) > 0 {
				clauses = append(clauses, current)
				current = nil
			}
			continue
		}
		current = append(current, t)
	}
	if len(current) > 0 {
		clauses = append(clauses, current)
	}
	return clauses
}

// comparisonOps maps operator spellings to their condition operator. The
// word aliases come from the script format (eq/is/neq/gte/lte/gt/lt).
var comparisonOps = map[string]Operator{
	"==": OpEquals, "eq": OpEquals, "is": OpEquals,
	"!=": OpNotEquals, "neq": OpNotEquals,
	">=": OpGreaterEqual, "gte": OpGreaterEqual,
	"<=": OpLessEqual, "lte": OpLessEqual,
	">": OpGreaterThan, "gt": OpGreaterThan,
	"<": OpLessThan, "lt": OpLessThan,
}

func parseClause(tokens []token) (Condition, bool) {
	switch len(tokens) {
	case 1:
		// bare flag: $x
		if tokens[0].kind == tokFlag {
			return Condition{Flag: tokens[0].text, Operator: OpIsSet}, true
		}
	case 2:
		// negated flag: not $x / ! $x
		neg := (tokens[0].kind == tokWord && strings.EqualFold(tokens[0].text, "not")) ||
			(tokens[0].kind == tokOp && tokens[0].text == "!")
		if neg && tokens[1].kind == tokFlag {
			return Condition{Flag: tokens[1].text, Operator: OpIsNotSet}, true
		}
	case 3:
		// comparison: $x <op> value
		if tokens[0].kind != tokFlag {
			break
		}
		opKey := tokens[1].text
		if tokens[1].kind == tokWord {
			opKey = strings.ToLower(opKey)
		} else if tokens[1].kind != tokOp {
			break
		}
		op, ok := comparisonOps[opKey]
		if !ok {
			break
		}
		value, ok := literalValue(tokens[2])
		if !ok {
			break
		}
		return Condition{Flag: tokens[0].text, Operator: op, Value: value}, true
	}
	return Condition{}, false
}

// ParseLiteral types a raw right-hand-side string the same way a condition
// value is typed: surrounding quotes are stripped, then numeric, then
// true/false, then plain string. The script importer uses this for
// <<set>> command values.
func ParseLiteral(raw string) interface{} {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// literalValue types a right-hand-side token: quoted strings stay strings,
// numbers parse to float64, true/false to bool, any other word falls back
// to its raw string form.
func literalValue(t token) (interface{}, bool) {
	switch t.kind {
	case tokString:
		return t.text, true
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	case tokWord:
		switch strings.ToLower(t.text) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return t.text, true
	default:
		return nil, false
	}
}
