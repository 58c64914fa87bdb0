package vars

import (
	"fmt"
	"strconv"
)

// Store holds the narrative flags for one playback session. Values are
// restricted to bool, number, or string. A store lives exactly as long as
// its session; persistence belongs to the host.
type Store struct {
	flags map[string]interface{}
}

// NewStore creates a store seeded from an initial snapshot. The snapshot is
// copied, so later mutations never leak back into the caller's map.
func NewStore(initial map[string]interface{}) *Store {
	s := &Store{flags: make(map[string]interface{})}
	for k, v := range initial {
		s.flags[k] = v
	}
	return s
}

// Get returns a flag value and whether it is defined.
func (s *Store) Get(name string) (interface{}, bool) {
	v, ok := s.flags[name]
	return v, ok
}

// Set writes a flag value.
func (s *Store) Set(name string, value interface{}) {
	s.flags[name] = value
}

// Snapshot returns a shallow copy of the current flag map.
func (s *Store) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}

// Reset clears the store and repopulates it from next. Passing nil leaves
// an empty store.
func (s *Store) Reset(next map[string]interface{}) {
	s.flags = make(map[string]interface{}, len(next))
	for k, v := range next {
		s.flags[k] = v
	}
}

// Len returns the number of defined flags.
func (s *Store) Len() int {
	return len(s.flags)
}

// FlagWrite is a single flag mutation carried by a node, choice, or
// conditional block and applied when that element is entered or taken.
type FlagWrite struct {
	Flag  string      `json:"flag"`
	Op    string      `json:"op,omitempty"` // "=", "+=", "-=", "*=", "/="; empty means "="
	Value interface{} `json:"value"`
}

// Apply executes one flag write against the store. Compound operators are
// numeric; if either side fails to coerce, the write degrades to a plain
// assignment ("+=" on strings concatenates instead).
func (s *Store) Apply(w FlagWrite) {
	switch w.Op {
	case "", "=":
		s.flags[w.Flag] = w.Value
	case "+=":
		cur, ok := s.flags[w.Flag]
		if !ok {
			s.flags[w.Flag] = w.Value
			return
		}
		a, aok := ToNumber(cur)
		b, bok := ToNumber(w.Value)
		if aok && bok {
			s.flags[w.Flag] = a + b
			return
		}
		if cs, ok := cur.(string); ok {
			s.flags[w.Flag] = cs + fmt.Sprint(w.Value)
			return
		}
		s.flags[w.Flag] = w.Value
	case "-=", "*=", "/=":
		a, aok := ToNumber(s.flags[w.Flag])
		b, bok := ToNumber(w.Value)
		if !aok || !bok {
			s.flags[w.Flag] = w.Value
			return
		}
		switch w.Op {
		case "-=":
			s.flags[w.Flag] = a - b
		case "*=":
			s.flags[w.Flag] = a * b
		case "/=":
			if b != 0 {
				s.flags[w.Flag] = a / b
			}
		}
	default:
		s.flags[w.Flag] = w.Value
	}
}

// ApplyAll executes a list of flag writes in order.
func (s *Store) ApplyAll(writes []FlagWrite) {
	for _, w := range writes {
		s.Apply(w)
	}
}

// ToNumber coerces a flag value to float64. Numeric strings coerce too, so
// comparisons behave the same whether a flag was stored as 7 or "7".
func ToNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Truthy reports whether a flag value counts as set: true booleans,
// non-zero numbers, and non-empty strings.
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	default:
		if n, ok := ToNumber(v); ok {
			return n != 0
		}
		return v != nil
	}
}
