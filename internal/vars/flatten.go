package vars

// FlattenOptions controls how a nested game-state object is reduced to a
// flat flag map.
type FlattenOptions struct {
	// IncludeFalsyNumbers keeps numeric zeroes instead of dropping them.
	IncludeFalsyNumbers bool
}

// FlattenState extracts flag names from a nested game-state object into a
// flat map, joining path segments with underscores. Falsy numbers (0) and
// empty strings are dropped by default so unset numeric defaults do not
// pollute the flag set; IncludeFalsyNumbers keeps the zeroes, empty strings
// are always dropped.
func FlattenState(state map[string]interface{}, opts FlattenOptions) map[string]interface{} {
	out := make(map[string]interface{})
	flattenInto(out, "", state, opts)
	return out
}

func flattenInto(out map[string]interface{}, prefix string, m map[string]interface{}, opts FlattenOptions) {
	for key, value := range m {
		name := key
		if prefix != "" {
			name = prefix + "_" + key
		}
		switch v := value.(type) {
		case map[string]interface{}:
			flattenInto(out, name, v, opts)
		case bool:
			out[name] = v
		case string:
			if v == "" {
				continue
			}
			out[name] = v
		default:
			n, ok := ToNumber(value)
			if !ok {
				continue // arrays and nulls are not flag material
			}
			if n == 0 && !opts.IncludeFalsyNumbers {
				continue
			}
			out[name] = value
		}
	}
}
