package forma

import "sort"

// Values holds the current value of every field, keyed by field name.
type Values map[string]any

// Errors holds the active validation messages keyed by field name. Only
// fields with at least one message are present.
type Errors map[string][]string

// Get returns the value of name converted to V. The second result is false
// when the field is absent or holds a value of another type.
func Get[V any](values Values, name string) (V, bool) {
	raw, ok := values[name]
	if !ok {
		var zero V
		return zero, false
	}
	typed, ok := raw.(V)
	return typed, ok
}

// Keys returns the field names in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the total number of messages across all fields.
func (e Errors) Count() int {
	n := 0
	for _, msgs := range e {
		n += len(msgs)
	}
	return n
}

func cloneValues(src Values) Values {
	out := make(Values, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func cloneErrors(src Errors) Errors {
	out := make(Errors, len(src))
	for k, v := range src {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// deepCopy clones the container shapes produced by decoders. Other values
// are shared, which is safe for the immutable types forms usually hold.
func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
