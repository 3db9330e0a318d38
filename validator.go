package forma

// Validator judges a single candidate value. An empty result means the value
// passed; otherwise the messages are reported in the order returned.
type Validator[V any] interface {
	Check(value V) []string
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc[V any] func(value V) []string

// Check calls f(value).
func (f ValidatorFunc[V]) Check(value V) []string {
	return f(value)
}

// Resolver yields the Validator for a field given the form's current
// values. It is resolved every time the field is checked.
type Resolver[V any] interface {
	Resolve(form Values) Validator[V]
}

// ResolverFunc adapts a function to the Resolver interface. It is the form
// used for cross-field rules that read sibling values.
type ResolverFunc[V any] func(form Values) Validator[V]

// Resolve calls f(form).
func (f ResolverFunc[V]) Resolve(form Values) Validator[V] {
	return f(form)
}

// direct is a Resolver that ignores the form and always yields the same
// Validator.
type direct[V any] struct {
	validator Validator[V]
}

func (d direct[V]) Resolve(Values) Validator[V] {
	return d.validator
}

// Use wraps a Validator that does not depend on other fields.
func Use[V any](v Validator[V]) Resolver[V] {
	return direct[V]{validator: v}
}

// Derive wraps a function that builds a Validator from the form's current
// values.
func Derive[V any](fn func(form Values) Validator[V]) Resolver[V] {
	return ResolverFunc[V](fn)
}

// run resolves every resolver against form and checks value with each
// resulting validator, concatenating their messages in order. Nil
// resolvers and nil validators are skipped. The returned slice is owned by
// the caller.
func run[V any](resolvers []Resolver[V], form Values, value V) []string {
	var messages []string
	for _, r := range resolvers {
		if r == nil {
			continue
		}
		v := r.Resolve(form)
		if v == nil {
			continue
		}
		messages = append(messages, v.Check(value)...)
	}
	if len(messages) == 0 {
		return nil
	}
	return messages
}
