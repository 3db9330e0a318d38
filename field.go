package forma

import (
	"fmt"
	"reflect"
)

// Field is the configuration of a single form field: its initial value and
// the resolvers that validate it. Build one with NewField.
type Field interface {
	// Initial returns the field's initial value.
	Initial() any

	// HasValidator reports whether any resolver is configured.
	HasValidator() bool

	// Type returns the field's declared value type.
	Type() reflect.Type

	check(form Values, value any) ([]string, error)
	accept(value any) (any, error)
	decode(codec Codec, raw any) (any, error)
}

// Config maps field names to their configuration. The key set becomes the
// form's fixed key set.
type Config map[string]Field

type field[V any] struct {
	initial   V
	resolvers []Resolver[V]
}

// NewField configures a field holding values of type V. Every resolver is
// run on validation and their messages are concatenated in order.
func NewField[V any](initial V, resolvers ...Resolver[V]) Field {
	return &field[V]{
		initial:   initial,
		resolvers: append([]Resolver[V](nil), resolvers...),
	}
}

func (f *field[V]) Initial() any {
	return f.initial
}

func (f *field[V]) HasValidator() bool {
	for _, r := range f.resolvers {
		if r != nil {
			return true
		}
	}
	return false
}

func (f *field[V]) Type() reflect.Type {
	return reflect.TypeFor[V]()
}

func (f *field[V]) check(form Values, value any) ([]string, error) {
	typed, err := f.typed(value)
	if err != nil {
		return nil, err
	}
	return run(f.resolvers, form, typed), nil
}

func (f *field[V]) accept(value any) (any, error) {
	typed, err := f.typed(value)
	if err != nil {
		return nil, err
	}
	return typed, nil
}

// typed converts value to V. An untyped nil is accepted for nillable types
// and becomes the zero value.
func (f *field[V]) typed(value any) (V, error) {
	if typed, ok := value.(V); ok {
		return typed, nil
	}
	var zero V
	if value == nil && nillable(f.Type()) {
		return zero, nil
	}
	return zero, fmt.Errorf("%w: want %s, got %T", ErrInvalidValue, f.Type(), value)
}

// decode converts a generically decoded value (as produced by unmarshaling
// into map[string]any) to V by round-tripping it through codec.
func (f *field[V]) decode(codec Codec, raw any) (any, error) {
	if typed, ok := raw.(V); ok {
		return typed, nil
	}
	data, err := codec.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var out V
	if err := codec.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return out, nil
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

// initialValues projects the initial value out of every field.
func initialValues(cfg Config) Values {
	out := make(Values, len(cfg))
	for name, f := range cfg {
		out[name] = deepCopy(f.Initial())
	}
	return out
}
