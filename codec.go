package forma

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec defines the wire format of values received from a Watcher.
type Codec interface {
	// Marshal serializes a value.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes bytes into a value.
	Unmarshal(data []byte, v any) error

	// ContentType returns the MIME type for observability and debugging.
	ContentType() string
}

// JSONCodec implements Codec using encoding/json.
type JSONCodec struct{}

// Marshal serializes v as JSON.
func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes JSON bytes into v.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// ContentType returns the JSON MIME type.
func (JSONCodec) ContentType() string {
	return "application/json"
}

var _ Codec = JSONCodec{}

// YAMLCodec implements Codec using gopkg.in/yaml.v3.
type YAMLCodec struct{}

// Marshal serializes v as YAML.
func (YAMLCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// Unmarshal deserializes YAML bytes into v.
func (YAMLCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

// ContentType returns the YAML MIME type.
func (YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

var _ Codec = YAMLCodec{}

// DecodeValues parses a payload into typed values for cfg. Keys absent from
// the payload take their value from base. A key outside cfg fails with
// ErrKeyMismatch; a value that cannot be converted to the field's type
// fails with ErrInvalidValue.
func DecodeValues(codec Codec, cfg Config, base Values, data []byte) (Values, error) {
	var raw map[string]any
	if err := codec.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", codec.ContentType(), err)
	}

	out := make(Values, len(cfg))
	for name, value := range raw {
		f, ok := cfg[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a field", ErrKeyMismatch, name)
		}
		typed, err := f.decode(codec, value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = typed
	}
	for name := range cfg {
		if _, ok := out[name]; !ok {
			out[name] = deepCopy(base[name])
		}
	}
	return out, nil
}
