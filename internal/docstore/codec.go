package docstore

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Decode converts raw document data into out, a pointer to a struct with
// mapstructure tags. Numbers may arrive as any Go numeric type depending on
// the backend.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Encode converts a struct with mapstructure tags into document data.
func Encode(in any) (map[string]any, error) {
	out := make(map[string]any)
	if err := mapstructure.Decode(in, &out); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return out, nil
}

// Int64 reads a numeric value stored by any backend.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
