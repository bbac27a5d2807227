package domain

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// GetNestedPath resolves a dot-separated path ("profile.name") against the
// JSON rendering of v. Missing paths and values that cannot be encoded
// resolve to nil.
//
// Paths use gjson syntax, so array indexes ("tags.0") work as well.
func GetNestedPath(v any, path string) any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return nil
	}
	return res.Value()
}

// ToJSON encodes an entity, wrapping failures in ErrEncodeEntity.
func ToJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeEntity, err)
	}
	return data, nil
}

// FromJSON decodes an entity, wrapping failures in ErrDecodeEntity.
func FromJSON[E any](data []byte) (E, error) {
	var out E
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrDecodeEntity, err)
	}
	return out, nil
}
