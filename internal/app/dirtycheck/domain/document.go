package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Document is a schemaless JSON entity, the value type of the collections
// the service tracks.
type Document json.RawMessage

// ParseDocument validates data and returns it as a compact Document.
func ParseDocument(data []byte) (Document, error) {
	if !json.Valid(data) {
		return nil, ErrDecodeEntity
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, errors.Join(ErrDecodeEntity, err)
	}
	return Document(buf.Bytes()), nil
}

// Clone returns a copy that shares no memory with d.
func (d Document) Clone() Document {
	return Document(bytes.Clone(d))
}

// MarshalJSON implements json.Marshaler. An empty Document encodes as null.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	*d = append((*d)[:0], data...)
	return nil
}

// String returns the raw JSON text.
func (d Document) String() string {
	return string(d)
}
