package domain

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Comparator decides whether two values differ. It returns true when
// current has diverged from head.
//
// The same comparator is used for whole entities and for single nested
// values resolved by GetNestedPath, so it must accept anything json.Marshal
// accepts, including nil.
type Comparator func(head, current any) bool

// DefaultComparator compares the JSON encodings of both values. Values that
// cannot be encoded fall back to reflect.DeepEqual.
//
// Only what json.Marshal sees takes part: unexported struct fields and fields
// tagged `json:"-"` are ignored, so a struct made only of such fields is
// never dirty. Use DeepEqualComparator or a custom Comparator for those
// entities.
func DefaultComparator(head, current any) bool {
	h, herr := json.Marshal(head)
	c, cerr := json.Marshal(current)
	if herr != nil || cerr != nil {
		return !reflect.DeepEqual(head, current)
	}
	return !bytes.Equal(h, c)
}

// DeepEqualComparator compares with reflect.DeepEqual.
func DeepEqualComparator(head, current any) bool {
	return !reflect.DeepEqual(head, current)
}
