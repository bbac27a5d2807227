package domain

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ResetParams selects how a reset writes the baseline back into the store.
//
// With neither field set the whole entity is replaced by its baseline.
type ResetParams[E any] struct {
	// UpdateFn computes the value to write from the baseline and the current
	// value. It takes precedence over Paths.
	UpdateFn func(head, current E) E

	// Paths restores only these nested paths from the baseline and keeps the
	// rest of the current value. A path missing from the baseline is removed
	// from the result.
	Paths []string
}

// Resolve returns the value a reset should write.
func (p ResetParams[E]) Resolve(head, current E) (E, error) {
	if p.UpdateFn != nil {
		return p.UpdateFn(head, current), nil
	}
	if len(p.Paths) == 0 {
		return head, nil
	}
	return RestorePaths(head, current, p.Paths)
}

// RestorePaths copies the given paths from head onto current.
func RestorePaths[E any](head, current E, paths []string) (E, error) {
	var zero E

	headJSON, err := ToJSON(head)
	if err != nil {
		return zero, err
	}
	out, err := ToJSON(current)
	if err != nil {
		return zero, err
	}

	for _, path := range paths {
		res := gjson.GetBytes(headJSON, path)
		if res.Exists() {
			out, err = sjson.SetRawBytes(out, path, []byte(res.Raw))
		} else {
			out, err = sjson.DeleteBytes(out, path)
		}
		if err != nil {
			return zero, fmt.Errorf("failed to restore path %q: %w", path, err)
		}
	}

	return FromJSON[E](out)
}
