package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrStoreUnavailable is returned when the price store cannot be opened or a
// statement against it fails. It is the only error the query side surfaces.
var ErrStoreUnavailable = errors.New("price store unavailable")

// ValidationError describes a price record that fails field constraints.
// Index is the position of the record in its batch, -1 when unknown.
type ValidationError struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("record %d: invalid %s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Index: -1, Field: field, Reason: reason}
}

// RequireFields reports the first empty value, in field name order, as a
// *ValidationError
func RequireFields(values map[string]string) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.TrimSpace(values[name]) == "" {
			return newValidationError(name, "required")
		}
	}
	return nil
}
