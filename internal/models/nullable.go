package models

import (
	"encoding/json"
)

// Nullable is a PATCH field that distinguishes between:
// - Field absent in JSON: Set=false, Valid=false
// - Field present with null: Set=true, Valid=false
// - Field present with value: Set=true, Valid=true, Value=the value
//
// Pointer fields cannot express "clear this value" because Go's JSON
// unmarshaling treats both an absent field and an explicit null as nil.
type Nullable[T any] struct {
	Value T
	Valid bool
	Set   bool
}

// UnmarshalJSON records presence and decodes the value unless it is null.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true

	var zero T
	if string(data) == "null" {
		n.Valid = false
		n.Value = zero
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = v
	n.Valid = true
	return nil
}

// MarshalJSON writes null for an invalid value.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// ToPtr returns nil when the value is null, otherwise a pointer to a copy of Value.
func (n Nullable[T]) ToPtr() *T {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// Apply overwrites *dst when the field was present in the payload.
func (n Nullable[T]) Apply(dst **T) {
	if n.Set {
		*dst = n.ToPtr()
	}
}
