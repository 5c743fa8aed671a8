// Package audit computes the field-level change sets stored in the audit trail.
//
// For actions whose name starts with "update_" only the fields that actually
// changed are kept. Every other action passes its payloads through unchanged.
// A nil *ChangeSet means the update was a no-op and no audit record should be
// written. The functions in this package are pure and safe for concurrent use.
package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Record is a loosely typed audit payload keyed by field name.
type Record = map[string]any

// UpdatePrefix marks actions whose payloads are diffed.
const UpdatePrefix = "update_"

// excludedFields are bookkeeping fields that never count as a change.
var excludedFields = map[string]struct{}{
	"stageHistory": {},
}

// ErrNotObject is returned by ToRecord for payloads that do not encode to a JSON object.
var ErrNotObject = errors.New("audit: payload is not an object")

// ChangeSet is the from/to pair persisted with an audit record.
type ChangeSet struct {
	From Record `json:"from,omitempty"`
	To   Record `json:"to,omitempty"`
}

// IsUpdateAction reports whether the payloads of action are diffed.
func IsUpdateAction(action string) bool {
	return strings.HasPrefix(action, UpdatePrefix)
}

// IsExcluded reports whether key is ignored by the diff.
func IsExcluded(key string) bool {
	_, ok := excludedFields[key]
	return ok
}

// ComputeChangeSet returns the payloads to store for action.
//
// Non-update actions, and update actions with an absent side, return
// {from, to} unchanged. Otherwise the result holds only the keys whose values
// differ, with a missing key reported as nil. It returns nil when no key
// differs.
func ComputeChangeSet(from, to Record, action string) *ChangeSet {
	if !IsUpdateAction(action) || from == nil || to == nil {
		return &ChangeSet{From: from, To: to}
	}

	fromChanges := Record{}
	toChanges := Record{}
	for _, key := range unionKeys(from, to) {
		if IsExcluded(key) {
			continue
		}
		before, after := from[key], to[key]
		if Equal(before, after) {
			continue
		}
		fromChanges[key] = before
		toChanges[key] = after
	}

	if len(fromChanges) == 0 {
		return nil
	}
	return &ChangeSet{From: fromChanges, To: toChanges}
}

// Compute is ComputeChangeSet for loosely typed payloads. Each side is
// converted with ToRecord. A side that cannot be represented as an object
// makes an update action return nil. For other actions that side is dropped.
func Compute(from, to any, action string) *ChangeSet {
	fromRecord, fromErr := ToRecord(from)
	toRecord, toErr := ToRecord(to)
	if IsUpdateAction(action) && (fromErr != nil || toErr != nil) {
		return nil
	}
	return ComputeChangeSet(fromRecord, toRecord, action)
}

// ToRecord converts a payload to a Record. nil yields a nil Record.
// Snapshots are enumerated directly; anything else must JSON-encode to an object.
func ToRecord(v any) (Record, error) {
	switch typed := v.(type) {
	case nil:
		return nil, nil
	case Record:
		return typed, nil
	case Snapshot:
		return typed.Fields(), nil
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("audit: encode payload: %w", err)
	}

	var record Record
	if err := json.Unmarshal(encoded, &record); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotObject, firstToken(encoded))
	}
	return record, nil
}

// Equal reports whether a and b are structurally equal: object key order is
// ignored, array order is significant, and values of different JSON kinds
// (the string "5" and the number 5) are never equal.
func Equal(a, b any) bool {
	if a == nil && b == nil {
		return true
	}

	ca, errA := canonical(a)
	cb, errB := canonical(b)
	if errA != nil || errB != nil {
		// Unencodable values compare by their printed form.
		return fmt.Sprintf("%#v", a) == fmt.Sprintf("%#v", b)
	}
	return bytes.Equal(ca, cb)
}

// canonical encodes v as JSON. encoding/json writes map keys in sorted order,
// so two maps with the same entries always encode identically.
func canonical(v any) ([]byte, error) {
	return json.Marshal(v)
}

func unionKeys(a, b Record) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

func firstToken(encoded []byte) string {
	const limit = 16
	if len(encoded) > limit {
		return string(encoded[:limit]) + "..."
	}
	return string(encoded)
}
