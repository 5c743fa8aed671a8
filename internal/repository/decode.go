package repository

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every lookup that matched no row
var ErrNotFound = errors.New("not found")

func decodeList[T any](body []byte, what string) ([]T, error) {
	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", what, err)
	}
	return rows, nil
}

// decodeFirst returns the first row of a PostgREST array response
func decodeFirst[T any](body []byte, what, id string) (*T, error) {
	rows, err := decodeList[T](body, what)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return &rows[0], nil
}
