package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/droproute/internal/ir"
)

// marshalActive converts an active set to canonical JSON TEXT for storage.
// A nil set is stored as [].
func marshalActive(active []ir.ElectrodeID) (string, error) {
	if active == nil {
		active = []ir.ElectrodeID{}
	}
	data, err := ir.MarshalCanonical(active)
	if err != nil {
		return "", fmt.Errorf("marshal active: %w", err)
	}
	return string(data), nil
}

// unmarshalActive parses an active set. It never returns nil.
func unmarshalActive(data string) ([]ir.ElectrodeID, error) {
	active := []ir.ElectrodeID{}
	if data == "" || data == "[]" {
		return active, nil
	}
	if err := json.Unmarshal([]byte(data), &active); err != nil {
		return nil, fmt.Errorf("unmarshal active: %w", err)
	}
	return active, nil
}
