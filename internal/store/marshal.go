package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/msglog/internal/ir"
)

// marshalObject converts an IRObject to canonical JSON TEXT for storage.
// Canonical form keeps stored rows byte-stable across replays.
func marshalObject(what string, obj ir.IRObject) (string, error) {
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return string(data), nil
}

// unmarshalObject parses canonical JSON TEXT to IRObject.
// ir.IRObject.UnmarshalJSON decodes numbers via json.Number, so integers
// above 2^53 survive the round trip.
func unmarshalObject(what, data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return obj, nil
}
