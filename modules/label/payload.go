// Package label produces and consumes item markers (the QR payload) and
// renders the human-facing views of an item's provenance.
package label

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Siasom1/herbchain/params"
)

var ErrUnrecognized = errors.New("label: payload not recognized")

// ScanError explains why a scanned payload was refused.
type ScanError struct {
	Reason string
}

func (e *ScanError) Error() string { return "label: unrecognized payload: " + e.Reason }

func (e *ScanError) Is(target error) bool { return target == ErrUnrecognized }

// Payload is the marker encoded into a QR code. Its shape is fixed:
// {"type":"item-marker","id":"<item id>"}.
type Payload struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func Encode(id string) ([]byte, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("label: empty item id")
	}
	return json.Marshal(Payload{Type: params.ItemMarkerType, ID: id})
}

// Decode accepts exactly one {type, id} object with the item-marker
// discriminator and a non-empty id.
func Decode(data []byte) (Payload, error) {
	var raw struct {
		Type *string `json:"type"`
		ID   *string `json:"id"`
	}
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return Payload{}, &ScanError{Reason: fmt.Sprintf("malformed: %v", err)}
	}
	if _, err := dec.Token(); err != io.EOF {
		return Payload{}, &ScanError{Reason: "trailing data"}
	}

	switch {
	case raw.Type == nil:
		return Payload{}, &ScanError{Reason: "missing type"}
	case *raw.Type != params.ItemMarkerType:
		return Payload{}, &ScanError{Reason: fmt.Sprintf("unknown type %q", *raw.Type)}
	case raw.ID == nil || strings.TrimSpace(*raw.ID) == "":
		return Payload{}, &ScanError{Reason: "missing id"}
	}
	return Payload{Type: *raw.Type, ID: strings.TrimSpace(*raw.ID)}, nil
}
