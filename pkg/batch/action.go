// Package batch implements the JSON-framed batch protocol: an ordered
// list of action objects decoded from a request body, dispatched
// sequentially against one transaction, and collected into an ordered
// list of per-item results (or a single indexed error).
package batch

import (
	"encoding/json"
)

// Action is the wire shape of one batch request item. Only the fields
// relevant to Name are populated; unused fields are nil/zero. This flat
// shape mirrors the request body directly rather than a tagged union, so
// Decode is a single json.Unmarshal into a slice of this struct.
type Action struct {
	Name string `json:"action"`

	ID         *string `json:"id,omitempty"`
	StartID    *string `json:"start_id,omitempty"`
	OutboundID *string `json:"outbound_id,omitempty"`
	InboundID  *string `json:"inbound_id,omitempty"`
	AccountID  *string `json:"account_id,omitempty"`

	Type *string `json:"type,omitempty"`

	Weight *float64 `json:"weight,omitempty"`
	Offset *uint64  `json:"offset,omitempty"`
	Limit  *uint16  `json:"limit,omitempty"`

	High *string `json:"high,omitempty"`
	Low  *string `json:"low,omitempty"`

	Key   *string         `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Decode parses a request body into an ordered list of actions. The
// entire request is decoded before dispatch begins; a malformed body
// fails the whole batch.
func Decode(data []byte) ([]Action, error) {
	var actions []Action
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}
