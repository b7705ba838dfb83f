package graph

import "time"

// EdgeIdentity is the triple (outbound_id, type, inbound_id) that
// uniquely identifies an edge. Weight and UpdatedAt do not participate in
// equality, hashing, or ordering of edges.
type EdgeIdentity struct {
	OutboundID ID
	Type       Type
	InboundID  ID
}

// Edge is the tuple (outbound_id, type, inbound_id, weight, updated_at).
// Value objects are immutable after construction except that Weight and
// UpdatedAt are updated in place by index-engine writes.
type Edge struct {
	OutboundID ID        `json:"outbound_id"`
	Type       Type      `json:"type"`
	InboundID  ID        `json:"inbound_id"`
	Weight     Weight    `json:"weight"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Identity returns the edge's identity triple, used for equality and as
// the primary-map key.
func (e Edge) Identity() EdgeIdentity {
	return EdgeIdentity{OutboundID: e.OutboundID, Type: e.Type, InboundID: e.InboundID}
}
