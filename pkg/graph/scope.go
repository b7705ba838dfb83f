package graph

// ScopeKind identifies which of the four metadata partitions a Scope
// refers to.
type ScopeKind uint8

const (
	ScopeGlobal ScopeKind = iota
	ScopeAccount
	ScopeVertex
	ScopeEdge
)

// Scope locates a metadata entry: global, account(id), vertex(id), or
// edge(outbound_id, type, inbound_id). Only the fields relevant to Kind
// are populated.
type Scope struct {
	Kind      ScopeKind
	AccountID ID
	VertexID  ID
	Edge      EdgeIdentity
}

// GlobalScope returns the single global metadata scope.
func GlobalScope() Scope {
	return Scope{Kind: ScopeGlobal}
}

// AccountScope returns the metadata scope for the given account id.
func AccountScope(accountID ID) Scope {
	return Scope{Kind: ScopeAccount, AccountID: accountID}
}

// VertexScope returns the metadata scope for the given vertex id.
func VertexScope(vertexID ID) Scope {
	return Scope{Kind: ScopeVertex, VertexID: vertexID}
}

// EdgeScope returns the metadata scope for the given edge identity.
func EdgeScope(outboundID ID, t Type, inboundID ID) Scope {
	return Scope{Kind: ScopeEdge, Edge: EdgeIdentity{OutboundID: outboundID, Type: t, InboundID: inboundID}}
}

// Prefix renders a Scope into the comparable string the M index groups
// metadata keys under: every key written under the same scope shares this
// prefix, so the index can enumerate (and cascade-delete) a scope's
// entries without scanning the whole metadata map.
func (s Scope) Prefix() string {
	switch s.Kind {
	case ScopeGlobal:
		return "g"
	case ScopeAccount:
		return "a:" + s.AccountID.String()
	case ScopeVertex:
		return "v:" + s.VertexID.String()
	case ScopeEdge:
		return "e:" + s.Edge.OutboundID.String() + ":" + string(s.Edge.Type) + ":" + s.Edge.InboundID.String()
	default:
		return ""
	}
}

// ReferencesVertex reports whether deleting vertexID should cascade to
// this scope's metadata: true for the vertex's own scope and for any edge
// scope touching it.
func (s Scope) ReferencesVertex(vertexID ID) bool {
	switch s.Kind {
	case ScopeVertex:
		return s.VertexID == vertexID
	case ScopeEdge:
		return s.Edge.OutboundID == vertexID || s.Edge.InboundID == vertexID
	default:
		return false
	}
}
