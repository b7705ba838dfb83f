package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orneryd/graphdb/pkg/graph"
	"github.com/orneryd/graphdb/pkg/storage"
)

// Dispatch runs actions sequentially against tx. It halts at the first
// action that fails: results holds the successful results produced so
// far, errIndex is the index of the failing action (or -1 if none
// failed), and err is that action's error, unwrapped (callers format the
// "Item #<index>: <message>" wrapper, since that format belongs to the
// server transport, not this package). Side effects of actions preceding
// the failure remain applied, since the in-memory engine applies every
// mutation eagerly.
func Dispatch(ctx context.Context, tx *storage.Transaction, actions []Action) (results []json.RawMessage, errIndex int, err error) {
	results = make([]json.RawMessage, 0, len(actions))
	for i, a := range actions {
		v, dispatchErr := dispatchOne(ctx, tx, a)
		if dispatchErr != nil {
			return results, i, dispatchErr
		}
		encoded, encErr := json.Marshal(v)
		if encErr != nil {
			return results, i, graph.ErrSerialization
		}
		results = append(results, encoded)
	}
	return results, -1, nil
}

func dispatchOne(ctx context.Context, tx *storage.Transaction, a Action) (any, error) {
	switch a.Name {
	case "get_vertex":
		id, err := requireID(a.ID)
		if err != nil {
			return nil, err
		}
		return tx.GetVertex(ctx, id)

	case "get_vertex_range":
		start, err := requireID(a.StartID)
		if err != nil {
			return nil, err
		}
		limit, err := requireLimit(a.Limit)
		if err != nil {
			return nil, err
		}
		vertices, err := tx.GetVertexRange(ctx, start, limit)
		if err != nil {
			return nil, err
		}
		return vertices, nil

	case "create_vertex":
		t, err := requireType(a.Type)
		if err != nil {
			return nil, err
		}
		id, err := tx.CreateVertex(ctx, t)
		if err != nil {
			return nil, err
		}
		return id, nil

	case "set_vertex":
		id, err := requireID(a.ID)
		if err != nil {
			return nil, err
		}
		t, err := requireType(a.Type)
		if err != nil {
			return nil, err
		}
		return nil, tx.SetVertex(ctx, graph.Vertex{ID: id, Type: t})

	case "delete_vertex":
		id, err := requireID(a.ID)
		if err != nil {
			return nil, err
		}
		return nil, tx.DeleteVertex(ctx, id)

	case "get_edge":
		identity, err := requireEdgeIdentity(a)
		if err != nil {
			return nil, err
		}
		return tx.GetEdge(ctx, identity)

	case "set_edge":
		identity, err := requireEdgeIdentity(a)
		if err != nil {
			return nil, err
		}
		if a.Weight == nil {
			return nil, graph.ErrInvalidValue
		}
		return nil, tx.SetEdge(ctx, graph.Edge{OutboundID: identity.OutboundID, Type: identity.Type, InboundID: identity.InboundID, Weight: graph.Weight(*a.Weight)})

	case "delete_edge":
		identity, err := requireEdgeIdentity(a)
		if err != nil {
			return nil, err
		}
		return nil, tx.DeleteEdge(ctx, identity)

	case "get_edge_count":
		id, t, err := requireAnchorAndOptionalType(a.OutboundID, a.Type)
		if err != nil {
			return nil, err
		}
		return tx.GetEdgeCount(ctx, id, t)

	case "get_reversed_edge_count":
		id, t, err := requireAnchorAndOptionalType(a.InboundID, a.Type)
		if err != nil {
			return nil, err
		}
		return tx.GetReversedEdgeCount(ctx, id, t)

	case "get_edge_range":
		id, t, err := requireAnchorAndOptionalType(a.OutboundID, a.Type)
		if err != nil {
			return nil, err
		}
		offset, limit, err := requireOffsetAndLimit(a)
		if err != nil {
			return nil, err
		}
		edges, err := tx.GetEdgeRange(ctx, id, t, offset, limit)
		if err != nil {
			return nil, err
		}
		return edges, nil

	case "get_reversed_edge_range":
		id, t, err := requireAnchorAndOptionalType(a.InboundID, a.Type)
		if err != nil {
			return nil, err
		}
		offset, limit, err := requireOffsetAndLimit(a)
		if err != nil {
			return nil, err
		}
		edges, err := tx.GetReversedEdgeRange(ctx, id, t, offset, limit)
		if err != nil {
			return nil, err
		}
		return edges, nil

	case "get_edge_time_range":
		id, t, err := requireAnchorAndOptionalType(a.OutboundID, a.Type)
		if err != nil {
			return nil, err
		}
		high, low, limit, err := requireTimeRange(a)
		if err != nil {
			return nil, err
		}
		edges, err := tx.GetEdgeTimeRange(ctx, id, t, high, low, limit)
		if err != nil {
			return nil, err
		}
		return edges, nil

	case "get_reversed_edge_time_range":
		id, t, err := requireAnchorAndOptionalType(a.InboundID, a.Type)
		if err != nil {
			return nil, err
		}
		high, low, limit, err := requireTimeRange(a)
		if err != nil {
			return nil, err
		}
		edges, err := tx.GetReversedEdgeTimeRange(ctx, id, t, high, low, limit)
		if err != nil {
			return nil, err
		}
		return edges, nil

	case "get_global_metadata":
		key, err := requireKey(a.Key)
		if err != nil {
			return nil, err
		}
		return tx.GetGlobalMetadata(ctx, key)
	case "set_global_metadata":
		key, err := requireKey(a.Key)
		if err != nil {
			return nil, err
		}
		return nil, tx.SetGlobalMetadata(ctx, key, a.Value)
	case "delete_global_metadata":
		key, err := requireKey(a.Key)
		if err != nil {
			return nil, err
		}
		return nil, tx.DeleteGlobalMetadata(ctx, key)

	case "get_account_metadata":
		key, err := requireKey(a.Key)
		if err != nil {
			return nil, err
		}
		return tx.GetAccountMetadata(ctx, key)
	case "set_account_metadata":
		key, err := requireKey(a.Key)
		if err != nil {
			return nil, err
		}
		return nil, tx.SetAccountMetadata(ctx, key, a.Value)
	case "delete_account_metadata":
		key, err := requireKey(a.Key)
		if err != nil {
			return nil, err
		}
		return nil, tx.DeleteAccountMetadata(ctx, key)

	case "get_vertex_metadata":
		id, key, err := requireIDAndKey(a.ID, a.Key)
		if err != nil {
			return nil, err
		}
		return tx.GetVertexMetadata(ctx, id, key)
	case "set_vertex_metadata":
		id, key, err := requireIDAndKey(a.ID, a.Key)
		if err != nil {
			return nil, err
		}
		return nil, tx.SetVertexMetadata(ctx, id, key, a.Value)
	case "delete_vertex_metadata":
		id, key, err := requireIDAndKey(a.ID, a.Key)
		if err != nil {
			return nil, err
		}
		return nil, tx.DeleteVertexMetadata(ctx, id, key)

	case "get_edge_metadata":
		identity, err := requireEdgeIdentity(a)
		if err != nil {
			return nil, err
		}
		key, err := requireKey(a.Key)
		if err != nil {
			return nil, err
		}
		return tx.GetEdgeMetadata(ctx, identity, key)
	case "set_edge_metadata":
		identity, err := requireEdgeIdentity(a)
		if err != nil {
			return nil, err
		}
		key, err := requireKey(a.Key)
		if err != nil {
			return nil, err
		}
		return nil, tx.SetEdgeMetadata(ctx, identity, key, a.Value)
	case "delete_edge_metadata":
		identity, err := requireEdgeIdentity(a)
		if err != nil {
			return nil, err
		}
		key, err := requireKey(a.Key)
		if err != nil {
			return nil, err
		}
		return nil, tx.DeleteEdgeMetadata(ctx, identity, key)

	default:
		return nil, fmt.Errorf("%w: unknown action %q", graph.ErrInvalidValue, a.Name)
	}
}

func requireID(s *string) (graph.ID, error) {
	if s == nil {
		return graph.ID{}, graph.ErrInvalidValue
	}
	return graph.ParseID(*s)
}

func requireType(s *string) (graph.Type, error) {
	if s == nil {
		return "", graph.ErrInvalidValue
	}
	return graph.NewType(*s)
}

func requireKey(s *string) (string, error) {
	if s == nil {
		return "", graph.ErrInvalidValue
	}
	if err := graph.ValidateKey(*s); err != nil {
		return "", err
	}
	return *s, nil
}

func requireIDAndKey(id, key *string) (graph.ID, string, error) {
	parsedID, err := requireID(id)
	if err != nil {
		return graph.ID{}, "", err
	}
	parsedKey, err := requireKey(key)
	if err != nil {
		return graph.ID{}, "", err
	}
	return parsedID, parsedKey, nil
}

func requireEdgeIdentity(a Action) (graph.EdgeIdentity, error) {
	outbound, err := requireID(a.OutboundID)
	if err != nil {
		return graph.EdgeIdentity{}, err
	}
	t, err := requireType(a.Type)
	if err != nil {
		return graph.EdgeIdentity{}, err
	}
	inbound, err := requireID(a.InboundID)
	if err != nil {
		return graph.EdgeIdentity{}, err
	}
	return graph.EdgeIdentity{OutboundID: outbound, Type: t, InboundID: inbound}, nil
}

// requireAnchorAndOptionalType parses an anchor id field and an optional
// type filter; a null or absent type means "any type".
func requireAnchorAndOptionalType(anchor, t *string) (graph.ID, *graph.Type, error) {
	id, err := requireID(anchor)
	if err != nil {
		return graph.ID{}, nil, err
	}
	if t == nil {
		return id, nil, nil
	}
	parsed, err := requireType(t)
	if err != nil {
		return graph.ID{}, nil, err
	}
	return id, &parsed, nil
}

func requireLimit(limit *uint16) (int, error) {
	if limit == nil {
		return 0, graph.ErrInvalidValue
	}
	return int(*limit), nil
}

func requireOffsetAndLimit(a Action) (int, int, error) {
	if a.Limit == nil {
		return 0, 0, graph.ErrInvalidValue
	}
	offset := 0
	if a.Offset != nil {
		offset = int(*a.Offset)
	}
	return offset, int(*a.Limit), nil
}

func requireTimeRange(a Action) (high, low *time.Time, limit int, err error) {
	if a.Limit == nil {
		return nil, nil, 0, graph.ErrInvalidValue
	}
	high, err = parseOptionalTime(a.High)
	if err != nil {
		return nil, nil, 0, err
	}
	low, err = parseOptionalTime(a.Low)
	if err != nil {
		return nil, nil, 0, err
	}
	return high, low, int(*a.Limit), nil
}

func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, graph.ErrSerialization
	}
	return &t, nil
}
