// Package storage implements the index engine behind the graph datastore:
// the primary vertex and edge maps plus the derived range indexes used by
// forward and reverse edge queries, and the transaction layer built on top
// of them.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/orneryd/graphdb/pkg/graph"
)

// Engine is the interface a concrete storage backend implements. The
// in-memory engine (MemoryEngine) is the only engine required by the core;
// additional engines (e.g. BadgerEngine) may be defined behind this same
// interface without the transaction layer changing.
//
// Every method except Close takes a context so a future engine backed by a
// remote store can honor cancellation; MemoryEngine ignores it, since it
// has no suspension points of its own.
type Engine interface {
	InsertVertex(ctx context.Context, t graph.Type) (graph.ID, error)
	SetVertex(ctx context.Context, id graph.ID, t graph.Type) error
	GetVertex(ctx context.Context, id graph.ID) (graph.Vertex, error)
	DeleteVertex(ctx context.Context, id graph.ID) error
	GetVertexRange(ctx context.Context, startID graph.ID, limit int) ([]graph.Vertex, error)

	SetEdge(ctx context.Context, e graph.Edge) error
	GetEdge(ctx context.Context, id graph.EdgeIdentity) (graph.Edge, error)
	DeleteEdge(ctx context.Context, id graph.EdgeIdentity) error

	GetEdgeRange(ctx context.Context, outboundID graph.ID, t *graph.Type, offset, limit int) ([]graph.Edge, error)
	GetEdgeTimeRange(ctx context.Context, outboundID graph.ID, t *graph.Type, high, low *time.Time, limit int) ([]graph.Edge, error)
	GetEdgeCount(ctx context.Context, outboundID graph.ID, t *graph.Type) (uint64, error)

	GetReversedEdgeRange(ctx context.Context, inboundID graph.ID, t *graph.Type, offset, limit int) ([]graph.Edge, error)
	GetReversedEdgeTimeRange(ctx context.Context, inboundID graph.ID, t *graph.Type, high, low *time.Time, limit int) ([]graph.Edge, error)
	GetReversedEdgeCount(ctx context.Context, inboundID graph.ID, t *graph.Type) (uint64, error)

	GetMetadata(ctx context.Context, scope graph.Scope, key string) (json.RawMessage, error)
	SetMetadata(ctx context.Context, scope graph.Scope, key string, value json.RawMessage) error
	DeleteMetadata(ctx context.Context, scope graph.Scope, key string) error

	Close() error
}
