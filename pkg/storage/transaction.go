package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/orneryd/graphdb/pkg/graph"
)

// Transaction exposes the index engine's operation set to callers. It
// holds a shared handle to the engine and mutates it directly: Commit
// always succeeds, since mutations are already applied when each method
// returns, and Rollback always fails with ErrUnsupported. This asymmetry
// is part of the contract, not a gap to close — an engine that buffers
// writes and supports two-phase commit can implement the same interface
// without callers changing.
type Transaction struct {
	engine    Engine
	accountID graph.ID
}

// NewTransaction binds a transaction to engine and an account identity.
// Metadata operations addressed to graph.ScopeAccount implicitly use
// accountID.
func NewTransaction(engine Engine, accountID graph.ID) *Transaction {
	return &Transaction{engine: engine, accountID: accountID}
}

func (tx *Transaction) CreateVertex(ctx context.Context, t graph.Type) (graph.ID, error) {
	return tx.engine.InsertVertex(ctx, t)
}

func (tx *Transaction) SetVertex(ctx context.Context, v graph.Vertex) error {
	return tx.engine.SetVertex(ctx, v.ID, v.Type)
}

func (tx *Transaction) GetVertex(ctx context.Context, id graph.ID) (graph.Vertex, error) {
	return tx.engine.GetVertex(ctx, id)
}

func (tx *Transaction) DeleteVertex(ctx context.Context, id graph.ID) error {
	return tx.engine.DeleteVertex(ctx, id)
}

func (tx *Transaction) GetVertexRange(ctx context.Context, startID graph.ID, limit int) ([]graph.Vertex, error) {
	return tx.engine.GetVertexRange(ctx, startID, limit)
}

func (tx *Transaction) SetEdge(ctx context.Context, e graph.Edge) error {
	return tx.engine.SetEdge(ctx, e)
}

func (tx *Transaction) GetEdge(ctx context.Context, id graph.EdgeIdentity) (graph.Edge, error) {
	return tx.engine.GetEdge(ctx, id)
}

func (tx *Transaction) DeleteEdge(ctx context.Context, id graph.EdgeIdentity) error {
	return tx.engine.DeleteEdge(ctx, id)
}

func (tx *Transaction) GetEdgeCount(ctx context.Context, outboundID graph.ID, t *graph.Type) (uint64, error) {
	return tx.engine.GetEdgeCount(ctx, outboundID, t)
}

func (tx *Transaction) GetEdgeRange(ctx context.Context, outboundID graph.ID, t *graph.Type, offset, limit int) ([]graph.Edge, error) {
	return tx.engine.GetEdgeRange(ctx, outboundID, t, offset, limit)
}

func (tx *Transaction) GetEdgeTimeRange(ctx context.Context, outboundID graph.ID, t *graph.Type, high, low *time.Time, limit int) ([]graph.Edge, error) {
	return tx.engine.GetEdgeTimeRange(ctx, outboundID, t, high, low, limit)
}

func (tx *Transaction) GetReversedEdgeCount(ctx context.Context, inboundID graph.ID, t *graph.Type) (uint64, error) {
	return tx.engine.GetReversedEdgeCount(ctx, inboundID, t)
}

func (tx *Transaction) GetReversedEdgeRange(ctx context.Context, inboundID graph.ID, t *graph.Type, offset, limit int) ([]graph.Edge, error) {
	return tx.engine.GetReversedEdgeRange(ctx, inboundID, t, offset, limit)
}

func (tx *Transaction) GetReversedEdgeTimeRange(ctx context.Context, inboundID graph.ID, t *graph.Type, high, low *time.Time, limit int) ([]graph.Edge, error) {
	return tx.engine.GetReversedEdgeTimeRange(ctx, inboundID, t, high, low, limit)
}

func (tx *Transaction) GetGlobalMetadata(ctx context.Context, key string) (json.RawMessage, error) {
	return tx.engine.GetMetadata(ctx, graph.GlobalScope(), key)
}

func (tx *Transaction) SetGlobalMetadata(ctx context.Context, key string, value json.RawMessage) error {
	return tx.engine.SetMetadata(ctx, graph.GlobalScope(), key, value)
}

func (tx *Transaction) DeleteGlobalMetadata(ctx context.Context, key string) error {
	return tx.engine.DeleteMetadata(ctx, graph.GlobalScope(), key)
}

func (tx *Transaction) GetAccountMetadata(ctx context.Context, key string) (json.RawMessage, error) {
	return tx.engine.GetMetadata(ctx, graph.AccountScope(tx.accountID), key)
}

func (tx *Transaction) SetAccountMetadata(ctx context.Context, key string, value json.RawMessage) error {
	return tx.engine.SetMetadata(ctx, graph.AccountScope(tx.accountID), key, value)
}

func (tx *Transaction) DeleteAccountMetadata(ctx context.Context, key string) error {
	return tx.engine.DeleteMetadata(ctx, graph.AccountScope(tx.accountID), key)
}

func (tx *Transaction) GetVertexMetadata(ctx context.Context, vertexID graph.ID, key string) (json.RawMessage, error) {
	return tx.engine.GetMetadata(ctx, graph.VertexScope(vertexID), key)
}

func (tx *Transaction) SetVertexMetadata(ctx context.Context, vertexID graph.ID, key string, value json.RawMessage) error {
	return tx.engine.SetMetadata(ctx, graph.VertexScope(vertexID), key, value)
}

func (tx *Transaction) DeleteVertexMetadata(ctx context.Context, vertexID graph.ID, key string) error {
	return tx.engine.DeleteMetadata(ctx, graph.VertexScope(vertexID), key)
}

func (tx *Transaction) GetEdgeMetadata(ctx context.Context, id graph.EdgeIdentity, key string) (json.RawMessage, error) {
	return tx.engine.GetMetadata(ctx, graph.EdgeScope(id.OutboundID, id.Type, id.InboundID), key)
}

func (tx *Transaction) SetEdgeMetadata(ctx context.Context, id graph.EdgeIdentity, key string, value json.RawMessage) error {
	return tx.engine.SetMetadata(ctx, graph.EdgeScope(id.OutboundID, id.Type, id.InboundID), key, value)
}

func (tx *Transaction) DeleteEdgeMetadata(ctx context.Context, id graph.EdgeIdentity, key string) error {
	return tx.engine.DeleteMetadata(ctx, graph.EdgeScope(id.OutboundID, id.Type, id.InboundID), key)
}

// Commit is a no-op: the in-memory engine applies every mutation eagerly,
// so there is nothing left to flush.
func (tx *Transaction) Commit(_ context.Context) error {
	return nil
}

// Rollback always fails: undoing already-applied mutations is not
// supported by the in-memory engine.
func (tx *Transaction) Rollback(_ context.Context) error {
	return graph.ErrUnsupported
}
