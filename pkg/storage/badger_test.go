package storage

import (
	"context"
	"testing"
	"time"

	"github.com/orneryd/graphdb/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadgerEngine(t *testing.T) *BadgerEngine {
	t.Helper()
	e, err := NewBadgerEngineInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestBadgerVertexLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newTestBadgerEngine(t)

	id, err := e.InsertVertex(ctx, "person")
	require.NoError(t, err)

	v, err := e.GetVertex(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, graph.Type("person"), v.Type)

	require.NoError(t, e.DeleteVertex(ctx, id))
	_, err = e.GetVertex(ctx, id)
	assert.ErrorIs(t, err, graph.ErrVertexNotFound)
}

func TestBadgerEdgeRangeNewestFirst(t *testing.T) {
	ctx := context.Background()
	e := newTestBadgerEngine(t)

	v1, _ := e.InsertVertex(ctx, "person")
	v2, _ := e.InsertVertex(ctx, "person")
	v3, _ := e.InsertVertex(ctx, "person")

	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "t", InboundID: v2, Weight: 0}))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "t", InboundID: v3, Weight: 0}))

	typ := graph.Type("t")
	edges, err := e.GetEdgeRange(ctx, v1, &typ, 0, 10)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, v3, edges[0].InboundID)
	assert.Equal(t, v2, edges[1].InboundID)

	count, err := e.GetEdgeCount(ctx, v1, &typ)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestBadgerReverseSymmetry(t *testing.T) {
	ctx := context.Background()
	e := newTestBadgerEngine(t)

	v1, _ := e.InsertVertex(ctx, "person")
	v2, _ := e.InsertVertex(ctx, "person")
	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "knows", InboundID: v2, Weight: 0.25}))

	typ := graph.Type("knows")
	rev, err := e.GetReversedEdgeRange(ctx, v2, &typ, 0, 10)
	require.NoError(t, err)
	require.Len(t, rev, 1)
	assert.Equal(t, v1, rev[0].OutboundID)
	assert.Equal(t, graph.Weight(0.25), rev[0].Weight)
}

func TestBadgerDeleteVertexCascades(t *testing.T) {
	ctx := context.Background()
	e := newTestBadgerEngine(t)

	v1, _ := e.InsertVertex(ctx, "person")
	v2, _ := e.InsertVertex(ctx, "person")
	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "knows", InboundID: v2, Weight: 0}))
	require.NoError(t, e.SetMetadata(ctx, graph.EdgeScope(v1, "knows", v2), "note", []byte(`1`)))

	require.NoError(t, e.DeleteVertex(ctx, v2))

	_, err := e.GetEdge(ctx, graph.EdgeIdentity{OutboundID: v1, Type: "knows", InboundID: v2})
	assert.ErrorIs(t, err, graph.ErrVertexNotFound)

	knows := graph.Type("knows")
	count, err := e.GetEdgeCount(ctx, v1, &knows)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	_, err = e.GetMetadata(ctx, graph.EdgeScope(v1, "knows", v2), "note")
	assert.ErrorIs(t, err, graph.ErrMetadataNotFound)
}

func TestBadgerMetadataLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newTestBadgerEngine(t)

	scope := graph.GlobalScope()
	_, err := e.GetMetadata(ctx, scope, "k")
	assert.ErrorIs(t, err, graph.ErrMetadataNotFound)

	require.NoError(t, e.SetMetadata(ctx, scope, "k", []byte(`"v"`)))
	v, err := e.GetMetadata(ctx, scope, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `"v"`, string(v))

	require.NoError(t, e.DeleteMetadata(ctx, scope, "k"))
	_, err = e.GetMetadata(ctx, scope, "k")
	assert.ErrorIs(t, err, graph.ErrMetadataNotFound)
}

func TestBadgerEdgeTimeRangeNarrowing(t *testing.T) {
	ctx := context.Background()
	e := newTestBadgerEngine(t)

	v1, _ := e.InsertVertex(ctx, "person")
	v2, _ := e.InsertVertex(ctx, "person")
	v3, _ := e.InsertVertex(ctx, "person")

	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "t", InboundID: v2, Weight: 0}))
	mid := time.Now().UTC()
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "t", InboundID: v3, Weight: 0}))

	typ := graph.Type("t")
	now := time.Now().UTC()

	onlyLater, err := e.GetEdgeTimeRange(ctx, v1, &typ, &now, &mid, 10)
	require.NoError(t, err)
	require.Len(t, onlyLater, 1)
	assert.Equal(t, v3, onlyLater[0].InboundID)
}
