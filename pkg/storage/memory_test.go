package storage

import (
	"context"
	"testing"
	"time"

	"github.com/orneryd/graphdb/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertexLifecycle(t *testing.T) {
	ctx := context.Background()
	e := NewMemoryEngine()
	defer e.Close()

	id, err := e.InsertVertex(ctx, "person")
	require.NoError(t, err)

	v, err := e.GetVertex(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, graph.Type("person"), v.Type)

	require.NoError(t, e.DeleteVertex(ctx, id))
	_, err = e.GetVertex(ctx, id)
	assert.ErrorIs(t, err, graph.ErrVertexNotFound)
}

func TestSetEdgeAndCount(t *testing.T) {
	ctx := context.Background()
	e := NewMemoryEngine()
	defer e.Close()

	v1, _ := e.InsertVertex(ctx, "person")
	v2, _ := e.InsertVertex(ctx, "person")

	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "knows", InboundID: v2, Weight: 0.5}))

	knows := graph.Type("knows")
	got, err := e.GetEdge(ctx, graph.EdgeIdentity{OutboundID: v1, Type: "knows", InboundID: v2})
	require.NoError(t, err)
	assert.Equal(t, graph.Weight(0.5), got.Weight)

	count, err := e.GetEdgeCount(ctx, v1, &knows)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestEdgeRangeNewestFirst(t *testing.T) {
	ctx := context.Background()
	e := NewMemoryEngine()
	defer e.Close()

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
}

func TestTimeRangeNarrowing(t *testing.T) {
	ctx := context.Background()
	e := NewMemoryEngine()
	defer e.Close()

	v1, _ := e.InsertVertex(ctx, "person")
	v2, _ := e.InsertVertex(ctx, "person")
	v3, _ := e.InsertVertex(ctx, "person")

	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "t", InboundID: v2, Weight: 0}))
	mid := time.Now().UTC()
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "t", InboundID: v3, Weight: 0}))

	typ := graph.Type("t")
	now := time.Now().UTC()
	tenMsAgo := now.Add(-10 * time.Millisecond)

	both, err := e.GetEdgeTimeRange(ctx, v1, &typ, &now, &tenMsAgo, 10)
	require.NoError(t, err)
	assert.Len(t, both, 2)

	onlyLater, err := e.GetEdgeTimeRange(ctx, v1, &typ, &now, &mid, 10)
	require.NoError(t, err)
	require.Len(t, onlyLater, 1)
	assert.Equal(t, v3, onlyLater[0].InboundID)
}

func TestDeleteVertexCascades(t *testing.T) {
	ctx := context.Background()
	e := NewMemoryEngine()
	defer e.Close()

	v1, _ := e.InsertVertex(ctx, "person")
	v2, _ := e.InsertVertex(ctx, "person")
	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "knows", InboundID: v2, Weight: 0}))

	require.NoError(t, e.DeleteVertex(ctx, v2))

	_, err := e.GetEdge(ctx, graph.EdgeIdentity{OutboundID: v1, Type: "knows", InboundID: v2})
	assert.ErrorIs(t, err, graph.ErrVertexNotFound)

	knows := graph.Type("knows")
	count, err := e.GetEdgeCount(ctx, v1, &knows)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestDeleteVertexCascadesAllOutboundEdges(t *testing.T) {
	ctx := context.Background()
	e := NewMemoryEngine()
	defer e.Close()

	v1, _ := e.InsertVertex(ctx, "person")
	v2, _ := e.InsertVertex(ctx, "person")
	v3, _ := e.InsertVertex(ctx, "person")
	v4, _ := e.InsertVertex(ctx, "person")
	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "knows", InboundID: v2, Weight: 0}))
	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "knows", InboundID: v3, Weight: 0}))
	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "knows", InboundID: v4, Weight: 0}))

	require.NoError(t, e.DeleteVertex(ctx, v1))

	knows := graph.Type("knows")
	for _, peer := range []graph.ID{v2, v3, v4} {
		_, err := e.GetEdge(ctx, graph.EdgeIdentity{OutboundID: v1, Type: "knows", InboundID: peer})
		assert.ErrorIs(t, err, graph.ErrVertexNotFound)

		count, err := e.GetReversedEdgeCount(ctx, peer, &knows)
		require.NoError(t, err)
		assert.Equalf(t, uint64(0), count, "peer %s still has an inbound index row pointing at the deleted vertex", peer)

		rev, err := e.GetReversedEdgeRange(ctx, peer, &knows, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, rev)
	}
}

func TestReverseSymmetry(t *testing.T) {
	ctx := context.Background()
	e := NewMemoryEngine()
	defer e.Close()

	v1, _ := e.InsertVertex(ctx, "person")
	v2, _ := e.InsertVertex(ctx, "person")
	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "knows", InboundID: v2, Weight: 0}))

	typ := graph.Type("knows")
	rev, err := e.GetReversedEdgeRange(ctx, v2, &typ, 0, 10)
	require.NoError(t, err)
	require.Len(t, rev, 1)
	assert.Equal(t, v1, rev[0].OutboundID)
}

func TestEdgeRangeEdgeCasePolicies(t *testing.T) {
	ctx := context.Background()
	e := NewMemoryEngine()
	defer e.Close()

	v1, _ := e.InsertVertex(ctx, "person")
	v2, _ := e.InsertVertex(ctx, "person")
	require.NoError(t, e.SetEdge(ctx, graph.Edge{OutboundID: v1, Type: "t", InboundID: v2, Weight: 0}))

	typ := graph.Type("t")
	zero, err := e.GetEdgeRange(ctx, v1, &typ, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, zero)

	beyond, err := e.GetEdgeRange(ctx, v1, &typ, 100, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond)

	high := time.Now().UTC().Add(-time.Hour)
	low := time.Now().UTC()
	empty, err := e.GetEdgeTimeRange(ctx, v1, &typ, &high, &low, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMetadataLifecycle(t *testing.T) {
	ctx := context.Background()
	e := NewMemoryEngine()
	defer e.Close()

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

func TestVertexDeleteCascadesMetadata(t *testing.T) {
	ctx := context.Background()
	e := NewMemoryEngine()
	defer e.Close()

	v1, _ := e.InsertVertex(ctx, "person")
	require.NoError(t, e.SetMetadata(ctx, graph.VertexScope(v1), "note", []byte(`1`)))
	require.NoError(t, e.DeleteVertex(ctx, v1))

	_, err := e.GetMetadata(ctx, graph.VertexScope(v1), "note")
	assert.ErrorIs(t, err, graph.ErrMetadataNotFound)
}
