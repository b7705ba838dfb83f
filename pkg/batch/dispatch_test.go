package batch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/orneryd/graphdb/pkg/graph"
	"github.com/orneryd/graphdb/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTx() *storage.Transaction {
	return storage.NewTransaction(storage.NewMemoryEngine(), graph.NewID())
}

func TestDispatchCreateAndGetVertex(t *testing.T) {
	ctx := context.Background()
	tx := newTx()

	results, errIndex, err := Dispatch(ctx, tx, []Action{
		{Name: "create_vertex", Type: strPtr("person")},
	})
	require.NoError(t, err)
	assert.Equal(t, -1, errIndex)
	require.Len(t, results, 1)

	var id string
	require.NoError(t, json.Unmarshal(results[0], &id))
	assert.NotEmpty(t, id)
}

func TestDispatchHaltsAtFirstFailurePreservingPriorEffects(t *testing.T) {
	ctx := context.Background()
	tx := newTx()

	bogus := graph.NewID().String()
	results, errIndex, err := Dispatch(ctx, tx, []Action{
		{Name: "create_vertex", Type: strPtr("a")},
		{Name: "set_edge", OutboundID: &bogus, Type: strPtr("t"), InboundID: &bogus, Weight: floatPtr(0.1)},
	})
	require.Error(t, err)
	assert.Equal(t, 1, errIndex)
	assert.ErrorIs(t, err, graph.ErrVertexNotFound)
	assert.Len(t, results, 1)

	var createdID string
	require.NoError(t, json.Unmarshal(results[0], &createdID))
	id, parseErr := graph.ParseID(createdID)
	require.NoError(t, parseErr)

	v, err := tx.GetVertex(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, graph.Type("a"), v.Type)
}

func TestDispatchMetadataAllFourScopes(t *testing.T) {
	ctx := context.Background()
	tx := newTx()

	var vertexID, otherID string
	{
		results, _, err := Dispatch(ctx, tx, []Action{
			{Name: "create_vertex", Type: strPtr("a")},
			{Name: "create_vertex", Type: strPtr("a")},
		})
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(results[0], &vertexID))
		require.NoError(t, json.Unmarshal(results[1], &otherID))
	}

	_, errIndex, err := Dispatch(ctx, tx, []Action{
		{Name: "set_global_metadata", Key: strPtr("k"), Value: json.RawMessage(`1`)},
		{Name: "set_account_metadata", Key: strPtr("k"), Value: json.RawMessage(`2`)},
		{Name: "set_vertex_metadata", ID: &vertexID, Key: strPtr("k"), Value: json.RawMessage(`3`)},
		{Name: "set_edge", OutboundID: &vertexID, Type: strPtr("t"), InboundID: &otherID, Weight: floatPtr(0.5)},
		{Name: "set_edge_metadata", OutboundID: &vertexID, Type: strPtr("t"), InboundID: &otherID, Key: strPtr("k"), Value: json.RawMessage(`4`)},
	})
	require.NoError(t, err)
	assert.Equal(t, -1, errIndex)

	results, _, err := Dispatch(ctx, tx, []Action{
		{Name: "get_global_metadata", Key: strPtr("k")},
		{Name: "get_account_metadata", Key: strPtr("k")},
		{Name: "get_vertex_metadata", ID: &vertexID, Key: strPtr("k")},
		{Name: "get_edge_metadata", OutboundID: &vertexID, Type: strPtr("t"), InboundID: &otherID, Key: strPtr("k")},
	})
	require.NoError(t, err)
	assert.JSONEq(t, "1", string(results[0]))
	assert.JSONEq(t, "2", string(results[1]))
	assert.JSONEq(t, "3", string(results[2]))
	assert.JSONEq(t, "4", string(results[3]))
}

func TestDecodeMalformedBody(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeWellFormedBody(t *testing.T) {
	actions, err := Decode([]byte(`[{"action":"create_vertex","type":"a"}]`))
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "create_vertex", actions[0].Name)
}

func strPtr(s string) *string   { return &s }
func floatPtr(f float64) *float64 { return &f }
