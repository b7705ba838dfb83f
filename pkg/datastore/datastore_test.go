package datastore

import (
	"testing"

	"github.com/orneryd/graphdb/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemoryScheme(t *testing.T) {
	ds, err := Open("memory://")
	require.NoError(t, err)
	defer ds.Close()

	tx := ds.NewTransaction(graph.NewID())
	assert.NotNil(t, tx)
}

func TestOpenUnsupportedScheme(t *testing.T) {
	_, err := Open("foo://")
	assert.ErrorIs(t, err, graph.ErrUnsupportedScheme)
}

func TestOpenBadgerInMemoryScheme(t *testing.T) {
	ds, err := Open("badger://memory")
	require.NoError(t, err)
	defer ds.Close()

	tx := ds.NewTransaction(graph.NewID())
	assert.NotNil(t, tx)
}

func TestOpenBadgerDiskScheme(t *testing.T) {
	dir := t.TempDir()
	ds, err := Open("badger://" + dir)
	require.NoError(t, err)
	defer ds.Close()

	tx := ds.NewTransaction(graph.NewID())
	assert.NotNil(t, tx)
}
