// Package datastore is the single entry point embedders open a graph
// store through: it parses a connection string into a concrete storage
// engine and mints transactions bound to an account identity.
package datastore

import (
	"net/url"

	"github.com/orneryd/graphdb/pkg/graph"
	"github.com/orneryd/graphdb/pkg/storage"
)

// Datastore owns a storage engine opened from a connection string.
type Datastore struct {
	engine storage.Engine
}

// Open parses connString and constructs the engine it names. memory://
// constructs an in-memory engine; badger://<path> (or badger://memory)
// constructs a persistent BadgerDB-backed engine rooted at <path>; any
// other scheme fails with graph.ErrUnsupportedScheme. This is the failure
// exercised by the negative bootstrap scenario: a server started against
// an unrecognized scheme must fail to open rather than start against a
// broken store.
func Open(connString string) (*Datastore, error) {
	u, err := url.Parse(connString)
	if err != nil {
		return nil, graph.ErrUnsupportedScheme
	}
	switch u.Scheme {
	case "memory":
		return &Datastore{engine: storage.NewMemoryEngine()}, nil
	case "badger":
		if u.Host == "memory" && u.Path == "" {
			engine, err := storage.NewBadgerEngineInMemory()
			if err != nil {
				return nil, err
			}
			return &Datastore{engine: engine}, nil
		}
		dataDir := u.Path
		if u.Host != "" {
			dataDir = u.Host + dataDir
		}
		engine, err := storage.NewBadgerEngine(dataDir)
		if err != nil {
			return nil, err
		}
		return &Datastore{engine: engine}, nil
	default:
		return nil, graph.ErrUnsupportedScheme
	}
}

// NewTransaction returns a new transaction against this datastore's
// engine, bound to accountID.
func (d *Datastore) NewTransaction(accountID graph.ID) *storage.Transaction {
	return storage.NewTransaction(d.engine, accountID)
}

// Close releases the underlying engine's resources.
func (d *Datastore) Close() error {
	return d.engine.Close()
}
