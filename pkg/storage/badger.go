package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/orneryd/graphdb/pkg/graph"
)

// Key prefixes for BadgerDB storage organization. One byte each, mirroring
// the in-memory engine's five structures (vertices, edges, Eo, Ei, metadata)
// so the two engines keep the same semantics behind the same Engine
// interface.
const (
	bPrefixVertex   = byte(0x01) // vertex: id -> Type
	bPrefixEdge     = byte(0x02) // edge: identity -> edgeRecord
	bPrefixOutbound = byte(0x03) // Eo: outboundID + type + updatedAtDesc + inboundID -> nil
	bPrefixInbound  = byte(0x04) // Ei: inboundID + type + updatedAtDesc + outboundID -> nil
	bPrefixMetadata = byte(0x05) // metadata: scope.Prefix() + 0x00 + key -> json.RawMessage
)

// BadgerEngine is the persistent Engine implementation: the same
// vertex/edge/Eo/Ei/metadata model as MemoryEngine, backed by BadgerDB so
// data survives a process restart. It keeps the Eo/Ei sort order
// (Type, UpdatedAtDesc, PeerID) by encoding it directly into the index key
// bytes, so badger's own lexicographic iteration does the sorting that
// MemoryEngine does with sort.Search.
type BadgerEngine struct {
	db *badger.DB
}

// BadgerOptions configures the persistent engine.
type BadgerOptions struct {
	// DataDir is the directory for storing data files. Required unless
	// InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode, useful for tests that
	// want persistent-engine semantics without touching disk.
	InMemory bool

	// SyncWrites forces fsync after every write. Slower, more durable.
	SyncWrites bool
}

// NewBadgerEngine opens a persistent engine rooted at dataDir with default
// settings: ZSTD value compression and a block cache sized for a single
// embedded process.
func NewBadgerEngine(dataDir string) (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{DataDir: dataDir})
}

// NewBadgerEngineInMemory opens a BadgerDB instance with no backing files;
// data does not survive Close.
func NewBadgerEngineInMemory() (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{InMemory: true})
}

// NewBadgerEngineWithOptions opens a persistent engine with explicit
// tuning. Compression and the block cache are always on: compression runs
// through klauspost/compress's ZSTD codec, and a non-zero block cache
// turns on badger's ristretto-backed cache, both exercised through
// badger's own option surface rather than called directly.
func NewBadgerEngineWithOptions(opts BadgerOptions) (*BadgerEngine, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	badgerOpts = badgerOpts.
		WithLogger(nil).
		WithCompression(options.ZSTD).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return &BadgerEngine{db: db}, nil
}

func vertexKey(id graph.ID) []byte {
	key := make([]byte, 0, 17)
	key = append(key, bPrefixVertex)
	return append(key, id[:]...)
}

func edgeRecordKey(id graph.EdgeIdentity) []byte {
	key := make([]byte, 0, 1+16+len(id.Type)+1+16)
	key = append(key, bPrefixEdge)
	key = append(key, id.OutboundID[:]...)
	key = append(key, []byte(id.Type)...)
	key = append(key, 0x00)
	return append(key, id.InboundID[:]...)
}

// indexKey builds an Eo or Ei row key: prefix + anchor + type + 0x00 +
// updatedAtDesc (big-endian, so badger's byte order is numeric order) +
// peer. Big-endian keeps the newest-first comparator that MemoryEngine
// gets from its slice sort: ascending UpdatedAtDesc is descending time.
func indexKey(prefix byte, anchor graph.ID, t graph.Type, updatedAtDesc uint64, peer graph.ID) []byte {
	key := make([]byte, 0, 1+16+len(t)+1+8+16)
	key = append(key, prefix)
	key = append(key, anchor[:]...)
	key = append(key, []byte(t)...)
	key = append(key, 0x00)
	var descBuf [8]byte
	binary.BigEndian.PutUint64(descBuf[:], updatedAtDesc)
	key = append(key, descBuf[:]...)
	return append(key, peer[:]...)
}

func indexTypePrefix(prefix byte, anchor graph.ID, t graph.Type) []byte {
	key := make([]byte, 0, 1+16+len(t)+1)
	key = append(key, prefix)
	key = append(key, anchor[:]...)
	key = append(key, []byte(t)...)
	return append(key, 0x00)
}

func indexAnchorPrefix(prefix byte, anchor graph.ID) []byte {
	key := make([]byte, 0, 1+16)
	key = append(key, prefix)
	return append(key, anchor[:]...)
}

// splitIndexKey recovers (type, updatedAtDesc, peer) from a row built by
// indexKey, given the fixed 1+16 byte header.
func splitIndexKey(key []byte) (graph.Type, uint64, graph.ID) {
	rest := key[17:]
	sep := bytes.IndexByte(rest, 0x00)
	t := graph.Type(rest[:sep])
	tail := rest[sep+1:]
	desc := binary.BigEndian.Uint64(tail[:8])
	var peer graph.ID
	copy(peer[:], tail[8:24])
	return t, desc, peer
}

type badgerEdgeRecord struct {
	Weight    graph.Weight `json:"weight"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func metadataKey(scope graph.Scope, key string) []byte {
	buf := make([]byte, 0, 1+len(scope.Prefix())+1+len(key))
	buf = append(buf, bPrefixMetadata)
	buf = append(buf, []byte(scope.Prefix())...)
	buf = append(buf, 0x00)
	return append(buf, []byte(key)...)
}

func metadataScopePrefix(scope graph.Scope) []byte {
	buf := make([]byte, 0, 1+len(scope.Prefix())+1)
	buf = append(buf, bPrefixMetadata)
	buf = append(buf, []byte(scope.Prefix())...)
	return append(buf, 0x00)
}

func (b *BadgerEngine) InsertVertex(ctx context.Context, t graph.Type) (graph.ID, error) {
	if err := graph.ValidateType(string(t)); err != nil {
		return graph.ID{}, err
	}
	var id graph.ID
	err := b.db.Update(func(txn *badger.Txn) error {
		id = graph.NewID()
		_, err := txn.Get(vertexKey(id))
		if err == nil {
			return graph.ErrUuidTaken
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return txn.Set(vertexKey(id), data)
	})
	if err != nil {
		return graph.ID{}, err
	}
	return id, nil
}

func (b *BadgerEngine) SetVertex(ctx context.Context, id graph.ID, t graph.Type) error {
	if err := graph.ValidateType(string(t)); err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(vertexKey(id), data)
	})
}

func (b *BadgerEngine) GetVertex(ctx context.Context, id graph.ID) (graph.Vertex, error) {
	var t graph.Type
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(vertexKey(id))
		if err == badger.ErrKeyNotFound {
			return graph.ErrVertexNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &t)
		})
	})
	if err != nil {
		return graph.Vertex{}, err
	}
	return graph.Vertex{ID: id, Type: t}, nil
}

func (b *BadgerEngine) GetVertexRange(ctx context.Context, startID graph.ID, limit int) ([]graph.Vertex, error) {
	if limit == 0 {
		return []graph.Vertex{}, nil
	}
	var out []graph.Vertex
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		seek := vertexKey(startID)
		for it.Seek(seek); it.ValidForPrefix([]byte{bPrefixVertex}) && len(out) < limit; it.Next() {
			item := it.Item()
			var id graph.ID
			copy(id[:], item.Key()[1:])
			var t graph.Type
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &t) }); err != nil {
				return err
			}
			out = append(out, graph.Vertex{ID: id, Type: t})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []graph.Vertex{}
	}
	return out, nil
}

// DeleteVertex removes the vertex and cascades to every incident edge and
// its metadata, same as MemoryEngine.DeleteVertex.
func (b *BadgerEngine) DeleteVertex(ctx context.Context, id graph.ID) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(vertexKey(id)); err != nil {
			if err == badger.ErrKeyNotFound {
				return graph.ErrVertexNotFound
			}
			return err
		}
		if err := txn.Delete(vertexKey(id)); err != nil {
			return err
		}

		for _, prefix := range [][]byte{indexAnchorPrefix(bPrefixOutbound, id), indexAnchorPrefix(bPrefixInbound, id)} {
			outbound := bytes.Equal(prefix[:1], []byte{bPrefixOutbound})
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			var rows [][]byte
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				k := append([]byte{}, it.Item().Key()...)
				rows = append(rows, k)
			}
			it.Close()
			for _, k := range rows {
				t, _, peer := splitIndexKey(k)
				var identity graph.EdgeIdentity
				if outbound {
					identity = graph.EdgeIdentity{OutboundID: id, Type: t, InboundID: peer}
				} else {
					identity = graph.EdgeIdentity{OutboundID: peer, Type: t, InboundID: id}
				}
				if err := deleteEdgeRowsUnlocked(txn, identity); err != nil {
					return err
				}
			}
		}

		return deleteMetadataScopeUnlocked(txn, graph.VertexScope(id))
	})
}

func deleteEdgeRowsUnlocked(txn *badger.Txn, id graph.EdgeIdentity) error {
	item, err := txn.Get(edgeRecordKey(id))
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	var rec badgerEdgeRecord
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
		return err
	}
	if err := txn.Delete(edgeRecordKey(id)); err != nil {
		return err
	}
	desc := descOf(rec.UpdatedAt)
	if err := txn.Delete(indexKey(bPrefixOutbound, id.OutboundID, id.Type, desc, id.InboundID)); err != nil {
		return err
	}
	if err := txn.Delete(indexKey(bPrefixInbound, id.InboundID, id.Type, desc, id.OutboundID)); err != nil {
		return err
	}
	return deleteMetadataScopeUnlocked(txn, graph.EdgeScope(id.OutboundID, id.Type, id.InboundID))
}

func deleteMetadataScopeUnlocked(txn *badger.Txn, scope graph.Scope) error {
	prefix := metadataScopePrefix(scope)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, append([]byte{}, it.Item().Key()...))
	}
	it.Close()
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (b *BadgerEngine) SetEdge(ctx context.Context, e graph.Edge) error {
	if err := graph.ValidateType(string(e.Type)); err != nil {
		return err
	}
	if err := graph.ValidateWeight(float64(e.Weight)); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(vertexKey(e.OutboundID)); err != nil {
			if err == badger.ErrKeyNotFound {
				return graph.ErrVertexNotFound
			}
			return err
		}
		if _, err := txn.Get(vertexKey(e.InboundID)); err != nil {
			if err == badger.ErrKeyNotFound {
				return graph.ErrVertexNotFound
			}
			return err
		}

		identity := e.Identity()
		now := time.Now().UTC()
		if item, err := txn.Get(edgeRecordKey(identity)); err == nil {
			var prev badgerEdgeRecord
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &prev) }); err != nil {
				return err
			}
			if !now.After(prev.UpdatedAt) {
				now = prev.UpdatedAt.Add(time.Nanosecond)
			}
			prevDesc := descOf(prev.UpdatedAt)
			if err := txn.Delete(indexKey(bPrefixOutbound, identity.OutboundID, identity.Type, prevDesc, identity.InboundID)); err != nil {
				return err
			}
			if err := txn.Delete(indexKey(bPrefixInbound, identity.InboundID, identity.Type, prevDesc, identity.OutboundID)); err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		rec := badgerEdgeRecord{Weight: e.Weight, UpdatedAt: now}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(edgeRecordKey(identity), data); err != nil {
			return err
		}
		desc := descOf(now)
		if err := txn.Set(indexKey(bPrefixOutbound, identity.OutboundID, identity.Type, desc, identity.InboundID), nil); err != nil {
			return err
		}
		return txn.Set(indexKey(bPrefixInbound, identity.InboundID, identity.Type, desc, identity.OutboundID), nil)
	})
}

func (b *BadgerEngine) GetEdge(ctx context.Context, id graph.EdgeIdentity) (graph.Edge, error) {
	var rec badgerEdgeRecord
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(edgeRecordKey(id))
		if err == badger.ErrKeyNotFound {
			return graph.ErrVertexNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) })
	})
	if err != nil {
		return graph.Edge{}, err
	}
	return graph.Edge{OutboundID: id.OutboundID, Type: id.Type, InboundID: id.InboundID, Weight: rec.Weight, UpdatedAt: rec.UpdatedAt}, nil
}

func (b *BadgerEngine) DeleteEdge(ctx context.Context, id graph.EdgeIdentity) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(edgeRecordKey(id)); err != nil {
			if err == badger.ErrKeyNotFound {
				return graph.ErrVertexNotFound
			}
			return err
		}
		return deleteEdgeRowsUnlocked(txn, id)
	})
}

func (b *BadgerEngine) GetEdgeCount(ctx context.Context, outboundID graph.ID, t *graph.Type) (uint64, error) {
	return b.countIndex(bPrefixOutbound, outboundID, t)
}

func (b *BadgerEngine) GetReversedEdgeCount(ctx context.Context, inboundID graph.ID, t *graph.Type) (uint64, error) {
	return b.countIndex(bPrefixInbound, inboundID, t)
}

func (b *BadgerEngine) countIndex(prefix byte, anchor graph.ID, t *graph.Type) (uint64, error) {
	var count uint64
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		scan := indexAnchorPrefix(prefix, anchor)
		if t != nil {
			scan = indexTypePrefix(prefix, anchor, *t)
		}
		for it.Seek(scan); it.ValidForPrefix(scan); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// edgeRange walks the Eo or Ei rows for anchor (optionally type-scoped),
// newest first, skipping offset rows and collecting up to limit.
func (b *BadgerEngine) edgeRange(prefix byte, anchor graph.ID, peerIsInbound bool, t *graph.Type, offset, limit int) ([]graph.Edge, error) {
	if limit == 0 {
		return []graph.Edge{}, nil
	}
	var out []graph.Edge
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		scan := indexAnchorPrefix(prefix, anchor)
		if t != nil {
			scan = indexTypePrefix(prefix, anchor, *t)
		}
		skipped := 0
		for it.Seek(scan); it.ValidForPrefix(scan) && len(out) < limit; it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			rowType, _, peer := splitIndexKey(it.Item().Key())
			var identity graph.EdgeIdentity
			if peerIsInbound {
				identity = graph.EdgeIdentity{OutboundID: anchor, Type: rowType, InboundID: peer}
			} else {
				identity = graph.EdgeIdentity{OutboundID: peer, Type: rowType, InboundID: anchor}
			}
			e, err := b.loadEdge(txn, identity)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if out == nil {
		out = []graph.Edge{}
	}
	return out, err
}

func (b *BadgerEngine) loadEdge(txn *badger.Txn, id graph.EdgeIdentity) (graph.Edge, error) {
	item, err := txn.Get(edgeRecordKey(id))
	if err != nil {
		return graph.Edge{}, err
	}
	var rec badgerEdgeRecord
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
		return graph.Edge{}, err
	}
	return graph.Edge{OutboundID: id.OutboundID, Type: id.Type, InboundID: id.InboundID, Weight: rec.Weight, UpdatedAt: rec.UpdatedAt}, nil
}

func (b *BadgerEngine) GetEdgeRange(ctx context.Context, outboundID graph.ID, t *graph.Type, offset, limit int) ([]graph.Edge, error) {
	return b.edgeRange(bPrefixOutbound, outboundID, true, t, offset, limit)
}

func (b *BadgerEngine) GetReversedEdgeRange(ctx context.Context, inboundID graph.ID, t *graph.Type, offset, limit int) ([]graph.Edge, error) {
	return b.edgeRange(bPrefixInbound, inboundID, false, t, offset, limit)
}

// edgeTimeRange mirrors MemoryEngine.edgeTimeRange: it filters the anchor's
// rows (only type t's when t is set) to (low, high] on UpdatedAt, newest
// first within each type. Badger rows are already in UpdatedAtDesc order
// within each type, so this is a scan rather than a binary search, trading
// MemoryEngine's O(log n) seek for code that works directly against
// badger's iterator; a type-scoped scan stops at the first row at or
// before low.
func (b *BadgerEngine) edgeTimeRange(prefix byte, anchor graph.ID, peerIsInbound bool, t *graph.Type, high, low *time.Time, limit int) ([]graph.Edge, error) {
	if limit == 0 {
		return []graph.Edge{}, nil
	}
	if high != nil && low != nil && high.Before(*low) {
		return []graph.Edge{}, nil
	}
	var out []graph.Edge
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		scan := indexAnchorPrefix(prefix, anchor)
		if t != nil {
			scan = indexTypePrefix(prefix, anchor, *t)
		}
		for it.Seek(scan); it.ValidForPrefix(scan) && len(out) < limit; it.Next() {
			rowType, desc, peer := splitIndexKey(it.Item().Key())
			rowTime := undescOf(desc)
			if high != nil && rowTime.After(*high) {
				continue
			}
			if low != nil && !rowTime.After(*low) {
				if t != nil {
					break
				}
				continue
			}
			var identity graph.EdgeIdentity
			if peerIsInbound {
				identity = graph.EdgeIdentity{OutboundID: anchor, Type: rowType, InboundID: peer}
			} else {
				identity = graph.EdgeIdentity{OutboundID: peer, Type: rowType, InboundID: anchor}
			}
			e, err := b.loadEdge(txn, identity)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if out == nil {
		out = []graph.Edge{}
	}
	return out, err
}

func undescOf(desc uint64) time.Time {
	return time.Unix(0, int64(^desc)).UTC()
}

func (b *BadgerEngine) GetEdgeTimeRange(ctx context.Context, outboundID graph.ID, t *graph.Type, high, low *time.Time, limit int) ([]graph.Edge, error) {
	return b.edgeTimeRange(bPrefixOutbound, outboundID, true, t, high, low, limit)
}

func (b *BadgerEngine) GetReversedEdgeTimeRange(ctx context.Context, inboundID graph.ID, t *graph.Type, high, low *time.Time, limit int) ([]graph.Edge, error) {
	return b.edgeTimeRange(bPrefixInbound, inboundID, false, t, high, low, limit)
}

func (b *BadgerEngine) GetMetadata(ctx context.Context, scope graph.Scope, key string) (json.RawMessage, error) {
	var value json.RawMessage
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metadataKey(scope, key))
		if err == badger.ErrKeyNotFound {
			return graph.ErrMetadataNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = append(json.RawMessage{}, val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *BadgerEngine) SetMetadata(ctx context.Context, scope graph.Scope, key string, value json.RawMessage) error {
	if err := graph.ValidateKey(key); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metadataKey(scope, key), value)
	})
}

func (b *BadgerEngine) DeleteMetadata(ctx context.Context, scope graph.Scope, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(metadataKey(scope, key)); err != nil {
			if err == badger.ErrKeyNotFound {
				return graph.ErrMetadataNotFound
			}
			return err
		}
		return txn.Delete(metadataKey(scope, key))
	})
}

func (b *BadgerEngine) Close() error {
	return b.db.Close()
}
