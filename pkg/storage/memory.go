package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/orneryd/graphdb/pkg/graph"
)

// indexEntry is one row of the Eo or Ei derived index: for Eo, peerID is
// the inbound id of an edge anchored at some outbound id; for Ei it is the
// outbound id of an edge anchored at some inbound id. Entries within a
// single anchor's slice are kept sorted by (Type, UpdatedAtDesc, PeerID),
// which makes both a type-scoped sub-range and a full, type-grouped scan
// simple slice operations.
type indexEntry struct {
	Type          graph.Type
	UpdatedAtDesc uint64
	UpdatedAt     time.Time
	PeerID        graph.ID
}

func descOf(t time.Time) uint64 {
	return ^uint64(t.UnixNano())
}

func entryLess(a, b indexEntry) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	if a.UpdatedAtDesc != b.UpdatedAtDesc {
		return a.UpdatedAtDesc < b.UpdatedAtDesc
	}
	return a.PeerID.Compare(b.PeerID) < 0
}

// edgeRecord is the E index's value: weight and the last-write timestamp.
type edgeRecord struct {
	Weight    graph.Weight
	UpdatedAt time.Time
}

// MemoryEngine is the in-memory Engine implementation: a primary vertex
// map, primary edge map, the Eo/Ei derived range indexes, and the
// metadata map, all guarded by one RWMutex. Reads take RLock; every write
// takes Lock, so mutations observe and leave a consistent snapshot across
// all five structures.
type MemoryEngine struct {
	mu sync.RWMutex

	vertices map[graph.ID]graph.Type
	edges    map[graph.EdgeIdentity]edgeRecord
	outbound map[graph.ID][]indexEntry // Eo, keyed by outbound id
	inbound  map[graph.ID][]indexEntry // Ei, keyed by inbound id
	metadata map[string]map[string]json.RawMessage

	closed bool
}

// NewMemoryEngine constructs an empty in-memory engine, the backend
// behind the datastore's memory:// connection scheme.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		vertices: make(map[graph.ID]graph.Type),
		edges:    make(map[graph.EdgeIdentity]edgeRecord),
		outbound: make(map[graph.ID][]indexEntry),
		inbound:  make(map[graph.ID][]indexEntry),
		metadata: make(map[string]map[string]json.RawMessage),
	}
}

func (m *MemoryEngine) InsertVertex(_ context.Context, t graph.Type) (graph.ID, error) {
	if err := graph.ValidateType(string(t)); err != nil {
		return graph.ID{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return graph.ID{}, graph.ErrUnsupported
	}
	id := graph.NewID()
	if _, taken := m.vertices[id]; taken {
		return graph.ID{}, graph.ErrUuidTaken
	}
	m.vertices[id] = t
	return id, nil
}

func (m *MemoryEngine) SetVertex(_ context.Context, id graph.ID, t graph.Type) error {
	if err := graph.ValidateType(string(t)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vertices[id] = t
	return nil
}

func (m *MemoryEngine) GetVertex(_ context.Context, id graph.ID) (graph.Vertex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.vertices[id]
	if !ok {
		return graph.Vertex{}, graph.ErrVertexNotFound
	}
	return graph.Vertex{ID: id, Type: t}, nil
}

func (m *MemoryEngine) GetVertexRange(_ context.Context, startID graph.ID, limit int) ([]graph.Vertex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit == 0 {
		return []graph.Vertex{}, nil
	}
	ids := make([]graph.ID, 0, len(m.vertices))
	for id := range m.vertices {
		if id.Compare(startID) >= 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]graph.Vertex, len(ids))
	for i, id := range ids {
		out[i] = graph.Vertex{ID: id, Type: m.vertices[id]}
	}
	return out, nil
}

// DeleteVertex removes the vertex and cascades to every edge incident to
// it (either direction) along with vertex- and edge-scoped metadata for
// those edges.
func (m *MemoryEngine) DeleteVertex(_ context.Context, id graph.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vertices[id]; !ok {
		return graph.ErrVertexNotFound
	}
	delete(m.vertices, id)

	// Snapshot before ranging: deleteEdgeUnlocked shrinks these same
	// slices in place (removeIndexEntry), so ranging directly over
	// m.outbound[id]/m.inbound[id] would skip entries as they shift left.
	outbound := append([]indexEntry(nil), m.outbound[id]...)
	inbound := append([]indexEntry(nil), m.inbound[id]...)
	for _, e := range outbound {
		m.deleteEdgeUnlocked(graph.EdgeIdentity{OutboundID: id, Type: e.Type, InboundID: e.PeerID})
	}
	for _, e := range inbound {
		m.deleteEdgeUnlocked(graph.EdgeIdentity{OutboundID: e.PeerID, Type: e.Type, InboundID: id})
	}
	delete(m.outbound, id)
	delete(m.inbound, id)
	delete(m.metadata, graph.VertexScope(id).Prefix())
	return nil
}

func (m *MemoryEngine) SetEdge(_ context.Context, e graph.Edge) error {
	if err := graph.ValidateType(string(e.Type)); err != nil {
		return err
	}
	if err := graph.ValidateWeight(float64(e.Weight)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vertices[e.OutboundID]; !ok {
		return graph.ErrVertexNotFound
	}
	if _, ok := m.vertices[e.InboundID]; !ok {
		return graph.ErrVertexNotFound
	}

	now := time.Now().UTC()
	identity := e.Identity()
	if prev, exists := m.edges[identity]; exists {
		if !now.After(prev.UpdatedAt) {
			now = prev.UpdatedAt.Add(time.Nanosecond)
		}
		m.removeIndexEntry(m.outbound, identity.OutboundID, indexEntry{Type: identity.Type, UpdatedAtDesc: descOf(prev.UpdatedAt), PeerID: identity.InboundID})
		m.removeIndexEntry(m.inbound, identity.InboundID, indexEntry{Type: identity.Type, UpdatedAtDesc: descOf(prev.UpdatedAt), PeerID: identity.OutboundID})
	}

	m.edges[identity] = edgeRecord{Weight: e.Weight, UpdatedAt: now}
	m.insertIndexEntry(m.outbound, identity.OutboundID, indexEntry{Type: identity.Type, UpdatedAtDesc: descOf(now), UpdatedAt: now, PeerID: identity.InboundID})
	m.insertIndexEntry(m.inbound, identity.InboundID, indexEntry{Type: identity.Type, UpdatedAtDesc: descOf(now), UpdatedAt: now, PeerID: identity.OutboundID})
	return nil
}

func (m *MemoryEngine) GetEdge(_ context.Context, id graph.EdgeIdentity) (graph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.edges[id]
	if !ok {
		return graph.Edge{}, graph.ErrVertexNotFound
	}
	return graph.Edge{OutboundID: id.OutboundID, Type: id.Type, InboundID: id.InboundID, Weight: rec.Weight, UpdatedAt: rec.UpdatedAt}, nil
}

func (m *MemoryEngine) DeleteEdge(_ context.Context, id graph.EdgeIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.edges[id]; !ok {
		return graph.ErrVertexNotFound
	}
	m.deleteEdgeUnlocked(id)
	return nil
}

// deleteEdgeUnlocked removes id from E, Eo, Ei, and its edge-scoped
// metadata. Callers must hold m.mu for writing.
func (m *MemoryEngine) deleteEdgeUnlocked(id graph.EdgeIdentity) {
	rec, ok := m.edges[id]
	if !ok {
		return
	}
	delete(m.edges, id)
	m.removeIndexEntry(m.outbound, id.OutboundID, indexEntry{Type: id.Type, UpdatedAtDesc: descOf(rec.UpdatedAt), PeerID: id.InboundID})
	m.removeIndexEntry(m.inbound, id.InboundID, indexEntry{Type: id.Type, UpdatedAtDesc: descOf(rec.UpdatedAt), PeerID: id.OutboundID})
	delete(m.metadata, graph.EdgeScope(id.OutboundID, id.Type, id.InboundID).Prefix())
}

func (m *MemoryEngine) insertIndexEntry(idx map[graph.ID][]indexEntry, anchor graph.ID, e indexEntry) {
	slice := idx[anchor]
	i := sort.Search(len(slice), func(i int) bool { return !entryLess(slice[i], e) })
	slice = append(slice, indexEntry{})
	copy(slice[i+1:], slice[i:])
	slice[i] = e
	idx[anchor] = slice
}

func (m *MemoryEngine) removeIndexEntry(idx map[graph.ID][]indexEntry, anchor graph.ID, e indexEntry) {
	slice := idx[anchor]
	i := sort.Search(len(slice), func(i int) bool { return !entryLess(slice[i], e) })
	if i >= len(slice) || entryLess(e, slice[i]) {
		return
	}
	slice = append(slice[:i], slice[i+1:]...)
	if len(slice) == 0 {
		delete(idx, anchor)
		return
	}
	idx[anchor] = slice
}

// typeBounds returns the [lo, hi) sub-slice indices for t within slice,
// assuming slice is sorted by entryLess. When t is nil, it returns the
// whole slice's bounds: spans all types in index key order.
func typeBounds(slice []indexEntry, t *graph.Type) (int, int) {
	if t == nil {
		return 0, len(slice)
	}
	lo := sort.Search(len(slice), func(i int) bool { return slice[i].Type >= *t })
	hi := sort.Search(len(slice), func(i int) bool { return slice[i].Type > *t })
	return lo, hi
}

func (m *MemoryEngine) GetEdgeCount(_ context.Context, outboundID graph.ID, t *graph.Type) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lo, hi := typeBounds(m.outbound[outboundID], t)
	return uint64(hi - lo), nil
}

func (m *MemoryEngine) GetReversedEdgeCount(_ context.Context, inboundID graph.ID, t *graph.Type) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lo, hi := typeBounds(m.inbound[inboundID], t)
	return uint64(hi - lo), nil
}

func (m *MemoryEngine) edgeRange(anchor graph.ID, peerIsInbound bool, idx map[graph.ID][]indexEntry, t *graph.Type, offset, limit int) []graph.Edge {
	if limit == 0 {
		return []graph.Edge{}
	}
	slice := idx[anchor]
	lo, hi := typeBounds(slice, t)
	sub := slice[lo:hi]
	if offset >= len(sub) {
		return []graph.Edge{}
	}
	sub = sub[offset:]
	if len(sub) > limit {
		sub = sub[:limit]
	}
	out := make([]graph.Edge, len(sub))
	for i, e := range sub {
		if peerIsInbound {
			out[i] = graph.Edge{OutboundID: anchor, Type: e.Type, InboundID: e.PeerID, UpdatedAt: e.UpdatedAt}
		} else {
			out[i] = graph.Edge{OutboundID: e.PeerID, Type: e.Type, InboundID: anchor, UpdatedAt: e.UpdatedAt}
		}
		if rec, ok := m.edges[out[i].Identity()]; ok {
			out[i].Weight = rec.Weight
		}
	}
	return out
}

func (m *MemoryEngine) GetEdgeRange(_ context.Context, outboundID graph.ID, t *graph.Type, offset, limit int) ([]graph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.edgeRange(outboundID, true, m.outbound, t, offset, limit), nil
}

func (m *MemoryEngine) GetReversedEdgeRange(_ context.Context, inboundID graph.ID, t *graph.Type, offset, limit int) ([]graph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.edgeRange(inboundID, false, m.inbound, t, offset, limit), nil
}

// edgeTimeRange filters the anchor's rows (only type t's when t is set) to
// the half-open interval (low, high] on UpdatedAt, newest first within each
// type, returning at most limit edges. high < low yields the empty sequence.
func (m *MemoryEngine) edgeTimeRange(anchor graph.ID, peerIsInbound bool, idx map[graph.ID][]indexEntry, t *graph.Type, high, low *time.Time, limit int) []graph.Edge {
	if limit == 0 {
		return []graph.Edge{}
	}
	if high != nil && low != nil && high.Before(*low) {
		return []graph.Edge{}
	}
	slice := idx[anchor]
	typeLo, typeHi := typeBounds(slice, t)
	sub := slice[typeLo:typeHi]

	if t == nil {
		// Without a type filter sub spans several type groups, so
		// UpdatedAtDesc is not sorted across it: filter row by row. Every
		// kept row then satisfies both bounds, and the searches below
		// return the whole filtered slice.
		filtered := make([]indexEntry, 0, len(sub))
		for _, e := range sub {
			if (high == nil || e.UpdatedAtDesc >= descOf(*high)) && (low == nil || e.UpdatedAtDesc < descOf(*low)) {
				filtered = append(filtered, e)
			}
		}
		sub = filtered
	}

	start := 0
	if high != nil {
		highDesc := descOf(*high)
		start = sort.Search(len(sub), func(i int) bool { return sub[i].UpdatedAtDesc >= highDesc })
	}
	end := len(sub)
	if low != nil {
		lowDesc := descOf(*low)
		end = sort.Search(len(sub), func(i int) bool { return sub[i].UpdatedAtDesc >= lowDesc })
	}
	if start >= end {
		return []graph.Edge{}
	}
	sub = sub[start:end]
	if len(sub) > limit {
		sub = sub[:limit]
	}
	out := make([]graph.Edge, len(sub))
	for i, e := range sub {
		if peerIsInbound {
			out[i] = graph.Edge{OutboundID: anchor, Type: e.Type, InboundID: e.PeerID, UpdatedAt: e.UpdatedAt}
		} else {
			out[i] = graph.Edge{OutboundID: e.PeerID, Type: e.Type, InboundID: anchor, UpdatedAt: e.UpdatedAt}
		}
		if rec, ok := m.edges[out[i].Identity()]; ok {
			out[i].Weight = rec.Weight
		}
	}
	return out
}

func (m *MemoryEngine) GetEdgeTimeRange(_ context.Context, outboundID graph.ID, t *graph.Type, high, low *time.Time, limit int) ([]graph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.edgeTimeRange(outboundID, true, m.outbound, t, high, low, limit), nil
}

func (m *MemoryEngine) GetReversedEdgeTimeRange(_ context.Context, inboundID graph.ID, t *graph.Type, high, low *time.Time, limit int) ([]graph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.edgeTimeRange(inboundID, false, m.inbound, t, high, low, limit), nil
}

func (m *MemoryEngine) GetMetadata(_ context.Context, scope graph.Scope, key string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket, ok := m.metadata[scope.Prefix()]
	if !ok {
		return nil, graph.ErrMetadataNotFound
	}
	v, ok := bucket[key]
	if !ok {
		return nil, graph.ErrMetadataNotFound
	}
	return v, nil
}

func (m *MemoryEngine) SetMetadata(_ context.Context, scope graph.Scope, key string, value json.RawMessage) error {
	if err := graph.ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.metadata[scope.Prefix()]
	if !ok {
		bucket = make(map[string]json.RawMessage)
		m.metadata[scope.Prefix()] = bucket
	}
	bucket[key] = value
	return nil
}

func (m *MemoryEngine) DeleteMetadata(_ context.Context, scope graph.Scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.metadata[scope.Prefix()]
	if !ok {
		return graph.ErrMetadataNotFound
	}
	if _, ok := bucket[key]; !ok {
		return graph.ErrMetadataNotFound
	}
	delete(bucket, key)
	if len(bucket) == 0 {
		delete(m.metadata, scope.Prefix())
	}
	return nil
}

func (m *MemoryEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
