// Package graph defines the property-graph data model shared by the
// storage, datastore, and batch packages: identifiers, type tags,
// weights, vertices, edges, metadata scopes, and the sentinel errors
// every layer above the index engine propagates unchanged.
package graph

import "errors"

// Sentinel errors surfaced to callers of the storage, datastore, and
// batch packages. Components check these with errors.Is rather than a
// tagged-union error type.
var (
	// ErrUuidTaken indicates a freshly generated identifier collided
	// with one already present in the datastore. Collision probability
	// is negligible for a 128-bit generator; no identifier is ever
	// reused while still in use, so a collision is reported rather than
	// silently retried.
	ErrUuidTaken = errors.New("uuid already taken")

	// ErrVertexNotFound indicates an edge write referenced a missing
	// endpoint vertex.
	ErrVertexNotFound = errors.New("vertex not found")

	// ErrMetadataNotFound indicates a read of an unset metadata key.
	ErrMetadataNotFound = errors.New("metadata not found")

	// ErrInvalidValue indicates a validation failure on a type tag,
	// weight, or wire field shape.
	ErrInvalidValue = errors.New("invalid value")

	// ErrValueTooLong indicates a bounded string exceeded its limit.
	ErrValueTooLong = errors.New("value too long")

	// ErrCannotIncrementIdentifier indicates Successor was called on
	// the maximum identifier.
	ErrCannotIncrementIdentifier = errors.New("cannot increment identifier")

	// ErrUnsupportedScheme indicates a datastore connection string names
	// a scheme this build does not implement.
	ErrUnsupportedScheme = errors.New("unsupported scheme")

	// ErrUnsupported indicates an operation that is not meaningful on
	// the active engine, e.g. Rollback on the in-memory engine.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrSerialization indicates a JSON decode/encode failure at a wire
	// boundary.
	ErrSerialization = errors.New("serialization error")
)
