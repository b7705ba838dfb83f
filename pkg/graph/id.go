package graph

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// ID is a 128-bit identifier with total order given by unsigned
// big-endian byte comparison. The zero value is the all-zero identifier;
// it is never returned by NewID, which always mints a fresh random value.
type ID [16]byte

// MaxID is the distinguished maximum identifier (all bits set). Successor
// is undefined for it.
var MaxID = ID{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// NewID generates a fresh identifier. Identifiers are minted as version-4
// UUIDs: the original datastore this model is ported from called its
// generator "v1" while actually constructing v4 values, and this port
// keeps the v4 behavior under the plain name NewID rather than carry the
// mislabeling forward.
func NewID() ID {
	var id ID
	copy(id[:], uuid.New()[:])
	return id
}

// ParseID decodes a canonical hyphenated 36-character UUID string.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, ErrInvalidValue
	}
	var id ID
	copy(id[:], u[:])
	return id, nil
}

// MustParseID is ParseID for callers that have already validated s, such
// as test fixtures; it panics on malformed input.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String renders the canonical hyphenated form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// MarshalJSON encodes the identifier as its canonical hyphenated string.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON decodes a canonical hyphenated string.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return ErrSerialization
	}
	parsed, err := ParseID(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Compare returns -1, 0, or 1 as id orders before, equal to, or after
// other, under unsigned big-endian byte comparison.
func (id ID) Compare(other ID) int {
	for i := 0; i < len(id); i++ {
		if id[i] != other[i] {
			if id[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Successor returns the next identifier in byte-lex order, incrementing
// the least-significant byte with carry toward the most-significant byte.
// It fails with ErrCannotIncrementIdentifier when id is MaxID. Range seeks
// on the closed-order primary index use this to express a half-open lower
// bound as a closed one.
func (id ID) Successor() (ID, error) {
	if id == MaxID {
		return ID{}, ErrCannotIncrementIdentifier
	}
	next := id
	for i := len(next) - 1; i >= 0; i-- {
		next[i]++
		if next[i] != 0 {
			break
		}
	}
	return next, nil
}

// bigEndianUint64 extracts the first 8 bytes of id as a big-endian uint64.
// It is unexported and has no caller; the storage engines key on the full
// 16 bytes.
func (id ID) bigEndianUint64() uint64 {
	return binary.BigEndian.Uint64(id[:8])
}
