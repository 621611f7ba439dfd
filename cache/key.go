package cache

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	initialHash    int32 = 1
	hashMultiplier int32 = 37
)

// Key is a deterministic fingerprint of a logical statement call. It is
// built by feeding the statement id, pagination bounds, rendered SQL text,
// parameter values and environment id through Update in that order.
//
// Two Keys are equal iff their count, checksum and running hash match and
// every contributed value is pairwise equal (nil-safe) in order. A Key must
// not be updated after it has been used as a cache key.
type Key struct {
	hash     int32
	checksum int64
	count    int
	updates  []any
}

// NewKey returns a Key seeded with the given values in order.
func NewKey(values ...any) *Key {
	k := &Key{hash: initialHash}
	for _, v := range values {
		k.Update(v)
	}
	return k
}

// Update appends a contribution to the key and folds it into the running
// hash and checksum. Contributions are order-sensitive.
func (k *Key) Update(v any) {
	base := valueHash(v)
	k.count++
	k.checksum += int64(base)
	base *= int32(k.count)
	k.hash = hashMultiplier*k.hash + base
	k.updates = append(k.updates, v)
}

// UpdateAll appends each value in order.
func (k *Key) UpdateAll(values ...any) {
	for _, v := range values {
		k.Update(v)
	}
}

// HashCode returns the running hash.
func (k *Key) HashCode() int32 { return k.hash }

// Count returns the number of contributed values.
func (k *Key) Count() int { return k.count }

// Equal reports whether both keys were built from equal value sequences.
// The cheap fingerprint fields are compared first; the contributed values
// are the exact-equality fallback for hash collisions.
func (k *Key) Equal(other *Key) bool {
	if k == other {
		return true
	}
	if k == nil || other == nil {
		return false
	}
	if k.hash != other.hash || k.checksum != other.checksum || k.count != other.count {
		return false
	}
	for i := range k.updates {
		if !valueEqual(k.updates[i], other.updates[i]) {
			return false
		}
	}
	return true
}

// Clone returns a copy with its own updates slice, usable as a stable
// snapshot while the original is still in scope.
func (k *Key) Clone() *Key {
	dup := *k
	dup.updates = append([]any(nil), k.updates...)
	return &dup
}

// Digest returns a canonical string form of the key for string-keyed cache
// stores. It combines the fingerprint fields with a 64-bit hash over every
// contributed value, so distinct keys collide only if xxhash does.
func (k *Key) Digest() string {
	h := xxhash.New()
	var buf [8]byte
	for _, v := range k.updates {
		binary.BigEndian.PutUint64(buf[:], valueHash64(v))
		h.Write(buf[:])
	}
	return fmt.Sprintf("%08x-%016x-%d-%016x", uint32(k.hash), uint64(k.checksum), k.count, h.Sum64())
}

// String renders the key for diagnostics.
func (k *Key) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d", k.hash, k.checksum)
	for _, v := range k.updates {
		fmt.Fprintf(&b, ":%v", v)
	}
	return b.String()
}

func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}
