package cache

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Hasher lets a parameter type supply its own stable hash. Implementations
// are consulted before the built-in type switch, so a statement's parameter
// objects can opt out of the encoding fallback entirely. The hash must be
// stable across processes if the value is used with a shared cache store.
type Hasher interface {
	CacheHash() uint64
}

// nilValueHash is the contribution of a nil value.
const nilValueHash uint64 = 1

// valueHash64 computes a stable 64-bit hash for a contributed value.
// Scalars hash from their bit patterns, strings and byte slices through
// xxhash, maps from an order-independent fold over their entries, and
// everything else falls back to a sorted-key msgpack encoding hashed with
// xxhash.
func valueHash64(v any) uint64 {
	if v == nil {
		return nilValueHash
	}
	switch x := v.(type) {
	case Hasher:
		return x.CacheHash()
	case string:
		return xxhash.Sum64String(x)
	case []byte:
		return xxhash.Sum64(x)
	case bool:
		if x {
			return 1231
		}
		return 1237
	case int:
		return uint64(x)
	case int8:
		return uint64(x)
	case int16:
		return uint64(x)
	case int32:
		return uint64(x)
	case int64:
		return uint64(x)
	case uint:
		return uint64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	case float32:
		return uint64(math.Float32bits(x))
	case float64:
		return math.Float64bits(x)
	case time.Duration:
		return uint64(x)
	case time.Time:
		return uint64(x.UnixNano())
	default:
		return encodedHash(v)
	}
}

// valueHash folds the 64-bit hash down to the 32-bit contribution used by
// Key's running hash.
func valueHash(v any) int32 {
	h := valueHash64(v)
	return int32(uint32(h) ^ uint32(h>>32))
}

func encodedHash(v any) uint64 {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Map {
		return mapHash(rv)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		// Unencodable values (funcs, channels) degrade to their type and
		// formatted representation.
		return xxhash.Sum64String(fmt.Sprintf("%T:%v", v, v))
	}
	return xxhash.Sum64(buf.Bytes())
}

// mapHash folds map entries with a commutative combiner. Go randomizes map
// iteration order, so any position-dependent scheme would hash equal maps
// differently between calls.
func mapHash(rv reflect.Value) uint64 {
	h := uint64(rv.Len())*0x9E3779B97F4A7C15 + 0x85EBCA77C2B2AE63
	for it := rv.MapRange(); it.Next(); {
		k := valueHash64(it.Key().Interface())
		v := valueHash64(it.Value().Interface())
		h ^= k*0xC2B2AE3D27D4EB4F + v
	}
	return h
}
