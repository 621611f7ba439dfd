package cache

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// SerializedCache stores msgpack-encoded copies of values so that one
// caller mutating a returned result cannot corrupt another caller's view.
// It is only worth paying for on read-write caches; read-only caches can
// safely share a single instance.
//
// Values must round-trip through msgpack. The default map-row results
// produced by the executor do; arbitrary structs decode back as generic
// maps, so configure read-only caching for typed results instead.
type SerializedCache struct {
	delegate Cache
}

// NewSerializedCache wraps delegate with serialization on put and get.
func NewSerializedCache(delegate Cache) *SerializedCache {
	return &SerializedCache{delegate: delegate}
}

func (c *SerializedCache) ID() string { return c.delegate.ID() }

func (c *SerializedCache) Get(key string) (any, bool) {
	v, ok := c.delegate.Get(key)
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	if !ok {
		panic(fmt.Sprintf("cache %s: non-serialized entry for key %s", c.ID(), key))
	}
	var out any
	if err := msgpack.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("cache %s: decoding entry for key %s: %v", c.ID(), key, err))
	}
	return out, true
}

func (c *SerializedCache) Put(key string, value any) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("cache %s: encoding entry for key %s: %v", c.ID(), key, err))
	}
	c.delegate.Put(key, data)
}

func (c *SerializedCache) Remove(key string) { c.delegate.Remove(key) }
func (c *SerializedCache) Clear()            { c.delegate.Clear() }
func (c *SerializedCache) Size() int         { return c.delegate.Size() }
