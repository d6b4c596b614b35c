package store

import "sync"

// keyPool provides reusable byte slices for read-path keys.
// Badger retains the key passed to txn.Set until commit, so writes must
// never use pooled buffers.
var keyPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 128)
	},
}

// lookupKey builds prefix+id in a pooled buffer. Callers must call
// releaseKey when done with it.
func lookupKey(prefix, id string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = append(buf[:0], prefix...)
	return append(buf, id...)
}

// releaseKey returns a key buffer to the pool. Oversized buffers are dropped.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}

// primaryKey builds an owned key for writes.
func primaryKey(prefix, id string) []byte {
	return []byte(prefix + id)
}

// indexPrefix is the key prefix shared by every entry of one index value.
func indexPrefix(prefix, name, value string) string {
	return prefix + "idx:" + name + ":" + value + ":"
}

// indexKey builds an owned index entry key. The id is the final segment.
func indexKey(prefix, name, value, id string) []byte {
	return []byte(indexPrefix(prefix, name, value) + id)
}
