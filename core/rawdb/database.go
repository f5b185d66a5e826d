// Package rawdb provides the low-level key-value store behind the proof
// admission state: store interfaces, an in-memory backend for tests, a Pebble
// backend for persistent deployments and the prefix-based key schema.
//
// Each record type uses a distinct single-byte key prefix to avoid
// collisions. Values are opaque byte strings; callers RLP-encode records.
package rawdb

import "errors"

var (
	ErrNotFound = errors.New("rawdb: not found")
	ErrClosed   = errors.New("rawdb: database closed")
)

// KeyValueReader wraps the Has and Get methods of a backing data store.
type KeyValueReader interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter wraps the Put and Delete methods of a backing data store.
type KeyValueWriter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// KeyValueStore combines read and write access to a backing data store.
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter
	Close() error
}

// Iterator iterates over a database's key/value pairs in ascending key order.
// Key and Value are only valid until the next call to Next.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// Iteratee wraps the NewIterator method of a backing data store.
type Iteratee interface {
	NewIterator(prefix []byte) Iterator
}

// Batch is a write-only database that commits changes atomically. Writes are
// invisible to readers until Write returns.
type Batch interface {
	KeyValueWriter
	ValueSize() int
	Write() error
	Reset()
}

// Batcher wraps the NewBatch method of a backing data store.
type Batcher interface {
	NewBatch() Batch
}

// Database is the full database interface combining all capabilities.
type Database interface {
	KeyValueStore
	Iteratee
	Batcher
}
