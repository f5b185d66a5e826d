package rawdb

import (
	"bytes"
	"maps"
	"slices"
	"strings"
	"sync"
)

// MemoryDB is a Database held in a map. It backs tests and mock deployments
// of the admission state. Values are cloned on every boundary so callers
// cannot alias stored bytes.
type MemoryDB struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{data: make(map[string][]byte)}
}

func (db *MemoryDB) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return false, ErrClosed
	}
	_, ok := db.data[string(key)]
	return ok, nil
}

func (db *MemoryDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, ErrClosed
	}
	v, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (db *MemoryDB) Put(key, value []byte) error {
	return db.apply(map[string][]byte{string(key): cloneValue(value)})
}

func (db *MemoryDB) Delete(key []byte) error {
	return db.apply(map[string][]byte{string(key): nil})
}

// apply writes every entry of ops under one lock. A nil value deletes.
func (db *MemoryDB) apply(ops map[string][]byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	for k, v := range ops {
		if v == nil {
			delete(db.data, k)
		} else {
			db.data[k] = v
		}
	}
	return nil
}

// Close drops the contents. Later calls fail with ErrClosed.
func (db *MemoryDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data = nil
	db.closed = true
	return nil
}

// Len reports the number of stored keys. Tests use it to check that a
// rejected submission left the store untouched.
func (db *MemoryDB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.data)
}

func (db *MemoryDB) NewBatch() Batch {
	return &memBatch{db: db, ops: make(map[string][]byte)}
}

// NewIterator walks a snapshot of the keys under prefix taken at call time.
func (db *MemoryDB) NewIterator(prefix []byte) Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()

	keys := slices.Sorted(maps.Keys(db.data))
	p := string(prefix)
	it := &memIterator{pos: -1}
	for _, k := range keys {
		if strings.HasPrefix(k, p) {
			it.keys = append(it.keys, []byte(k))
			it.values = append(it.values, bytes.Clone(db.data[k]))
		}
	}
	return it
}

// cloneValue copies v and maps a nil value to an empty one so it is never
// mistaken for a deletion.
func cloneValue(v []byte) []byte {
	if v == nil {
		return []byte{}
	}
	return bytes.Clone(v)
}

// memBatch buffers writes by key; a later write to the same key replaces
// the earlier one.
type memBatch struct {
	db   *MemoryDB
	ops  map[string][]byte
	size int
}

func (b *memBatch) Put(key, value []byte) error {
	b.ops[string(key)] = cloneValue(value)
	b.size += len(key) + len(value)
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	b.ops[string(key)] = nil
	b.size += len(key)
	return nil
}

func (b *memBatch) ValueSize() int { return b.size }

func (b *memBatch) Write() error { return b.db.apply(b.ops) }

func (b *memBatch) Reset() {
	clear(b.ops)
	b.size = 0
}

type memIterator struct {
	keys   [][]byte
	values [][]byte
	pos    int
}

func (it *memIterator) Next() bool {
	if it.pos < len(it.keys) {
		it.pos++
	}
	return it.pos < len(it.keys)
}

func (it *memIterator) valid() bool { return it.pos >= 0 && it.pos < len(it.keys) }

func (it *memIterator) Key() []byte {
	if !it.valid() {
		return nil
	}
	return it.keys[it.pos]
}

func (it *memIterator) Value() []byte {
	if !it.valid() {
		return nil
	}
	return it.values[it.pos]
}

func (it *memIterator) Error() error { return nil }

func (it *memIterator) Release() {
	it.keys, it.values = nil, nil
}
