package rawdb

import (
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

const (
	// defaultSyncInterval is the default interval between WAL syncs.
	defaultSyncInterval = 100 * time.Millisecond
)

// PebbleOptions tunes a PebbleDB.
type PebbleOptions struct {
	CacheSize    int64         // block cache in bytes
	MemTableSize uint64        // memtable size in bytes
	SyncInterval time.Duration // WAL sync period; zero uses the default
	SyncWrites   bool          // fsync every batch instead of syncing periodically
}

// DefaultPebbleOptions returns options suited to the admission state, which
// is small and write-light.
func DefaultPebbleOptions() PebbleOptions {
	return PebbleOptions{
		CacheSize:    32 << 20,
		MemTableSize: 16 << 20,
		SyncInterval: defaultSyncInterval,
	}
}

// PebbleDB is a persistent Database backed by Pebble. Unless SyncWrites is
// set, writes are NoSync and a background goroutine syncs the WAL
// periodically; Close performs a final sync.
type PebbleDB struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	stopSync  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// OpenPebble opens (creating if needed) a Pebble database at path.
func OpenPebble(path string, opts PebbleOptions) (*PebbleDB, error) {
	cache := pebble.NewCache(opts.CacheSize)
	defer cache.Unref()

	db, err := pebble.Open(path, &pebble.Options{
		Cache:                       cache,
		MemTableSize:                opts.MemTableSize,
		MemTableStopWritesThreshold: 2,
	})
	if err != nil {
		return nil, err
	}

	p := &PebbleDB{
		db:        db,
		writeOpts: pebble.NoSync,
		stopSync:  make(chan struct{}),
	}
	if opts.SyncWrites {
		p.writeOpts = pebble.Sync
	} else {
		interval := opts.SyncInterval
		if interval <= 0 {
			interval = defaultSyncInterval
		}
		p.startSyncLoop(interval)
	}
	return p, nil
}

func (p *PebbleDB) Has(key []byte) (bool, error) {
	_, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

func (p *PebbleDB) Get(key []byte) ([]byte, error) {
	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// The value is invalid after closer.Close().
	return append([]byte{}, value...), nil
}

func (p *PebbleDB) Put(key, value []byte) error {
	return p.db.Set(key, value, p.writeOpts)
}

func (p *PebbleDB) Delete(key []byte) error {
	return p.db.Delete(key, p.writeOpts)
}

// NewBatch creates a batch that commits atomically through Pebble.
func (p *PebbleDB) NewBatch() Batch {
	return &pebbleBatch{db: p, b: p.db.NewBatch()}
}

// NewIterator returns an iterator over keys with the given prefix, using
// Pebble's iterator bounds for the prefix scan.
func (p *PebbleDB) NewIterator(prefix []byte) Iterator {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return &pebbleIterator{err: err}
	}
	return &pebbleIterator{iter: iter}
}

// Close stops the sync goroutine, syncs the WAL and closes the database.
func (p *PebbleDB) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.stopSync)
		p.wg.Wait()
		if err = p.sync(); err != nil {
			p.db.Close()
			return
		}
		err = p.db.Close()
	})
	return err
}

func (p *PebbleDB) startSyncLoop(interval time.Duration) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = p.sync()
			case <-p.stopSync:
				return
			}
		}
	}()
}

// sync forces a WAL sync to disk.
func (p *PebbleDB) sync() error {
	return p.db.LogData(nil, pebble.Sync)
}

// prefixUpperBound computes the exclusive upper bound for a prefix scan.
// Returns nil (unbounded) for an empty or all-0xff prefix.
func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte{}, prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}
	return nil
}

// --- Batch ---

type pebbleBatch struct {
	db   *PebbleDB
	b    *pebble.Batch
	size int
}

func (b *pebbleBatch) Put(key, value []byte) error {
	b.size += len(key) + len(value)
	return b.b.Set(key, value, nil)
}

func (b *pebbleBatch) Delete(key []byte) error {
	b.size += len(key)
	return b.b.Delete(key, nil)
}

func (b *pebbleBatch) ValueSize() int { return b.size }

func (b *pebbleBatch) Write() error {
	return b.b.Commit(b.db.writeOpts)
}

func (b *pebbleBatch) Reset() {
	b.b.Reset()
	b.size = 0
}

// --- Iterator ---

type pebbleIterator struct {
	iter  *pebble.Iterator
	moved bool
	err   error
}

func (it *pebbleIterator) Next() bool {
	if it.iter == nil {
		return false
	}
	if !it.moved {
		it.moved = true
		return it.iter.First()
	}
	return it.iter.Next()
}

func (it *pebbleIterator) Key() []byte {
	if it.iter == nil || !it.iter.Valid() {
		return nil
	}
	return it.iter.Key()
}

func (it *pebbleIterator) Value() []byte {
	if it.iter == nil || !it.iter.Valid() {
		return nil
	}
	v, err := it.iter.ValueAndErr()
	if err != nil {
		it.err = err
		return nil
	}
	return v
}

func (it *pebbleIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	if it.iter != nil {
		return it.iter.Error()
	}
	return nil
}

func (it *pebbleIterator) Release() {
	if it.iter != nil {
		it.iter.Close()
		it.iter = nil
	}
}
