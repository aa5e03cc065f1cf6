package storage

import (
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
)

// ErrKeyNotFound marks reads of keys that were never written or were deleted.
var ErrKeyNotFound = errors.New("storage: key not found")

// Database is a generic interface for the key-value store backing the
// settlement core. Keeping the surface small lets tests run against the
// in-memory implementation while the daemon uses LevelDB.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	Close() error
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{
		data: make(map[string][]byte),
	}
}

func (db *MemDB) Put(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

func (db *MemDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.data, string(key))
	return nil
}

func (db *MemDB) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[string(key)]
	return ok, nil
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() error { return nil }

// --- Persistent DB ---

// LevelDB is a persistent key-value store backed by goleveldb.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Put(key []byte, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *LevelDB) Has(key []byte) (bool, error) {
	return l.db.Has(key, nil)
}

// Close gracefully shuts down the underlying LevelDB handle.
func (l *LevelDB) Close() error {
	return l.db.Close()
}
