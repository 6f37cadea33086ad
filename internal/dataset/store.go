package dataset

import (
	"errors"
	"fmt"
	"log"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when a sample id has no record in the store.
var ErrNotFound = errors.New("dataset: not found")

const (
	samplePrefix = "sample:"
	metaKey      = "meta:params"
)

// Store is a BadgerDB-backed map from sample id to Record, with the
// pipeline constants pinned in a metadata entry.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at dir and pins meta. If the store
// already holds metadata, every field must match.
func Open(dir string, meta Meta) (*Store, error) {
	return open(badger.DefaultOptions(dir), meta)
}

// OpenInMemory opens a store backed by an in-memory badger instance.
// Used by tests and one-shot runs.
func OpenInMemory(meta Meta) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), meta)
}

func open(opts badger.Options, meta Meta) (*Store, error) {
	db, err := badger.Open(opts.WithLogger(badgerLogger{}))
	if err != nil {
		return nil, fmt.Errorf("dataset: open store: %w", err)
	}
	s := &Store{db: db}
	if err := s.pinMeta(meta); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// pinMeta stores meta on first open and verifies it afterwards.
func (s *Store) pinMeta(meta Meta) error {
	existing, err := s.readMeta()
	if errors.Is(err, ErrNotFound) {
		data, err := msgpack.Marshal(meta)
		if err != nil {
			return fmt.Errorf("dataset: marshal meta: %w", err)
		}
		return s.db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(metaKey), data)
		})
	}
	if err != nil {
		return err
	}
	if *existing != meta {
		return fmt.Errorf("dataset: pipeline constants mismatch: store has %+v, caller has %+v", *existing, meta)
	}
	return nil
}

func (s *Store) readMeta() (*Meta, error) {
	var meta Meta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &meta)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read meta: %w", err)
	}
	return &meta, nil
}

// Meta returns the pinned pipeline constants.
func (s *Store) Meta() (*Meta, error) { return s.readMeta() }

// Put stores a record, overwriting any previous version.
func (s *Store) Put(rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("dataset: marshal record %s: %w", rec.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(samplePrefix+rec.ID), data)
	})
}

// Get retrieves a record by sample id.
func (s *Store) Get(id string) (*Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(samplePrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: sample %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: get %s: %w", id, err)
	}
	return &rec, nil
}

// IDs returns all sample ids in lexicographic key order.
func (s *Store) IDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(samplePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			key := it.Item().Key()
			ids = append(ids, string(key[len(samplePrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: list ids: %w", err)
	}
	return ids, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// badgerLogger routes badger errors through the standard logger and
// silences its info/debug chatter.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (badgerLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (badgerLogger) Infof(string, ...interface{})        {}
func (badgerLogger) Debugf(string, ...interface{})       {}
