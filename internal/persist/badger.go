package persist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mockredis/mockredis/internal/store"
)

const (
	keyspacePrefix = "keyspace/"
	lastSavePrefix = "lastsave/"
)

// Badger keeps key space images in a Badger database. Badger's directory
// lock keeps other processes out for as long as the database is open.
type Badger struct {
	db *badger.DB

	mu     sync.Mutex
	loaded map[string]*store.Keyspace
}

// OpenBadger opens or creates a database in dir. An empty dir keeps the
// database in memory.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("persist: failed to open badger: %w", err)
	}
	return &Badger{db: db, loaded: make(map[string]*store.Keyspace)}, nil
}

func (b *Badger) Load(name string, now float64) (*store.Keyspace, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ks, ok := b.loaded[name]; ok {
		return ks, nil
	}

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyspacePrefix + name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	var ks *store.Keyspace
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		ks = store.NewKeyspace()
	case err != nil:
		return nil, fmt.Errorf("persist: read %s: %w", name, err)
	default:
		ks, err = decodeImage(data, now)
		if err != nil {
			log.Printf("persist: corrupt keyspace %s in badger: %v", name, err)
			return nil, fmt.Errorf("persist: decode %s: %w", name, err)
		}
	}
	b.loaded[name] = ks
	return ks, nil
}

func (b *Badger) LastSave(name string) time.Time {
	var at time.Time
	_ = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lastSavePrefix + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 8 {
				at = time.Unix(0, int64(binary.BigEndian.Uint64(val)))
			}
			return nil
		})
	})
	return at
}

func (b *Badger) Save(name string, ks *store.Keyspace, now float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stamp := binary.BigEndian.AppendUint64(nil, uint64(unixTime(now).UnixNano()))
	err := b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keyspacePrefix+name), encodeImage(ks)); err != nil {
			return err
		}
		return txn.Set([]byte(lastSavePrefix+name), stamp)
	})
	if err != nil {
		return fmt.Errorf("persist: write %s: %w", name, err)
	}
	b.loaded[name] = ks
	return nil
}

// Close closes the database.
func (b *Badger) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("persist: failed to close badger: %w", err)
	}
	return nil
}
