package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mockredis/mockredis/internal/store"
)

const (
	snapshotExt = ".mrks"
	lockExt     = ".lock"
)

// File stores one snapshot file per server name in a directory. The first
// Load or Save of a name takes an exclusive lock on it that is held until
// Close, so two processes never share one server's state.
type File struct {
	dir string

	mu      sync.Mutex
	servers map[string]*fileState
}

type fileState struct {
	lock     *os.File
	ks       *store.Keyspace
	lastSave time.Time
}

// NewFile creates a File that keeps snapshots in dir.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: mkdir %s: %w", dir, err)
	}
	return &File{dir: dir, servers: make(map[string]*fileState)}, nil
}

// Path returns the snapshot file of name.
func (f *File) Path(name string) string {
	return filepath.Join(f.dir, name+snapshotExt)
}

func (f *File) state(name string) (*fileState, error) {
	if st, ok := f.servers[name]; ok {
		return st, nil
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	lf, err := os.OpenFile(filepath.Join(f.dir, name+lockExt), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("persist: open lock %s: %w", name, err)
	}
	if err := lockFile(lf); err != nil {
		lf.Close()
		if errors.Is(err, ErrLocked) {
			return nil, err
		}
		return nil, fmt.Errorf("persist: lock %s: %w", name, err)
	}
	st := &fileState{lock: lf}
	f.servers[name] = st
	return st, nil
}

// Load reads the snapshot of name, or starts an empty key space if there is
// none yet.
func (f *File) Load(name string, now float64) (*store.Keyspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.state(name)
	if err != nil {
		return nil, err
	}
	if st.ks != nil {
		return st.ks, nil
	}

	path := f.Path(name)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		st.ks = store.NewKeyspace()
		return st.ks, nil
	case err != nil:
		return nil, fmt.Errorf("persist: read %s: %w", name, err)
	}

	ks, err := decodeImage(data, now)
	if err != nil {
		log.Printf("persist: corrupt snapshot %s: %v", path, err)
		return nil, fmt.Errorf("persist: decode %s: %w", name, err)
	}
	if info, err := os.Stat(path); err == nil {
		st.lastSave = info.ModTime()
	}
	st.ks = ks
	return ks, nil
}

func (f *File) LastSave(name string) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.servers[name]; ok {
		return st.lastSave
	}
	return time.Time{}
}

// Save writes the snapshot of name through a temporary file so a crash
// never leaves a partial image behind.
func (f *File) Save(name string, ks *store.Keyspace, now float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.state(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("persist: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(encodeImage(ks)); err != nil {
		tmp.Close()
		return fmt.Errorf("persist: write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("persist: sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), f.Path(name)); err != nil {
		return fmt.Errorf("persist: rename %s: %w", name, err)
	}

	st.ks = ks
	st.lastSave = unixTime(now)
	return nil
}

// Close releases every lock taken by f. Loaded key spaces are forgotten.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for name, st := range f.servers {
		if err := unlockFile(st.lock); err != nil {
			errs = append(errs, fmt.Errorf("persist: unlock %s: %w", name, err))
		}
		st.lock.Close()
		delete(f.servers, name)
	}
	return errors.Join(errs...)
}
