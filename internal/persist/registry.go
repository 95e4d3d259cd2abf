package persist

import (
	"sync"
	"time"

	"github.com/mockredis/mockredis/internal/store"
)

// Registry keeps key spaces in memory for as long as the Registry lives.
// Instances created with the same name against one Registry share state.
type Registry struct {
	mu      sync.Mutex
	servers map[string]*registered
}

type registered struct {
	ks       *store.Keyspace
	lastSave time.Time
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{servers: make(map[string]*registered)}
}

func (r *Registry) entry(name string) *registered {
	e, ok := r.servers[name]
	if !ok {
		e = &registered{ks: store.NewKeyspace()}
		r.servers[name] = e
	}
	return e
}

func (r *Registry) Load(name string, _ float64) (*store.Keyspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entry(name).ks, nil
}

func (r *Registry) LastSave(name string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.servers[name]; ok {
		return e.lastSave
	}
	return time.Time{}
}

func (r *Registry) Save(name string, ks *store.Keyspace, now float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entry(name)
	e.ks = ks
	e.lastSave = unixTime(now)
	return nil
}

// Drop forgets the state of name.
func (r *Registry) Drop(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.servers, name)
}
