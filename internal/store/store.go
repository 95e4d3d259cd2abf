// Package store provides the typed in-memory key space: numbered databases of
// entries, lazy expiration, and the liveness rule that hides empty values.
//
// The store does no locking. A single caller drives it at a time.
package store

import (
	"math"
	"math/rand"
	"sort"

	"github.com/mockredis/mockredis/internal/reply"
)

// Kind is the type tag of an Entry.
type Kind byte

const (
	KindString Kind = iota + 1
	KindList
	KindSet
	KindHash
	KindSortedSet
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindHash:
		return "hash"
	case KindSortedSet:
		return "zset"
	}
	return "none"
}

// ParseKind maps a TYPE name back to a Kind.
func ParseKind(name string) (Kind, bool) {
	for k := KindString; k <= KindSortedSet; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// NoExpiry is the expireAt sentinel of entries that never expire.
const NoExpiry = -1.0

// Value is the payload of an Entry.
type Value interface {
	Kind() Kind
	// Empty reports whether the value counts as absent.
	Empty() bool
	Clone() Value
}

// Entry is the typed, TTL-bearing value stored under one key.
type Entry struct {
	Value    Value
	ExpireAt float64 // absolute unix seconds, or NoExpiry
}

// HasExpire reports whether the entry carries a TTL.
func (e *Entry) HasExpire() bool { return e.ExpireAt != NoExpiry }

func (e *Entry) expired(now float64) bool {
	return e.ExpireAt != NoExpiry && e.ExpireAt <= now
}

// Database maps keys to entries.
type Database struct {
	entries map[string]*Entry
}

// NewDatabase creates an empty database.
func NewDatabase() *Database {
	return &Database{entries: make(map[string]*Entry)}
}

// Len returns the number of stored entries, including ones not yet lazily expired.
func (d *Database) Len() int { return len(d.entries) }

// Put stores e under key without any liveness checks. Used when loading state.
func (d *Database) Put(key string, e *Entry) { d.entries[key] = e }

// Each calls fn for every stored entry in key order.
func (d *Database) Each(fn func(key string, e *Entry)) {
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fn(k, d.entries[k])
	}
}

// Keyspace is the set of databases of one server, indexed by number.
// Databases are created on first use and never removed.
type Keyspace struct {
	dbs map[int]*Database
}

// NewKeyspace creates an empty keyspace.
func NewKeyspace() *Keyspace {
	return &Keyspace{dbs: make(map[int]*Database)}
}

// DB returns database i, creating it when first seen.
func (ks *Keyspace) DB(i int) *Database {
	db, ok := ks.dbs[i]
	if !ok {
		db = NewDatabase()
		ks.dbs[i] = db
	}
	return db
}

// Indexes returns the known database indexes in ascending order.
func (ks *Keyspace) Indexes() []int {
	out := make([]int, 0, len(ks.dbs))
	for i := range ks.dbs {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Swap exchanges the contents of databases i and j.
func (ks *Keyspace) Swap(i, j int) {
	a, b := ks.DB(i), ks.DB(j)
	a.entries, b.entries = b.entries, a.entries
}

// Store is the command-facing view of a Keyspace with one selected database.
type Store struct {
	ks    *Keyspace
	index int
	db    *Database
	now   func() float64
}

// New creates a Store over ks. now returns the current time in unix seconds.
func New(ks *Keyspace, now func() float64) *Store {
	return &Store{ks: ks, db: ks.DB(0), now: now}
}

// Keyspace returns the underlying keyspace.
func (s *Store) Keyspace() *Keyspace { return s.ks }

// Reset points the store at a new keyspace, keeping the selected index.
func (s *Store) Reset(ks *Keyspace) {
	s.ks = ks
	s.db = ks.DB(s.index)
}

// Now returns the store clock in unix seconds.
func (s *Store) Now() float64 { return s.now() }

// Select makes database i current.
func (s *Store) Select(i int) {
	s.index = i
	s.db = s.ks.DB(i)
}

// Index returns the selected database index.
func (s *Store) Index() int { return s.index }

// live returns the entry of key in db after applying lazy expiration and
// the liveness rule: expired or empty entries are deleted on touch.
func (s *Store) live(db *Database, key string) (*Entry, bool) {
	e, ok := db.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(s.now()) || e.Value == nil || e.Value.Empty() {
		delete(db.entries, key)
		return nil, false
	}
	return e, true
}

// Get returns the live entry stored under key.
func (s *Store) Get(key string) (*Entry, bool) {
	return s.live(s.db, key)
}

// Exists reports whether key holds a live entry.
func (s *Store) Exists(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Type returns the kind of key, or 0 if it is absent.
func (s *Store) Type(key string) Kind {
	e, ok := s.Get(key)
	if !ok {
		return 0
	}
	return e.Value.Kind()
}

// Lookup returns the value of key, nil when absent, or a wrong type error
// when the key holds a different kind.
func (s *Store) Lookup(key string, kind Kind) (Value, error) {
	e, ok := s.Get(key)
	if !ok {
		return nil, nil
	}
	if e.Value.Kind() != kind {
		return nil, reply.ErrWrongType
	}
	return e.Value, nil
}

// LookupWeak is Lookup that treats a kind mismatch as absence.
func (s *Store) LookupWeak(key string, kind Kind) Value {
	v, err := s.Lookup(key, kind)
	if err != nil {
		return nil
	}
	return v
}

// StringOf returns the string at key, or nil when absent.
func (s *Store) StringOf(key string) (String, error) {
	v, err := s.Lookup(key, KindString)
	if err != nil || v == nil {
		return nil, err
	}
	return v.(String), nil
}

// ListOf returns the list at key, or a new empty list when absent.
// The empty default is not stored until Put is called with content.
func (s *Store) ListOf(key string) (*List, error) {
	v, err := s.Lookup(key, KindList)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return NewList(), nil
	}
	return v.(*List), nil
}

// SetOf returns the set at key, or a new empty set when absent.
func (s *Store) SetOf(key string) (*Set, error) {
	v, err := s.Lookup(key, KindSet)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return NewSet(), nil
	}
	return v.(*Set), nil
}

// HashOf returns the hash at key, or a new empty hash when absent.
func (s *Store) HashOf(key string) (*Hash, error) {
	v, err := s.Lookup(key, KindHash)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return NewHash(), nil
	}
	return v.(*Hash), nil
}

// ZSetOf returns the sorted set at key, or a new empty one when absent.
func (s *Store) ZSetOf(key string) (*SortedSet, error) {
	v, err := s.Lookup(key, KindSortedSet)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return NewSortedSet(), nil
	}
	return v.(*SortedSet), nil
}

// Put stores v under key and keeps any existing TTL. An empty value deletes the key.
func (s *Store) Put(key string, v Value) {
	if v == nil || v.Empty() {
		delete(s.db.entries, key)
		return
	}
	if z, ok := v.(*SortedSet); ok {
		z.reorder()
	}
	if e, ok := s.live(s.db, key); ok {
		e.Value = v
		return
	}
	s.db.entries[key] = &Entry{Value: v, ExpireAt: NoExpiry}
}

// Write replaces key with v and the given absolute expiry (or NoExpiry).
func (s *Store) Write(key string, v Value, expireAt float64) {
	if v == nil || v.Empty() {
		delete(s.db.entries, key)
		return
	}
	if z, ok := v.(*SortedSet); ok {
		z.reorder()
	}
	s.db.entries[key] = &Entry{Value: v, ExpireAt: expireAt}
	if expireAt != NoExpiry && expireAt <= s.now() {
		delete(s.db.entries, key)
	}
}

// Delete removes the given keys and returns how many were live.
func (s *Store) Delete(keys ...string) int {
	n := 0
	for _, k := range keys {
		if _, ok := s.Get(k); ok {
			delete(s.db.entries, k)
			n++
		}
	}
	return n
}

// Rename moves src to dst, overwriting dst and keeping the TTL.
func (s *Store) Rename(src, dst string) error {
	e, ok := s.Get(src)
	if !ok {
		return reply.ErrNoSuchKey
	}
	if src == dst {
		return nil
	}
	delete(s.db.entries, src)
	s.db.entries[dst] = e
	return nil
}

// Move transfers key to database dest. It fails when dest already holds the key.
func (s *Store) Move(key string, dest int) bool {
	e, ok := s.Get(key)
	if !ok {
		return false
	}
	target := s.ks.DB(dest)
	if _, exists := s.live(target, key); exists {
		return false
	}
	delete(s.db.entries, key)
	target.entries[key] = e
	return true
}

// SwapDatabases exchanges databases i and j.
func (s *Store) SwapDatabases(i, j int) {
	s.ks.Swap(i, j)
	s.db = s.ks.DB(s.index)
}

// Expire sets the absolute expiry of key. A time in the past deletes the key.
func (s *Store) Expire(key string, at float64) bool {
	e, ok := s.Get(key)
	if !ok {
		return false
	}
	e.ExpireAt = at
	s.live(s.db, key)
	return true
}

// Persist removes the TTL of key.
func (s *Store) Persist(key string) bool {
	e, ok := s.Get(key)
	if !ok || !e.HasExpire() {
		return false
	}
	e.ExpireAt = NoExpiry
	return true
}

// TTL returns the remaining seconds of key, -2 if absent, or NoExpiry.
func (s *Store) TTL(key string) float64 {
	e, ok := s.Get(key)
	if !ok {
		return -2
	}
	if !e.HasExpire() {
		return NoExpiry
	}
	return math.Max(e.ExpireAt-s.now(), 0)
}

// Size returns the number of live keys in the selected database.
func (s *Store) Size() int {
	return len(s.Keys(""))
}

// Keys returns the live keys matching a glob pattern, sorted. An empty
// pattern matches everything.
func (s *Store) Keys(pattern string) []string {
	m := compileGlob(pattern)
	out := make([]string, 0, len(s.db.entries))
	for k := range s.db.entries {
		if _, ok := s.live(s.db, k); ok && m.match(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// RandomKey returns a random live key.
func (s *Store) RandomKey(rnd *rand.Rand) (string, bool) {
	keys := s.Keys("")
	if len(keys) == 0 {
		return "", false
	}
	return keys[rnd.Intn(len(keys))], true
}

// Flush empties the selected database.
func (s *Store) Flush() {
	s.db.entries = make(map[string]*Entry)
}

// FlushAll empties every database.
func (s *Store) FlushAll() {
	for _, i := range s.ks.Indexes() {
		s.ks.DB(i).entries = make(map[string]*Entry)
	}
}

// Pair is one field/value or member/score element of a scan reply.
type Pair struct {
	Key   string
	Value []byte
}

// Scan returns all keys matching pattern, optionally restricted to one kind.
// The whole key space is returned in one pass.
func (s *Store) Scan(pattern string, kind Kind) []string {
	keys := s.Keys(pattern)
	if kind == 0 {
		return keys
	}
	out := keys[:0]
	for _, k := range keys {
		if s.Type(k) == kind {
			out = append(out, k)
		}
	}
	return out
}

// HScan returns the field/value pairs of a hash whose field matches pattern.
func (s *Store) HScan(key, pattern string) ([]Pair, error) {
	h, err := s.HashOf(key)
	if err != nil {
		return nil, err
	}
	m := compileGlob(pattern)
	var out []Pair
	for _, f := range h.Fields() {
		if m.match(f) {
			v, _ := h.Get(f)
			out = append(out, Pair{Key: f, Value: v})
		}
	}
	return out, nil
}

// SScan returns the members of a set matching pattern.
func (s *Store) SScan(key, pattern string) ([]string, error) {
	set, err := s.SetOf(key)
	if err != nil {
		return nil, err
	}
	m := compileGlob(pattern)
	var out []string
	for _, member := range set.Members() {
		if m.match(member) {
			out = append(out, member)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ZScan returns the member/score pairs of a sorted set matching pattern, in rank order.
func (s *Store) ZScan(key, pattern string) ([]Pair, error) {
	z, err := s.ZSetOf(key)
	if err != nil {
		return nil, err
	}
	m := compileGlob(pattern)
	var out []Pair
	for _, sm := range z.Members() {
		if m.match(sm.Member) {
			out = append(out, Pair{Key: sm.Member, Value: []byte(reply.FormatFloat(sm.Score))})
		}
	}
	return out, nil
}
