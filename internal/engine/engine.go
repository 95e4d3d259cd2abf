// Package engine executes commands against one emulated server instance.
//
// An Instance owns the key space of a named server: it loads it from a
// Persister on construction and saves it back on Close. Commands are
// resolved through a static table and run synchronously. The engine does no
// locking of its own; callers that share an Instance between goroutines must
// serialize access.
package engine

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/script"
	"github.com/mockredis/mockredis/internal/store"
)

// Persister loads and saves the key space of a named server.
type Persister interface {
	// Load returns the key space of name. Repeated loads of the same name
	// within a process return the same *store.Keyspace.
	Load(name string, now float64) (*store.Keyspace, error)
	LastSave(name string) time.Time
	Save(name string, ks *store.Keyspace, now float64) error
}

// Observer is notified after every command, including those run from scripts.
// Names missing from the command table are reported as "unknown".
type Observer interface {
	ObserveCommand(name string, took time.Duration, err error)
}

// Config configures a new Instance.
type Config struct {
	// Name identifies the server to the Persister. Defaults to "default".
	Name      string
	Persister Persister
	// Scripting enables EVAL and friends. Nil disables them.
	Scripting script.Runtime
	Clock     func() time.Time
	Seed      int64
	Logger    *log.Logger
	Observer  Observer
}

// Instance is one named emulated server.
type Instance struct {
	name      string
	store     *store.Store
	persister Persister
	bridge    *script.Bridge
	clock     func() time.Time
	rnd       *rand.Rand
	logger    *log.Logger
	observer  Observer

	startTime     time.Time
	totalCommands int64
	closed        bool
}

// New creates an Instance and loads its state.
func New(cfg Config) (*Instance, error) {
	in := &Instance{
		name:      cfg.Name,
		persister: cfg.Persister,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		observer:  cfg.Observer,
	}
	if in.name == "" {
		in.name = "default"
	}
	if in.persister == nil {
		in.persister = &transient{}
	}
	if in.clock == nil {
		in.clock = time.Now
	}
	if in.logger == nil {
		in.logger = log.Default()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	in.rnd = rand.New(rand.NewSource(seed))
	in.startTime = in.clock()

	ks, err := in.persister.Load(in.name, in.now())
	if err != nil {
		return nil, fmt.Errorf("engine: failed to load %q: %w", in.name, err)
	}
	in.store = store.New(ks, in.now)
	in.logger.Printf("engine: loaded %q (%d keys)", in.name, keyCount(ks))

	if cfg.Scripting != nil {
		b, err := script.NewBridge(cfg.Scripting, in)
		if err != nil {
			return nil, fmt.Errorf("engine: failed to start scripting: %w", err)
		}
		in.bridge = b
	}
	return in, nil
}

// Name returns the server name.
func (in *Instance) Name() string { return in.name }

// Store exposes the key space for read-only inspection by front ends.
func (in *Instance) Store() *store.Store { return in.store }

// now returns the clock in fractional unix seconds.
func (in *Instance) now() float64 {
	return float64(in.clock().UnixNano()) / 1e9
}

// Do runs one command. Command-level failures are returned as *reply.Error.
func (in *Instance) Do(name string, args ...string) (reply.Reply, error) {
	if in.closed {
		return reply.Reply{}, errors.New("engine: instance is closed")
	}
	start := time.Now()
	lname := strings.ToLower(name)
	r, err := in.dispatch(lname, name, args)
	in.totalCommands++
	if in.observer != nil {
		label := lname
		if _, ok := commands[lname]; !ok {
			label = "unknown"
		}
		in.observer.ObserveCommand(label, time.Since(start), err)
	}
	return r, err
}

func (in *Instance) dispatch(lname, name string, args []string) (reply.Reply, error) {
	cmd, ok := commands[lname]
	if !ok {
		return reply.Reply{}, reply.UnknownCommand(name)
	}
	if !cmd.arityOK(len(args) + 1) {
		return reply.Reply{}, reply.WrongArgs(cmd.name)
	}
	return cmd.run(in, args)
}

// Known reports whether name is in the command table.
func (in *Instance) Known(name string) bool {
	_, ok := commands[strings.ToLower(name)]
	return ok
}

// Dispatch runs a command on behalf of a script, through the same path as Do.
func (in *Instance) Dispatch(name string, args []string) (reply.Reply, error) {
	return in.Do(name, args...)
}

// Save persists the key space now.
func (in *Instance) Save() error {
	if err := in.persister.Save(in.name, in.store.Keyspace(), in.now()); err != nil {
		return fmt.Errorf("engine: failed to save %q: %w", in.name, err)
	}
	in.logger.Printf("engine: saved %q", in.name)
	return nil
}

// Reload saves the key space and loads it back.
func (in *Instance) Reload() error {
	if err := in.Save(); err != nil {
		return err
	}
	ks, err := in.persister.Load(in.name, in.now())
	if err != nil {
		return fmt.Errorf("engine: failed to reload %q: %w", in.name, err)
	}
	in.store.Reset(ks)
	in.logger.Printf("engine: reloaded %q (%d keys)", in.name, keyCount(ks))
	return nil
}

func keyCount(ks *store.Keyspace) int {
	n := 0
	for _, i := range ks.Indexes() {
		n += ks.DB(i).Len()
	}
	return n
}

// Close saves the key space and releases the scripting runtime.
func (in *Instance) Close() error {
	if in.closed {
		return nil
	}
	in.closed = true
	if in.bridge != nil {
		in.bridge.Close()
	}
	return in.Save()
}

// transient keeps state only for the lifetime of one Instance.
type transient struct {
	ks       *store.Keyspace
	lastSave time.Time
}

func (t *transient) Load(string, float64) (*store.Keyspace, error) {
	if t.ks == nil {
		t.ks = store.NewKeyspace()
	}
	return t.ks, nil
}

func (t *transient) LastSave(string) time.Time { return t.lastSave }

func (t *transient) Save(_ string, ks *store.Keyspace, now float64) error {
	t.ks = ks
	t.lastSave = time.Unix(0, int64(now*1e9))
	return nil
}

// Result is the outcome of one queued command.
type Result struct {
	Reply reply.Reply
	Err   error
}

// Pipeline queues commands and runs them in order on Exec.
type Pipeline struct {
	in     *Instance
	queued [][]string
}

// Pipeline starts an empty batch.
func (in *Instance) Pipeline() *Pipeline {
	return &Pipeline{in: in}
}

// Queue appends a command to the batch.
func (p *Pipeline) Queue(name string, args ...string) *Pipeline {
	p.queued = append(p.queued, append([]string{name}, args...))
	return p
}

// Len returns the number of queued commands.
func (p *Pipeline) Len() int { return len(p.queued) }

// Exec runs the queued commands and clears the batch. A failing command
// does not stop the ones after it.
func (p *Pipeline) Exec() []Result {
	out := make([]Result, len(p.queued))
	for i, c := range p.queued {
		r, err := p.in.Do(c[0], c[1:]...)
		out[i] = Result{Reply: r, Err: err}
	}
	p.queued = nil
	return out
}
