package terminal

import (
	"runtime"
	"sync"
	"weak"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/termprov/internal/shared/id"
)

// EventKind describes a registry change
type EventKind string

const (
	EventRegistered EventKind = "registered"
	EventReleased   EventKind = "released"
)

// Event is delivered to registry observers
type Event struct {
	Kind EventKind
	ID   id.TerminalID
}

type registryEntry struct {
	id     id.TerminalID
	handle weak.Pointer[Handle]
	// released stops the Done watcher
	released chan struct{}
}

// Registry tracks live terminal handles without owning them. Entries are
// released explicitly, when the session's Done channel closes, or when the
// owner drops the last reference to the handle.
type Registry struct {
	logger *zap.Logger

	mu        sync.Mutex
	entries   []registryEntry
	observers map[int]func(Event)
	nextObs   int
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:    logger,
		observers: make(map[int]func(Event)),
	}
}

// Register adds a weak reference to h
func (r *Registry) Register(h *Handle) {
	terminalID := h.ID
	released := make(chan struct{})

	r.mu.Lock()
	r.entries = append(r.entries, registryEntry{id: terminalID, handle: weak.Make(h), released: released})
	r.mu.Unlock()

	runtime.AddCleanup(h, func(terminalID id.TerminalID) {
		r.Release(terminalID)
	}, terminalID)

	var done <-chan struct{}
	if h.Session != nil {
		done = h.Session.Done()
	}
	if done != nil {
		go func() {
			select {
			case <-done:
				r.Release(terminalID)
			case <-released:
			}
		}()
	}

	r.notify(Event{Kind: EventRegistered, ID: terminalID})
}

// Release removes the entry for terminalID. It reports whether an entry was
// removed; releasing twice is a no-op.
func (r *Registry) Release(terminalID id.TerminalID) bool {
	r.mu.Lock()
	index := -1
	for i, entry := range r.entries {
		if entry.id == terminalID {
			index = i
			break
		}
	}
	if index < 0 {
		r.mu.Unlock()
		return false
	}
	close(r.entries[index].released)
	r.entries = append(r.entries[:index], r.entries[index+1:]...)
	r.mu.Unlock()

	r.logger.Debug("Released terminal handle", zap.String("id", terminalID.String()))
	r.notify(Event{Kind: EventReleased, ID: terminalID})
	return true
}

// List returns the handles that are still alive, in registration order
func (r *Registry) List() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	handles := make([]*Handle, 0, len(r.entries))
	for _, entry := range r.entries {
		if h := entry.handle.Value(); h != nil {
			handles = append(handles, h)
		}
	}
	return handles
}

// Get returns a live handle by ID
func (r *Registry) Get(terminalID id.TerminalID) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.entries {
		if entry.id == terminalID {
			h := entry.handle.Value()
			return h, h != nil
		}
	}
	return nil, false
}

// Len returns the number of registered entries, including ones whose handle
// has been collected but not yet cleaned up
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Subscribe calls fn for every later event. The returned func unsubscribes.
func (r *Registry) Subscribe(fn func(Event)) func() {
	r.mu.Lock()
	key := r.nextObs
	r.nextObs++
	r.observers[key] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.observers, key)
		r.mu.Unlock()
	}
}

func (r *Registry) notify(ev Event) {
	r.mu.Lock()
	observers := make([]func(Event), 0, len(r.observers))
	for _, fn := range r.observers {
		observers = append(observers, fn)
	}
	r.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}
