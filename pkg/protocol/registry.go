package protocol

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry tracks the handler instances that are currently active, one per
// (protocol, role, address). It is thread-safe and can be used concurrently.
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// Registry errors.
const (
	// ErrNilHandler is returned when attempting to register a nil handler.
	ErrNilHandler = Error("handler cannot be nil")

	// ErrEmptyHandlerID is returned when a handler has an empty ID.
	ErrEmptyHandlerID = Error("handler ID cannot be empty")

	// ErrHandlerExists is returned when registering a handler with an ID
	// that is already registered.
	ErrHandlerExists = Error("handler with this ID already exists")

	// ErrHandlerNotFound is returned when looking up an unknown handler ID.
	ErrHandlerNotFound = Error("handler not found")
)

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler to the registry.
// Returns an error if a handler with the same ID already exists.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return ErrNilHandler
	}

	meta := h.Metadata()
	if meta.ID == "" {
		return ErrEmptyHandlerID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[meta.ID]; exists {
		return fmt.Errorf("%w: %s", ErrHandlerExists, meta.ID)
	}

	r.handlers[meta.ID] = h
	return nil
}

// Unregister removes a handler from the registry.
// Returns an error if the handler is not found.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[id]; !exists {
		return fmt.Errorf("%w: %s", ErrHandlerNotFound, id)
	}

	delete(r.handlers, id)
	return nil
}

// Get returns a handler by ID.
func (r *Registry) Get(id string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, exists := r.handlers[id]
	return h, exists
}

// List returns all registered handlers ordered by ID.
func (r *Registry) List() []Handler {
	r.mu.RLock()
	handlers := make([]Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	r.mu.RUnlock()

	sort.Slice(handlers, func(i, j int) bool {
		return handlers[i].Metadata().ID < handlers[j].Metadata().ID
	})
	return handlers
}

// ListByProtocol returns all handlers of a specific protocol type.
func (r *Registry) ListByProtocol(proto Protocol) []Handler {
	var handlers []Handler
	for _, h := range r.List() {
		if h.Metadata().Protocol == proto {
			handlers = append(handlers, h)
		}
	}
	return handlers
}

// Count returns the number of registered handlers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// StopAll stops every registered handler, collecting all failures.
func (r *Registry) StopAll(ctx context.Context) error {
	var errs []error
	for _, h := range r.List() {
		if err := h.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop handler %s: %w", h.Metadata().ID, err))
		}
	}
	return errors.Join(errs...)
}
