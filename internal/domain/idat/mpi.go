package idat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrIdatNotFound     = errors.New("idat not found")
	ErrUnknownClient    = errors.New("unknown master patient index client")
	ErrClientRegistered = errors.New("master patient index client already registered")
)

// MasterPatientIndexClient fetches the IDAT of a subject by its local EHR id.
type MasterPatientIndexClient interface {
	FetchIdat(ctx context.Context, ehrID string) (*Idat, error)
}

// Factory creates a client. It is called once per Registry.New.
type Factory func(logger zerolog.Logger) (MasterPatientIndexClient, error)

// Registry maps configured client names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in "stub" client.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	_ = r.Register(StubClientName, func(logger zerolog.Logger) (MasterPatientIndexClient, error) {
		return NewStubClient(logger), nil
	})
	return r
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %s", ErrClientRegistered, name)
	}
	r.factories[name] = f
	return nil
}

// New creates the client registered under name.
func (r *Registry) New(name string, logger zerolog.Logger) (MasterPatientIndexClient, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownClient, name, r.Names())
	}
	return f(logger.With().Str("mpi_client", name).Logger())
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
