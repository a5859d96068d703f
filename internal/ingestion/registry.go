package ingestion

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownDataset is returned when no adapter is registered for a dataset
// id. This is a configuration error: it surfaces to the caller before any
// run journal entry is opened.
var ErrUnknownDataset = errors.New("no adapter registered for dataset")

// Registry maps dataset_id to an adapter factory. It is populated once at
// startup and read-only at steady state; the mutex only guards the
// registration window.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a dataset id to an adapter factory. Registering the same id
// twice replaces the earlier factory; startup wiring decides, not the
// registry.
func (r *Registry) Register(datasetID string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[datasetID] = factory
}

// Get returns the factory for a dataset id.
func (r *Registry) Get(datasetID string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[datasetID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, datasetID)
	}

	return factory, nil
}

// List returns all registered dataset ids, sorted for stable output.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
