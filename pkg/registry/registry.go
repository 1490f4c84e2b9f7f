package registry

import (
	"sync"

	"github.com/aretw0/geofence/pkg/domain"
)

// Registry holds the regions believed to be registered with the monitoring service.
// It is written by the coordinator only; readers get immutable snapshots.
type Registry struct {
	mu      sync.RWMutex
	regions map[string]domain.Region
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		regions: make(map[string]domain.Region),
	}
}

// Upsert inserts the region, or replaces the one with the same ID.
func (r *Registry) Upsert(region domain.Region) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regions[region.ID] = region
}

// Remove deletes the region with the given ID. Removing an unknown ID is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.regions, id)
}

// Apply removes the given IDs and then upserts the additions as one step,
// so readers never observe the intermediate state.
func (r *Registry) Apply(removals []string, additions []domain.Region) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range removals {
		delete(r.regions, id)
	}
	for _, region := range additions {
		r.regions[region.ID] = region
	}
}

// Replace discards the current contents and stores regions instead.
func (r *Registry) Replace(regions []domain.Region) {
	next := make(map[string]domain.Region, len(regions))
	for _, region := range regions {
		next[region.ID] = region
	}
	r.mu.Lock()
	r.regions = next
	r.mu.Unlock()
}

// Get looks up a region by ID.
func (r *Registry) Get(id string) (domain.Region, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	region, ok := r.regions[id]
	return region, ok
}

// Len returns the number of regions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regions)
}

// Snapshot returns a copy of all regions sorted by ID.
// Later mutations of the registry do not affect the returned slice.
func (r *Registry) Snapshot() []domain.Region {
	r.mu.RLock()
	out := make([]domain.Region, 0, len(r.regions))
	for _, region := range r.regions {
		out = append(out, region)
	}
	r.mu.RUnlock()

	domain.SortRegions(out)
	return out
}

// IDs returns the sorted region identifiers.
func (r *Registry) IDs() []string {
	snap := r.Snapshot()
	ids := make([]string, len(snap))
	for i, region := range snap {
		ids[i] = region.ID
	}
	return ids
}
