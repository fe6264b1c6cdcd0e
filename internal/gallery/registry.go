package gallery

import (
	"sync"

	"go-gallery-fetch/internal/models"
)

// registryEntry pairs a running coordinator with the two refcounts
// described in §3's "Registry entry" and §4.1.
type registryEntry struct {
	coord       *Coordinator
	readRef     int
	downloadRef int
}

// Registry tracks one live Coordinator per gallery id, starting and
// stopping coordinators as refcounts go to and from zero (§4.1).
type Registry struct {
	mu      sync.Mutex
	entries map[uint64]*registryEntry

	// NewDeps builds the Deps for a freshly constructed coordinator.
	// Injected so the registry stays independent of how a particular
	// deployment wires its store, parsers and HTTP client.
	NewDeps func(identity models.GalleryIdentity) Deps
}

// NewRegistry constructs an empty registry. newDeps is called once per
// gallery id, the first time it is acquired.
func NewRegistry(newDeps func(identity models.GalleryIdentity) Deps) *Registry {
	return &Registry{
		entries: make(map[uint64]*registryEntry),
		NewDeps: newDeps,
	}
}

func deriveMode(downloadRef int) models.Mode {
	if downloadRef > 0 {
		return models.ModeDownload
	}
	return models.ModeRead
}

// Acquire looks up or creates the coordinator for identity.GID,
// increments the refcount for mode, and (re)derives the coordinator's
// mode from the resulting refcounts (§4.1).
func (r *Registry) Acquire(identity models.GalleryIdentity, mode models.Mode) (*Coordinator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[identity.GID]
	if !ok {
		e = &registryEntry{coord: New(identity, r.NewDeps(identity))}
		r.entries[identity.GID] = e
	}

	if mode == models.ModeDownload && e.downloadRef >= 1 {
		return nil, ErrInvalidState
	}

	if mode == models.ModeDownload {
		e.downloadRef++
	} else {
		e.readRef++
	}

	if !ok {
		e.coord.Start(deriveMode(e.downloadRef))
	} else {
		e.coord.setMode(deriveMode(e.downloadRef))
	}

	return e.coord, nil
}

// Release decrements the refcount for mode and stops+unregisters the
// coordinator once both refcounts reach zero (§4.1). It fails with
// ErrInvalidState if the refcount would go negative.
func (r *Registry) Release(identity models.GalleryIdentity, mode models.Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[identity.GID]
	if !ok {
		return ErrInvalidState
	}

	if mode == models.ModeDownload {
		if e.downloadRef <= 0 {
			return ErrInvalidState
		}
		e.downloadRef--
	} else {
		if e.readRef <= 0 {
			return ErrInvalidState
		}
		e.readRef--
	}

	if e.readRef == 0 && e.downloadRef == 0 {
		delete(r.entries, identity.GID)
		e.coord.Stop()
		return nil
	}

	e.coord.setMode(deriveMode(e.downloadRef))
	return nil
}
