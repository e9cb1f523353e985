package whisper

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Loader constructs the engine for one variant. Loads can take from
// seconds to minutes depending on the variant.
type Loader func(ctx context.Context, v Variant) (Engine, error)

// Registry is the process-wide model cache, keyed by variant. The first
// Get for a variant runs the loader once; every later Get returns the
// same handle. Nothing is ever evicted; a process restart is the only
// invalidation. Concurrent Gets for an uncached variant wait on the one
// in-flight construction instead of starting their own.
type Registry struct {
	loader  Loader
	mu      sync.Mutex
	entries map[Variant]*registryEntry
}

type registryEntry struct {
	ready  chan struct{}
	engine Engine
	err    error
}

func NewRegistry(loader Loader) *Registry {
	return &Registry{loader: loader, entries: make(map[Variant]*registryEntry)}
}

// Get returns the cached engine for the variant, loading it on first
// use. A failed load is not cached: a later Get for the same variant
// retries, and other variants are unaffected.
func (r *Registry) Get(ctx context.Context, v Variant) (Engine, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("unsupported model variant %q", v)
	}

	r.mu.Lock()
	e, ok := r.entries[v]
	if ok {
		r.mu.Unlock()
		select {
		case <-e.ready:
			return e.engine, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e = &registryEntry{ready: make(chan struct{})}
	r.entries[v] = e
	r.mu.Unlock()

	log.Info().Str("variant", string(v)).Msg("registry: loading model")
	e.engine, e.err = r.loader(ctx, v)
	if e.err != nil {
		r.mu.Lock()
		delete(r.entries, v)
		r.mu.Unlock()
		log.Error().Err(e.err).Str("variant", string(v)).Msg("registry: model load failed")
	} else {
		log.Info().Str("variant", string(v)).Msg("registry: model ready")
	}
	close(e.ready)
	return e.engine, e.err
}

// Close releases every loaded engine. Only meant for process shutdown.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for v, e := range r.entries {
		select {
		case <-e.ready:
			if e.engine != nil {
				_ = e.engine.Close()
			}
		default:
			// still loading; the handle is abandoned with the process
		}
		delete(r.entries, v)
	}
	return nil
}
