package datastore

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	apperrors "github.com/OliverPistillo/Doflow-PaaS-sub003/internal/errors"
)

const defaultSchema = "public"

// Handle is one live data-store connection pool bound to a tenant
// schema. Handles are owned by the Registry and shared by every
// request for that schema; they live for the process lifetime.
type Handle struct {
	Schema string
	Pool   *pgxpool.Pool
}

// OpenFunc establishes a pool for a schema. Injectable for testing.
type OpenFunc func(ctx context.Context, schema string) (*Handle, error)

// Registry lazily creates and caches one Handle per schema.
// Establishment is serialized per schema: concurrent first-access for
// a cold schema results in exactly one underlying connection. The
// cache is grow-only; handles are never evicted during normal
// operation.
type Registry struct {
	open          OpenFunc
	defaultSchema string

	lock    sync.Mutex
	entries map[string]*entry
}

// entry tracks an in-flight or completed establishment for a schema.
// ready is closed once handle or err is set.
type entry struct {
	ready  chan struct{}
	handle *Handle
	err    error
}

type RegistryOption func(*Registry)

// WithOpener overrides how pools are established (primarily for testing).
func WithOpener(open OpenFunc) RegistryOption {
	return func(r *Registry) {
		r.open = open
	}
}

// WithDefaultSchema sets the schema used when a request resolves no tenant.
func WithDefaultSchema(schema string) RegistryOption {
	return func(r *Registry) {
		if schema != "" {
			r.defaultSchema = schema
		}
	}
}

func NewRegistry(open OpenFunc, options ...RegistryOption) *Registry {
	r := &Registry{
		open:          open,
		defaultSchema: defaultSchema,
		entries:       make(map[string]*entry),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// GetOrCreate returns the live handle for a schema, establishing it on
// first access. An empty schema maps to the default schema. A failed
// establishment does not poison the cache: the next caller retries.
func (r *Registry) GetOrCreate(ctx context.Context, schema string) (*Handle, error) {
	if schema == "" {
		schema = r.defaultSchema
	}

	r.lock.Lock()
	if e, ok := r.entries[schema]; ok {
		r.lock.Unlock()
		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.err != nil {
			return nil, e.err
		}
		return e.handle, nil
	}

	e := &entry{ready: make(chan struct{})}
	r.entries[schema] = e
	r.lock.Unlock()

	handle, err := r.open(ctx, schema)
	if err != nil {
		e.err = errors.Wrap(apperrors.ErrConnectionUnavailable, err.Error())
		r.lock.Lock()
		delete(r.entries, schema)
		r.lock.Unlock()
		close(e.ready)
		return nil, e.err
	}

	e.handle = handle
	close(e.ready)
	return handle, nil
}

// Size returns the number of established schemas.
func (r *Registry) Size() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.entries)
}

// Close releases every established pool. Only called at process
// shutdown; the registry must not be used afterwards.
func (r *Registry) Close() {
	r.lock.Lock()
	defer r.lock.Unlock()
	for schema, e := range r.entries {
		select {
		case <-e.ready:
			if e.handle != nil && e.handle.Pool != nil {
				e.handle.Pool.Close()
			}
		default:
			// Establishment still in flight; the opener owns the pool
			// until it finishes, nothing to release here.
		}
		delete(r.entries, schema)
	}
}
