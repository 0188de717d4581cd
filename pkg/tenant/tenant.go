// Package tenant resolves a Tenant row into a ready-to-use per-tenant
// database pool, blob bucket name, and search index name, caching the
// expensive parts (open connections, decrypted credentials) across calls.
package tenant

import (
	"context"

	"github.com/google/uuid"

	"github.com/docboxhq/docbox/pkg/db"
)

// Tenant is an alias of db.Tenant (the same type, not a distinct one), so
// callers of this package can name it without importing pkg/db.
type Tenant = db.Tenant

// Resolver looks up tenants against the shared root database.
type Resolver struct {
	Root *db.Pool
}

// NewResolver builds a Resolver over the root connection pool.
func NewResolver(root *db.Pool) *Resolver {
	return &Resolver{Root: root}
}

// Resolve finds a tenant by (id, env).
func (r *Resolver) Resolve(ctx context.Context, id uuid.UUID, env string) (*Tenant, error) {
	return db.FindTenant(ctx, r.Root.DB, id, env)
}

// ResolveByBucket finds the tenant owning a given blob bucket, used when a
// storage notification arrives bearing only the bucket name (spec.md §4.7).
func (r *Resolver) ResolveByBucket(ctx context.Context, bucket string) (*Tenant, error) {
	return db.FindTenantByBucket(ctx, r.Root.DB, bucket)
}

// All lists every tenant, used by the maintenance driver to fan out a
// purge/reprocess pass across tenants (spec.md §4.9).
func (r *Resolver) All(ctx context.Context) ([]Tenant, error) {
	return db.AllTenants(ctx, r.Root.DB)
}

// Create inserts a new tenant row (spec.md §6, cmd/docbox create-tenant).
func (r *Resolver) Create(ctx context.Context, t Tenant) error {
	return db.CreateTenant(ctx, r.Root.DB, t)
}
