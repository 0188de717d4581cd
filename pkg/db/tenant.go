package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Tenant is a row from the shared root database (spec.md §3, §6).
type Tenant struct {
	ID            uuid.UUID
	Env           string
	DisplayName   string
	DBName        string
	DBSecretRef   *string
	BucketName    string
	IndexName     string
	EventQueueRef *string
}

// FindTenant resolves a tenant by its (id, env) pair.
func FindTenant(ctx context.Context, q Querier, id uuid.UUID, env string) (*Tenant, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, env, display_name, db_name, db_secret_ref, bucket_name, index_name, event_queue_ref
		FROM tenants WHERE id = ? AND env = ?`, id.String(), env)
	return scanTenant(row)
}

// FindTenantByBucket resolves the tenant owning a bucket name, used by the
// storage-notification consumer to map an S3 event back to a tenant.
func FindTenantByBucket(ctx context.Context, q Querier, bucket string) (*Tenant, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, env, display_name, db_name, db_secret_ref, bucket_name, index_name, event_queue_ref
		FROM tenants WHERE bucket_name = ?`, bucket)
	return scanTenant(row)
}

// AllTenants returns every tenant, used by the maintenance driver to fan out
// a purge/reprocess pass.
func AllTenants(ctx context.Context, q Querier) ([]Tenant, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, env, display_name, db_name, db_secret_ref, bucket_name, index_name, event_queue_ref
		FROM tenants ORDER BY display_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tenant
	for rows.Next() {
		t, err := scanTenantRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// CreateTenant inserts a new tenant row. Per spec.md §3, a tenant is created
// once and never mutated by the core.
func CreateTenant(ctx context.Context, q Querier, t Tenant) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tenants (id, env, display_name, db_name, db_secret_ref, bucket_name, index_name, event_queue_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.Env, t.DisplayName, t.DBName, NullString(t.DBSecretRef),
		t.BucketName, t.IndexName, NullString(t.EventQueueRef))
	return err
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanTenant(row *sql.Row) (*Tenant, error) {
	return scanTenantAny(row)
}

func scanTenantRow(rows *sql.Rows) (*Tenant, error) {
	return scanTenantAny(rows)
}

func scanTenantAny(s scannable) (*Tenant, error) {
	var t Tenant
	var id string
	var secretRef, eventQueueRef sql.NullString
	if err := s.Scan(&id, &t.Env, &t.DisplayName, &t.DBName, &secretRef, &t.BucketName, &t.IndexName, &eventQueueRef); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	t.ID = parsed
	t.DBSecretRef = StringPtr(secretRef)
	t.EventQueueRef = StringPtr(eventQueueRef)
	return &t, nil
}
