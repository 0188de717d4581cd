package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v2"

	"github.com/docboxhq/docbox/pkg/db"
	"github.com/docboxhq/docbox/pkg/log"
	"github.com/docboxhq/docbox/pkg/tenant/secrets"
)

var logger = log.New("tenant")

const (
	poolIdleTTL = 48 * time.Hour
	credIdleTTL = 12 * time.Hour
)

// DatabasePoolCache caches per-tenant *db.Pool connections and their
// decrypted credentials separately, so a credential rotation only needs to
// evict the (cheap) credential entry, not tear down the live connection
// pool, while an idle tenant eventually drops both.
type DatabasePoolCache struct {
	root    *db.Pool
	secrets *secrets.Manager

	pools ttlCache
	creds ttlCache
}

// ttlCache is the subset of *ttlcache.Cache this package uses, so tests can
// swap in a fake.
type ttlCache interface {
	Get(key string) (interface{}, error)
	Set(key string, value interface{}) error
	Remove(key string) error
}

// NewDatabasePoolCache builds a pool cache fronting the root pool, using
// secretsMgr to resolve tenant DB credentials.
func NewDatabasePoolCache(root *db.Pool, secretsMgr *secrets.Manager) *DatabasePoolCache {
	pools := ttlcache.NewCache()
	_ = pools.SetTTL(poolIdleTTL)
	pools.SkipTTLExtensionOnHit(false)
	pools.SetExpirationCallback(func(key string, value interface{}) {
		if p, ok := value.(*db.Pool); ok {
			_ = p.Close()
		}
	})

	creds := ttlcache.NewCache()
	_ = creds.SetTTL(credIdleTTL)
	creds.SkipTTLExtensionOnHit(false)

	return &DatabasePoolCache{root: root, secrets: secretsMgr, pools: pools, creds: creds}
}

// RootPool returns the shared root database pool, not per-tenant.
func (c *DatabasePoolCache) RootPool() *db.Pool { return c.root }

// PoolFor returns a connection pool for t, opening and caching it on first
// use. On a ping failure the cached credential is invalidated and the
// lookup is retried once with a freshly resolved secret, to ride out a
// rotated database password without restarting the process.
func (c *DatabasePoolCache) PoolFor(ctx context.Context, t *Tenant) (*db.Pool, error) {
	key := poolKey(t)

	if v, err := c.pools.Get(key); err == nil {
		return v.(*db.Pool), nil
	}

	pool, err := c.open(ctx, t, key)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		_ = c.creds.Remove(credKey(t))
		_ = pool.Close()

		pool, err = c.open(ctx, t, key)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			_ = pool.Close()
			return nil, err
		}
	}

	_ = c.pools.Set(key, pool)
	return pool, nil
}

func (c *DatabasePoolCache) open(ctx context.Context, t *Tenant, key string) (*db.Pool, error) {
	dsn, err := c.resolveDSN(ctx, t)
	if err != nil {
		return nil, err
	}
	pool, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("tenant", t.ID.String()).Msg("opened tenant database pool")
	return pool, nil
}

func (c *DatabasePoolCache) resolveDSN(ctx context.Context, t *Tenant) (string, error) {
	ck := credKey(t)
	if v, err := c.creds.Get(ck); err == nil {
		return v.(string), nil
	}

	cred, err := c.secrets.Credential(ctx, t.DBSecretRef)
	if err != nil {
		return "", err
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", cred.Username, cred.Password, cred.Host, t.DBName)
	_ = c.creds.Set(ck, dsn)
	return dsn, nil
}

// Flush drops every cached pool (closing its connections) and credential,
// used by tests and by the CLI's tenant-migration tooling.
func (c *DatabasePoolCache) Flush() {
	if p, ok := c.pools.(interface{ Purge() error }); ok {
		_ = p.Purge()
	}
	if p, ok := c.creds.(interface{ Purge() error }); ok {
		_ = p.Purge()
	}
}

func poolKey(t *Tenant) string { return t.ID.String() + "!" + t.DBName }
func credKey(t *Tenant) string {
	if t.DBSecretRef != nil {
		return "ref:" + *t.DBSecretRef
	}
	return "tenant:" + t.ID.String()
}
