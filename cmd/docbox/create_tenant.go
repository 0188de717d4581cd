package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/docboxhq/docbox/pkg/config"
	"github.com/docboxhq/docbox/pkg/db"
	"github.com/docboxhq/docbox/pkg/tenant"
)

// createTenantCommand provisions a new tenant row against the root database
// (spec.md §3, §6). It does not create the tenant's database, bucket, or
// search index — those are expected to already exist under the names given,
// matching the "tenant onboarding is an out-of-band infra step" split the
// original CLI draws between resource creation and registration.
func createTenantCommand() *command {
	c := newCommand("create-tenant")
	c.Description = func() string { return "register a new tenant against the root database" }

	env := c.String("env", "prod", "tenant environment")
	displayName := c.String("name", "", "tenant display name")
	dbName := c.String("db-name", "", "tenant database name")
	dbSecretRef := c.String("db-secret-ref", "", "secret manager reference for the tenant database credential")
	bucketName := c.String("bucket", "", "tenant blob storage bucket name")
	indexName := c.String("index", "", "tenant search index/collection name")
	eventQueueRef := c.String("event-queue-ref", "", "per-tenant event queue reference, if any")

	c.Action = func(args []string) error {
		if *displayName == "" || *dbName == "" || *bucketName == "" || *indexName == "" {
			return fmt.Errorf("create-tenant: -name, -db-name, -bucket, and -index are required")
		}

		cfg, err := config.LoadFromFile(*c.configPath)
		if err != nil {
			return err
		}
		rootPool, err := db.Open(cfg.RootDatabase.DSN())
		if err != nil {
			return err
		}
		defer rootPool.Close()

		t := tenant.Tenant{
			ID:          uuid.New(),
			Env:         *env,
			DisplayName: *displayName,
			DBName:      *dbName,
			BucketName:  *bucketName,
			IndexName:   *indexName,
		}
		if *dbSecretRef != "" {
			t.DBSecretRef = dbSecretRef
		}
		if *eventQueueRef != "" {
			t.EventQueueRef = eventQueueRef
		}

		resolver := tenant.NewResolver(rootPool)
		if err := resolver.Create(context.Background(), t); err != nil {
			return err
		}

		fmt.Println(t.ID.String())
		return nil
	}

	return c
}
