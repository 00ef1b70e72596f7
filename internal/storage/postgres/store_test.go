package postgres_test

import (
	"testing"

	"github.com/cory-johannsen/sailor/internal/storage/postgres"
	"github.com/cory-johannsen/sailor/internal/storage/storetest"
	"github.com/cory-johannsen/sailor/internal/testutil"
)

func TestStore(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)

	storetest.Run(t, func(t *testing.T) storetest.Store {
		pc.Reset(t)
		return postgres.NewStore(pc.RawPool)
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	pc.ApplyMigrations(t)
}
