//go:build integration

// Package databasetest opens the Postgres database used by integration tests.
// Tests are skipped unless TEST_DATABASE_URL is set.
package databasetest

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparkbytes/foodfinder/pkg/database"
)

var (
	once    sync.Once
	pool    *pgxpool.Pool
	openErr error
)

// Pool returns a migrated pool with every table emptied.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	once.Do(func() {
		ctx := context.Background()
		pool, openErr = database.NewPostgresPool(ctx, dsn, database.PoolOptions{MaxConns: 20}, zap.NewNop())
		if openErr != nil {
			return
		}
		openErr = database.Migrate(ctx, pool)
	})
	require.NoError(t, openErr)

	_, err := pool.Exec(context.Background(), `TRUNCATE users, events, event_foods, reservations,
		student_profiles, vendor_profiles, organizer_applications, audit_logs CASCADE`)
	require.NoError(t, err)
	return pool
}

// User inserts a user with the given roles and returns its id.
func User(t *testing.T, p *pgxpool.Pool, roles ...string) uuid.UUID {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{"student"}
	}
	id := uuid.New()
	_, err := p.Exec(context.Background(),
		`INSERT INTO users (id, email, password_hash, roles) VALUES ($1, $2, 'x', $3)`,
		id, id.String()+"@bu.edu", roles)
	require.NoError(t, err)
	return id
}
