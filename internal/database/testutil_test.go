package database

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/huddle/internal/models"
)

// testPool returns a pgxpool.Pool connected to the test database.
// It skips the test if DATABASE_URL is not set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// testIDCounter provides unique IDs across all tests in the package.
// Starts well above zero to avoid conflicts with any existing data.
var testIDCounter int64 = 100000

func nextID() int64 {
	return atomic.AddInt64(&testIDCounter, 1)
}

// workspace is a channel owned by owner with member joined, plus a DM
// created by owner with member. The membership tables are written directly
// since the engine only reads them.
type workspace struct {
	owner   int64
	member  int64
	channel models.Container
	dm      models.Container
}

func createWorkspace(t *testing.T, pool *pgxpool.Pool) workspace {
	t.Helper()
	ctx := context.Background()
	w := workspace{
		owner:   nextID(),
		member:  nextID(),
		channel: models.Channel(nextID()),
		dm:      models.DM(nextID()),
	}

	exec := func(sql string, args ...any) {
		t.Helper()
		if _, err := pool.Exec(ctx, sql, args...); err != nil {
			t.Fatalf("seeding workspace: %v", err)
		}
	}
	for _, id := range []int64{w.owner, w.member} {
		exec(`INSERT INTO users (id, handle) VALUES ($1, $2)`, id, fmt.Sprintf("user%d", id))
	}
	exec(`INSERT INTO channels (id, name) VALUES ($1, $2)`, w.channel.ID, fmt.Sprintf("chan%d", w.channel.ID))
	exec(`INSERT INTO channel_members (channel_id, user_id, is_owner) VALUES ($1, $2, TRUE)`, w.channel.ID, w.owner)
	exec(`INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2)`, w.channel.ID, w.member)
	exec(`INSERT INTO dms (id, name, creator_id) VALUES ($1, 'dm', $2)`, w.dm.ID, w.owner)
	exec(`INSERT INTO dm_members (dm_id, user_id) VALUES ($1, $2), ($1, $3)`, w.dm.ID, w.owner, w.member)

	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, w.channel.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM dms WHERE id = $1`, w.dm.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = ANY($1)`, []int64{w.owner, w.member})
	})
	return w
}
