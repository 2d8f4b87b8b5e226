package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/putto11262002/projecthub/migrations"
	"github.com/stretchr/testify/require"
)

type BaseFixture struct {
	ctx      context.Context
	db       *SQLiteDB
	t        *testing.T
	tearDown func()
}

// NewBaseFixture opens a migrated database in a file private to the test.
func NewBaseFixture(t *testing.T) *BaseFixture {
	ctx, cancel := context.WithCancel(context.Background())

	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"), migrations.FS, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))

	return &BaseFixture{
		ctx: ctx,
		db:  db,
		t:   t,
		tearDown: func() {
			cancel()
			db.Close()
		},
	}
}

// StoreFixture wires every store on top of one database.
type StoreFixture struct {
	*BaseFixture
	userStore    *SQLiteUserStore
	authStore    *SQLiteAuthStore
	projectStore *SQLiteProjectStore
	taskStore    *SQLiteTaskStore
	teamStore    *SQLiteTeamStore
	chatStore    *SQLiteChatStore
}

var secret = []byte("c2VjcmV0")

func NewStoreFixture(t *testing.T) *StoreFixture {
	base := NewBaseFixture(t)
	userStore := NewSQLiteUserStore(base.db.DB)
	projectStore := NewSQLiteProjectStore(base.db.DB, userStore)
	return &StoreFixture{
		BaseFixture:  base,
		userStore:    userStore,
		authStore:    NewSQLiteAuthStore(base.db.DB, userStore, secret, 0),
		projectStore: projectStore,
		taskStore:    NewSQLiteTaskStore(base.db.DB, userStore, projectStore),
		teamStore:    NewSQLiteTeamStore(base.db.DB, userStore),
		chatStore:    NewSQLiteChatStore(base.db.DB, userStore),
	}
}
