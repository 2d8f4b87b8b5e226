package core

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

type SQLiteDBOption struct {
	// mode can be ro | rw | rwc | memory
	Mode string
	// cache can be shared | private
	Cache string
	// JournalMode be DELETE | TRUNCATE | PERSIST | MEMORY | WAL | OFF
	JournalMode string
	// BusyTimeout is the number of milliseconds a connection waits on a locked database.
	BusyTimeout int
	ForeignKeys bool
}

func (o *SQLiteDBOption) DSN(file string) string {
	dsn := "file:" + file
	if o == nil {
		return dsn
	}

	q := url.Values{}
	if o.Mode != "" {
		q.Set("mode", o.Mode)
	}
	if o.Cache != "" {
		q.Set("cache", o.Cache)
	}
	if o.JournalMode != "" {
		q.Set("_journal_mode", o.JournalMode)
	}
	if o.BusyTimeout > 0 {
		q.Set("_busy_timeout", strconv.Itoa(o.BusyTimeout))
	}
	if o.ForeignKeys {
		q.Set("_foreign_keys", "on")
	}
	if len(q) == 0 {
		return dsn
	}
	return dsn + "?" + q.Encode()
}

// DefaultSQLiteDBOption is used when NewSQLiteDB is given a nil option.
var DefaultSQLiteDBOption = SQLiteDBOption{
	Mode:        "rwc",
	JournalMode: "WAL",
	BusyTimeout: 5000,
	ForeignKeys: true,
}

type SQLiteDB struct {
	*sql.DB
	migrations fs.FS
}

func NewSQLiteDB(file string, migrations fs.FS, option *SQLiteDBOption) (*SQLiteDB, error) {
	if option == nil {
		option = &DefaultSQLiteDBOption
	}
	d, err := sql.Open("sqlite3", option.DSN(file))
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	return &SQLiteDB{DB: d, migrations: migrations}, nil
}

// Migrate applies every pending migration found in the migration fs.
func (db *SQLiteDB) Migrate(ctx context.Context) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db.DB, db.migrations)
	if err != nil {
		return fmt.Errorf("goose.NewProvider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
