package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	_ "modernc.org/sqlite"
)

// FileDSN builds the DSN used for an on-disk database. Transactions begin
// IMMEDIATE so the write lock is taken up front, which is what makes the
// conditional revoke in refresh rotation a single-winner operation.
func FileDSN(path string) string {
	return fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate",
		path,
	)
}

// MemoryDSN is a private in-memory database, used by tests.
const MemoryDSN = "file::memory:?_pragma=foreign_keys(1)&_txlock=immediate"

// Store is the SQLite implementation of store.Store.
type Store struct {
	db *sql.DB
}

// NewStore opens dsn. Migrations are separate; see ApplyMigrations.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// Every connection to :memory: is its own database.
	if isMemoryDSN(dsn) {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	return &Store{db: db}, nil
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Users() store.Users                 { return &usersRepo{db: s.db} }
func (s *Store) Roles() store.Roles                 { return &rolesRepo{db: s.db} }
func (s *Store) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{db: s.db} }

var _ store.Store = (*Store)(nil)
