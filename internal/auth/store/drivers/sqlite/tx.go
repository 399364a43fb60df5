package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

// txRepos binds the repositories to one *sql.Tx.
type txRepos struct {
	tx *sql.Tx
}

func (t txRepos) Users() store.Users                 { return &usersRepo{db: t.tx} }
func (t txRepos) Roles() store.Roles                 { return &rolesRepo{db: t.tx} }
func (t txRepos) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{db: t.tx} }

// WithTx begins an IMMEDIATE transaction (see FileDSN), so the write lock is
// held from the first statement and concurrent rotations serialize.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
				err = errors.Join(err, rerr)
			}
		}
	}()

	if err = fn(txRepos{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

var _ store.Tx = txRepos{}
