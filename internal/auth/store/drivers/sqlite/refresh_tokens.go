package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

const createRefreshToken = `
INSERT INTO refresh_tokens (id, user_id, family_id, token_hash, expires_at, revoked, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 0, ?, ?)`

const getRefreshTokenByHash = `
SELECT id, user_id, family_id, token_hash, expires_at, revoked, created_at, updated_at
FROM refresh_tokens WHERE token_hash = ?`

// consumeRefreshToken is the compare-and-set behind rotation: only an
// active row matches, so exactly one caller observes a changed row.
const consumeRefreshToken = `
UPDATE refresh_tokens SET revoked = 1, updated_at = ?
WHERE token_hash = ? AND revoked = 0 AND expires_at > ?`

const revokeRefreshToken = `
UPDATE refresh_tokens SET revoked = 1, updated_at = ?
WHERE token_hash = ? AND revoked = 0`

const revokeFamily = `
UPDATE refresh_tokens SET revoked = 1, updated_at = ?
WHERE family_id = ? AND revoked = 0`

const deleteRefreshToken = `DELETE FROM refresh_tokens WHERE id = ?`

// Revoked rows stay until they expire so that replaying a rotated token
// still finds its family.
const deleteExpiredRefreshTokens = `DELETE FROM refresh_tokens WHERE expires_at <= ?`

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	now := nowMillis()
	_, err := r.db.ExecContext(ctx, createRefreshToken,
		t.ID,
		t.UserID,
		t.FamilyID,
		t.TokenHash,
		toMillis(t.ExpiresAt),
		now,
		now,
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	var (
		t                    domain.RefreshToken
		expiresAt            int64
		revoked              int64
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, getRefreshTokenByHash, hash).Scan(
		&t.ID,
		&t.UserID,
		&t.FamilyID,
		&t.TokenHash,
		&expiresAt,
		&revoked,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ExpiresAt = fromMillis(expiresAt)
	t.Revoked = revoked != 0
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return t, nil
}

func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, consumeRefreshToken, nowMillis(), hash, toMillis(now))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, revokeRefreshToken, nowMillis(), hash)
	return err
}

func (r *refreshTokensRepo) RevokeFamily(ctx context.Context, familyID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, revokeFamily, nowMillis(), familyID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) DeleteRefreshToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, deleteRefreshToken, id)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteExpiredRefreshTokens, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ store.RefreshTokens = (*refreshTokensRepo)(nil)
