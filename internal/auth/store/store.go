package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Repos groups the repositories. Both the root Store and a transaction
// hand them out, so the same service code runs either way.
type Repos interface {
	Users() Users
	Roles() Roles
	RefreshTokens() RefreshTokens
}

// Store is what the auth service holds. Drivers (sqlite) implement it.
type Store interface {
	Repos

	// WithTx runs fn in one read/write transaction: committed when fn
	// returns nil, rolled back otherwise. Refresh rotation depends on it.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Tx is the view of the store inside WithTx. It has no lifecycle methods,
// so code holding one cannot commit early or reach the outer connection.
type Tx interface {
	Repos
}

type Users interface {
	// GetUserByID returns a user by id with roles and permissions loaded.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// UsernameOrEmailTaken reports whether either value is already registered.
	// Email comparison is case-insensitive.
	UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error)

	// CreateUser inserts a new user (id is provided by app via ULID). Roles
	// on u are ignored; use AssignRole. Returns ErrAlreadyExists when the
	// username or email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// AssignRole grants the named role to a user. Returns ErrNotFound when
	// the role does not exist.
	AssignRole(ctx context.Context, userID, roleName string) error
}

type Roles interface {
	// GetRoleByName fetches a role by its unprefixed name.
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// ConsumeRefreshToken revokes the token only if it is currently active
	// (not revoked, not expired at now) and reports whether it did. At most
	// one caller can ever see true for a given hash.
	ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error)

	// RevokeRefreshToken flips revoked=1 and bumps updated_at. A missing
	// hash is not an error.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeFamily revokes every token descended from the same login.
	RevokeFamily(ctx context.Context, familyID string) (int64, error)

	// DeleteRefreshToken removes a single row by id.
	DeleteRefreshToken(ctx context.Context, id string) error

	// DeleteExpiredRefreshTokens removes rows expired at now, revoked or not.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}
