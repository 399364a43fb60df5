package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/idx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// Issue reasons reported to the Observer.
const (
	IssueRegister = "register"
	IssueLogin    = "login"
	IssueRefresh  = "refresh"
)

// Refresh rejection reasons reported to the Observer.
const (
	RejectMissing  = "missing"
	RejectExpired  = "expired"
	RejectReuse    = "reuse"
	RejectDisabled = "disabled"
)

// Observer receives outcome events, typically to drive metrics.
type Observer interface {
	TokensIssued(reason string)
	LoginFailed()
	RefreshRejected(reason string)
}

type nopObserver struct{}

func (nopObserver) TokensIssued(string)    {}
func (nopObserver) LoginFailed()           {}
func (nopObserver) RefreshRejected(string) {}

// Profile is what /api/auth/me returns for the caller.
type Profile struct {
	UserID      string
	Username    string
	Email       string
	FirstName   string
	LastName    string
	Roles       []string
	Permissions []string
}

// AuthService is the token authority: it checks credentials, issues
// access/refresh pairs, and rotates or revokes refresh tokens.
type AuthService struct {
	Store store.Store
	Keys  *jwtx.KeyManager

	// Algorithm picks the signer for access tokens returned to clients.
	// Empty means RS256.
	Algorithm string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Observer Observer

	// Now is overridable in tests.
	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) observer() Observer {
	if s.Observer != nil {
		return s.Observer
	}
	return nopObserver{}
}

func (s *AuthService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

// Register validates the input, creates the user with the default role and
// issues the first token pair of a new family.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	in = in.normalized()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.Store.Users().UsernameOrEmailTaken(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if taken {
		return nil, ErrConflict
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	var pair *domain.TokenPair

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		role, err := tx.Roles().GetRoleByName(ctx, domain.DefaultRole)
		if err != nil {
			return fmt.Errorf("load default role %q: %w", domain.DefaultRole, err)
		}

		u := domain.User{
			ID:           idx.NewAt(now.UTC()).String(),
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: hash,
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Enabled:      true,
		}
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrConflict
			}
			return fmt.Errorf("create user: %w", err)
		}
		if err := tx.Users().AssignRole(ctx, u.ID, role.Name); err != nil {
			return fmt.Errorf("assign default role: %w", err)
		}

		created, err := tx.Users().GetUserByID(ctx, u.ID)
		if err != nil {
			return fmt.Errorf("reload user: %w", err)
		}

		pair, err = s.issue(ctx, tx, created, idx.New().String(), now)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.Info("user registered", slog.String("user_id", pair.User.ID), slog.String("username", pair.User.Username))
	s.observer().TokensIssued(IssueRegister)
	return pair, nil
}

// Login exchanges a username and password for a new token pair. Unknown
// users, wrong passwords and disabled accounts all fail with
// ErrUnauthorized after the same amount of hashing work.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	username = strings.TrimSpace(username)

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.BurnPasswordCheck(password)
			s.observer().LoginFailed()
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		switch {
		case errors.Is(err, cryptox.ErrPasswordMismatch):
		case errors.Is(err, cryptox.ErrInvalidHash):
			l.Error("stored password hash is unusable", slog.String("user_id", user.ID), slog.Any("error", err))
		default:
			return nil, fmt.Errorf("verify password: %w", err)
		}
		s.observer().LoginFailed()
		return nil, ErrUnauthorized
	}

	if !user.Enabled {
		l.Info("login attempt for disabled user", slog.String("user_id", user.ID))
		s.observer().LoginFailed()
		return nil, ErrUnauthorized
	}

	now := s.now()
	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		pair, err = s.issue(ctx, tx, user, idx.New().String(), now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.observer().TokensIssued(IssueLogin)
	return pair, nil
}

// Refresh rotates a refresh token. The presented token is revoked with a
// conditional update; only the caller whose update changed the row gets a
// new pair. Presenting an already revoked token revokes its whole family.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		s.observer().RefreshRejected(RejectMissing)
		return nil, ErrForbidden
	}

	now := s.now()
	fp := cryptox.FingerprintToken(refreshToken)

	var (
		pair   *domain.TokenPair
		reject string
	)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		won, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, fp, now)
		if err != nil {
			return fmt.Errorf("consume refresh token: %w", err)
		}

		rt, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				reject = RejectMissing
				return nil
			}
			return fmt.Errorf("load refresh token: %w", err)
		}

		if !won {
			// Side effects below are committed; the caller still gets ErrForbidden.
			if rt.Revoked {
				n, err := tx.RefreshTokens().RevokeFamily(ctx, rt.FamilyID)
				if err != nil {
					return fmt.Errorf("revoke token family: %w", err)
				}
				l.Warn("refresh token reuse detected, family revoked",
					slog.String("user_id", rt.UserID),
					slog.String("family_id", rt.FamilyID),
					slog.Int64("revoked", n),
				)
				reject = RejectReuse
			} else {
				reject = RejectExpired
			}
			if err := tx.RefreshTokens().DeleteRefreshToken(ctx, rt.ID); err != nil {
				return fmt.Errorf("delete refresh token: %w", err)
			}
			return nil
		}

		user, err := tx.Users().GetUserByID(ctx, rt.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				reject = RejectMissing
				return nil
			}
			return fmt.Errorf("load user: %w", err)
		}
		if !user.Enabled {
			reject = RejectDisabled
			return nil
		}

		pair, err = s.issue(ctx, tx, user, rt.FamilyID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if reject != "" {
		s.observer().RefreshRejected(reject)
		return nil, ErrForbidden
	}

	s.observer().TokensIssued(IssueRefresh)
	return pair, nil
}

// Logout revokes the refresh token if it exists. Unknown or empty tokens
// are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}

	fp := cryptox.FingerprintToken(refreshToken)
	if err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
		slogx.FromContext(ctx).Error("failed to revoke refresh token on logout", slog.Any("error", err))
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// Me returns the profile of an authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.Enabled {
		return nil, ErrUnauthorized
	}

	return &Profile{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Roles:       u.Roles,
		Permissions: u.Permissions,
	}, nil
}

// MintInternal signs an HS256 access token for u. Only holders of the
// shared secret can verify it.
func (s *AuthService) MintInternal(u domain.User) (string, error) {
	return s.mint(s.Keys.HMAC(), u, s.now())
}

// MintPublic signs an RS256 access token for u, verifiable through the JWKS.
func (s *AuthService) MintPublic(u domain.User) (string, error) {
	return s.mint(s.Keys.RSA(), u, s.now())
}

func (s *AuthService) mint(signer jwtx.Signer, u domain.User, now time.Time) (string, error) {
	claims := jwtx.NewAccessClaims(
		jwtx.Identity{
			UserID:      u.ID,
			Username:    u.Username,
			Email:       u.Email,
			Roles:       u.Roles,
			Permissions: u.Permissions,
		},
		s.accessTTL(),
		s.Keys.Issuer(),
		s.Keys.Audience(),
		now,
	)
	token, err := signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign %s access token: %w", signer.Alg(), err)
	}
	return token, nil
}

// issue mints an access token and stores a fresh refresh token in family.
// It must run inside tx so the new row commits with whatever preceded it.
func (s *AuthService) issue(
	ctx context.Context,
	tx store.Tx,
	u domain.User,
	family string,
	now time.Time,
) (*domain.TokenPair, error) {
	signer, err := s.Keys.Signer(s.Algorithm)
	if err != nil {
		return nil, err
	}

	access, err := s.mint(signer, u, now)
	if err != nil {
		return nil, err
	}

	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	rt := domain.RefreshToken{
		ID:        idx.NewAt(now.UTC()).String(),
		UserID:    u.ID,
		FamilyID:  family,
		TokenHash: cryptox.FingerprintToken(opaque),
		ExpiresAt: now.Add(s.refreshTTL()),
	}
	if err := tx.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: opaque,
		TokenType:    domain.TokenType,
		ExpiresIn:    s.accessTTL(),
		User:         u,
	}, nil
}
