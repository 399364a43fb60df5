package http

import (
	"context"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
)

//go:generate mockgen -source=service.go -destination=mocks/mock_service.go -package=mocks AuthService

// AuthService is the slice of *service.AuthService the handlers call.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.TokenPair, error)
	Login(ctx context.Context, username, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID string) (*service.Profile, error)
}

var _ AuthService = (*service.AuthService)(nil)
