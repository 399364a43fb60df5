package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// AuthHandler serves the /api/auth endpoints.
type AuthHandler struct {
	AuthService AuthService
}

// HandleRegister creates an account and returns its first token pair.
//
//	@Summary		Register a new user
//	@Description	Creates a user with the USER role and returns an access/refresh token pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"New account"
//	@Success		200		{object}	authsdk.TokenPair
//	@Failure		400		{object}	authsdk.APIError	"Validation failed"
//	@Failure		409		{object}	authsdk.APIError	"Username or email already registered"
//	@Failure		429		{object}	authsdk.APIError	"Rate limit exceeded"
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	pair, err := h.AuthService.Register(r.Context(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTokenPair(pair))
}

// HandleLogin exchanges credentials for a token pair.
//
//	@Summary		Log in
//	@Description	Verifies a username and password and returns a new token pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenPair
//	@Failure		400		{object}	authsdk.APIError	"Malformed body"
//	@Failure		401		{object}	authsdk.APIError	"Invalid credentials"
//	@Failure		429		{object}	authsdk.APIError	"Rate limit exceeded"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	pair, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTokenPair(pair))
}

// HandleRefresh rotates a refresh token.
//
//	@Summary		Refresh tokens
//	@Description	Exchanges a refresh token for a new pair. The presented token is revoked; presenting it again revokes every token descended from the same login.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenPair
//	@Failure		400		{object}	authsdk.APIError	"Malformed body"
//	@Failure		403		{object}	authsdk.APIError	"Token invalid, expired or revoked"
//	@Failure		429		{object}	authsdk.APIError	"Rate limit exceeded"
//	@Router			/api/auth/refresh-token [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	pair, err := h.AuthService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTokenPair(pair))
}

// HandleLogout revokes a refresh token. It always answers 204.
//
//	@Summary		Log out
//	@Description	Revokes the given refresh token. Unknown tokens are ignored.
//	@Tags			Auth
//	@Accept			json
//	@Param			request	body	authsdk.RefreshRequest	false	"Refresh token"
//	@Success		204
//	@Router			/api/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		slogx.FromContext(r.Context()).Debug("logout body ignored", "err", err)
	}

	if req.RefreshToken != "" {
		// Failures are logged by the service; logout stays idempotent.
		_ = h.AuthService.Logout(r.Context(), req.RefreshToken)
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the caller's profile.
//
//	@Summary		Current user
//	@Description	Returns the profile of the user the bearer token was issued to.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.Profile
//	@Failure		401	{object}	authsdk.APIError	"Missing or invalid access token"
//	@Router			/api/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		authsdk.ErrAuthenticationRequired.WriteError(w)
		return
	}

	p, err := h.AuthService.Me(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			authsdk.ErrAuthenticationRequired.WriteError(w)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.Profile{
		UserID:      p.UserID,
		Username:    p.Username,
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Roles:       nonNil(p.Roles),
		Permissions: nonNil(p.Permissions),
	})
}

func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(w, r, v); err != nil {
		authsdk.NewValidationError(map[string]string{"body": err.Error()}).WriteError(w)
		return false
	}
	return true
}

// writeServiceError maps service errors onto the public error envelope.
// Anything unrecognised is logged and hidden behind internal_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		authsdk.NewValidationError(verr.Fields).WriteError(w)
	case errors.Is(err, service.ErrConflict):
		authsdk.ErrConflict.WriteError(w)
	case errors.Is(err, service.ErrUnauthorized):
		authsdk.ErrUnauthorized.WriteError(w)
	case errors.Is(err, service.ErrForbidden):
		authsdk.ErrForbidden.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		authsdk.ErrInternal.WriteError(w)
	}
}

func toTokenPair(p *domain.TokenPair) authsdk.TokenPair {
	return authsdk.TokenPair{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    int64(p.ExpiresIn.Seconds()),
		UserID:       p.User.ID,
		Username:     p.User.Username,
		Email:        p.User.Email,
		Roles:        nonNil(p.User.Roles),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
