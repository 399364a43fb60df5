package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// JWKSPath is where the auth service publishes its key set.
const JWKSPath = "/.well-known/jwks.json"

// SDKClient is a client for the tollgate auth service.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates an account and returns its first token pair.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*TokenPair, error) {
	return c.tokenCall(ctx, "/api/auth/register", req)
}

// Login exchanges credentials for a token pair.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	return c.tokenCall(ctx, "/api/auth/login", LoginRequest{Username: username, Password: password})
}

// Refresh rotates a refresh token. The token passed in is spent whether
// or not the call succeeds.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return c.tokenCall(ctx, "/api/auth/refresh-token", RefreshRequest{RefreshToken: refreshToken})
}

// Logout revokes a refresh token. The service answers 204 even for
// unknown tokens.
func (c *SDKClient) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/auth/logout",
		body:   RefreshRequest{RefreshToken: refreshToken},
		want:   http.StatusNoContent,
	}, nil)
}

// Me returns the profile for the holder of accessToken.
func (c *SDKClient) Me(ctx context.Context, accessToken string) (*Profile, error) {
	return get[Profile](ctx, c, "/api/auth/me", accessToken)
}

// GetJWKS retrieves the JSON Web Key Set for token verification.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	return get[JWKSResponse](ctx, c, JWKSPath, "")
}

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return get[HealthResponse](ctx, c, "/livez", "")
}

// GetReadiness checks if the service is ready. A 503 comes back as an
// *APIError.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return get[HealthResponse](ctx, c, "/readyz", "")
}

func (c *SDKClient) tokenCall(ctx context.Context, path string, payload any) (*TokenPair, error) {
	var pair TokenPair
	err := c.do(ctx, call{method: http.MethodPost, path: path, body: payload, want: http.StatusOK}, &pair)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}
