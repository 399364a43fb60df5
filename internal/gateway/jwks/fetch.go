package jwks

import (
	"context"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// HTTPFetcher fetches the key set through the auth SDK. jwksURI must be the
// full JWKS URL as published by the authority.
func HTTPFetcher(jwksURI string) (FetchFunc, error) {
	base, ok := strings.CutSuffix(jwksURI, authsdk.JWKSPath)
	if !ok || base == "" {
		return nil, fmt.Errorf("jwks: URI %q must end in %s", jwksURI, authsdk.JWKSPath)
	}

	client := authsdk.NewSDKClient(base)
	return func(ctx context.Context) (jwtx.JWKS, error) {
		resp, err := client.GetJWKS(ctx)
		if err != nil {
			return jwtx.JWKS{}, err
		}
		return jwtx.JWKS(*resp), nil
	}, nil
}
