package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// jwksMaxAge lets verifiers and proxies cache the key set briefly.
const jwksMaxAge = 5 * time.Minute

// JWKSHandler exposes the JSON Web Key Set for public key discovery. Only
// the RSA key is published; the HMAC key never leaves the process.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify RS256 access tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteCachedJSON(w, http.StatusOK, authsdk.JWKSResponse(keys.PublicJWKS()), jwksMaxAge)
	}
}
