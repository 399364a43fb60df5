package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

var ErrMissingTokenSecret = errors.New("AUTH_TOKEN_SECRET is required in production")

// InitAuthKeys builds the KeyManager from configuration.
//
// Keys are ephemeral: the HMAC key comes from AUTH_TOKEN_SECRET and the RSA
// keypair is generated on every start, so access tokens minted before a
// restart stop verifying. Outside prod a missing secret is replaced with a
// random one, which also invalidates internal tokens across restarts.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	secret := cfg.TokenSecret
	if secret == "" {
		if cfg.IsProd() {
			return nil, ErrMissingTokenSecret
		}
		generated, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return nil, fmt.Errorf("failed to generate dev token secret: %w", err)
		}
		secret = generated
		logger.Warn("AUTH_TOKEN_SECRET not set, generated a random secret for this process",
			"env", cfg.Env,
		)
	}

	keyManager, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Secret:   secret,
		KeyID:    cfg.KeyID,
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		RSABits:  cfg.RSABits,
	})
	if err != nil {
		return nil, err
	}

	// Reject unknown algorithms at startup rather than on first login.
	if _, err := keyManager.Signer(cfg.Algorithm); err != nil {
		return nil, err
	}

	logger.Info("generated signing keys",
		"kid", keyManager.RSA().KID(),
		"access_alg", cfg.Algorithm,
		"issuer", cfg.Issuer,
		"audience", cfg.Audience,
	)

	return keyManager, nil
}
