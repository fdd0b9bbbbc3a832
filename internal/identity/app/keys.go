package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/stshume/ohh-marketplace-auth-service/pkg/jwtx"
)

// InitAuthKeys builds the KeyManager that signs session tokens.
//
// Key sources, in order of precedence:
//   - HS256: the shared AUTH_HMAC_SECRET. HMAC keys are never published in
//     the JWKS.
//   - AUTH_SIGNING_KEY_FILE: a PEM private key (RS256, ES256 or EdDSA).
//     Tokens survive restarts.
//   - otherwise: ephemeral keys generated at startup. All existing tokens
//     become invalid when the service restarts.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Algorithm:  cfg.Algorithm,
		Issuer:     cfg.Issuer,
		RSABits:    cfg.RSABits,
		NumKeys:    cfg.NumKeys,
		KeyID:      cfg.KeyID,
		HMACSecret: []byte(cfg.HMACSecret),
	}

	source := "ephemeral"
	switch {
	case cfg.Algorithm == jwtx.AlgorithmHS256:
		source = "hmac"
	case cfg.SigningKeyFile != "":
		pem, err := os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read signing key: %w", err)
		}
		opts.PrivateKeyPEM = pem
		source = "file"
	}

	keyManager, err := jwtx.NewKeyManager(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s key manager: %w", source, err)
	}

	logger.Info("signing keys loaded",
		"source", source,
		"algorithm", keyManager.Algorithm(),
		"num_keys", keyManager.NumSigners(),
		"issuer", cfg.Issuer,
	)
	if source == "ephemeral" {
		logger.Warn("all existing tokens are now invalid due to key rotation on startup")
	}
	logPublicKeys(keyManager, logger)

	return keyManager, nil
}

// logPublicKeys writes the PEM form of every published key at debug level so
// a token can be checked by hand against the running instance.
func logPublicKeys(keyManager *jwtx.KeyManager, logger *slog.Logger) {
	for _, k := range keyManager.KeySet.PublicJWKS().Keys {
		pub, err := k.PEM()
		if err != nil {
			logger.Warn("public key not convertible to PEM", "kid", k.Kid, "error", err)
			continue
		}
		logger.Debug("public signing key", "kid", k.Kid, "alg", k.Alg, "pem", pub)
	}
}
