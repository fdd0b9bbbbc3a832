package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/cryptox"
)

// MinHMACSecretLen is the shortest shared secret accepted for HS256.
const MinHMACSecretLen = 32

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)

	// VerifyKey is the key a verifier needs to check this signer's tokens.
	VerifyKey() any

	// PublicJWK returns the publishable key. Symmetric signers return false.
	PublicJWK() (JWK, bool)
}

type keySigner struct {
	method jwt.SigningMethod
	kid    string
	key    any
	verify any
	jwk    *JWK
}

func (s *keySigner) Alg() string    { return s.method.Alg() }
func (s *keySigner) KID() string    { return s.kid }
func (s *keySigner) VerifyKey() any { return s.verify }

func (s *keySigner) PublicJWK() (JWK, bool) {
	if s.jwk == nil {
		return JWK{}, false
	}
	return *s.jwk, true
}

// Sign produces a compact JWS with the kid header set.
func (s *keySigner) Sign(c Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, c)
	t.Header["kid"] = s.kid
	out, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign %s: %w", s.method.Alg(), err)
	}
	return out, nil
}

// NewSignerFromPEM builds an asymmetric signer from a PEM private key. The
// key type must match alg.
func NewSignerFromPEM(alg, kid string, pemKey []byte) (Signer, error) {
	priv, err := cryptox.ParsePrivateKeyPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: %w", err)
	}
	return newSigner(alg, kid, priv)
}

// NewSignerHS256 builds a symmetric signer. Its key is never published.
func NewSignerHS256(kid string, secret []byte) (Signer, error) {
	if len(secret) < MinHMACSecretLen {
		return nil, fmt.Errorf("jwtx: HS256 secret must be at least %d bytes", MinHMACSecretLen)
	}
	key := append([]byte(nil), secret...)
	return &keySigner{
		method: jwt.SigningMethodHS256,
		kid:    kid,
		key:    key,
		verify: key,
	}, nil
}

func newSigner(alg, kid string, priv crypto.Signer) (Signer, error) {
	switch alg {
	case AlgorithmRS256:
		k, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("jwtx: RS256 requires an RSA private key")
		}
		jwk := NewRSAJWK(kid, "sig", alg, &k.PublicKey)
		return &keySigner{method: jwt.SigningMethodRS256, kid: kid, key: k, verify: &k.PublicKey, jwk: &jwk}, nil

	case AlgorithmES256:
		k, ok := priv.(*ecdsa.PrivateKey)
		if !ok || k.Curve != elliptic.P256() {
			return nil, errors.New("jwtx: ES256 requires a P-256 private key")
		}
		jwk := NewES256JWK(kid, "sig", alg, &k.PublicKey)
		return &keySigner{method: jwt.SigningMethodES256, kid: kid, key: k, verify: &k.PublicKey, jwk: &jwk}, nil

	case AlgorithmEdDSA:
		k, ok := priv.(ed25519.PrivateKey)
		if !ok {
			return nil, errors.New("jwtx: EdDSA requires an Ed25519 private key")
		}
		pub := k.Public().(ed25519.PublicKey)
		jwk := NewEd25519JWK(kid, "sig", alg, pub)
		return &keySigner{method: jwt.SigningMethodEdDSA, kid: kid, key: k, verify: pub, jwk: &jwk}, nil

	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}
}
