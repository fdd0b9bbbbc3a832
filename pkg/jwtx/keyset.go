package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"math/big"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

type verifyKey struct {
	alg string
	key any
}

// KeySet holds every verification key by kid. Asymmetric keys are also kept
// as a JWKS for publishing; symmetric keys never are.
type KeySet struct {
	mu   sync.RWMutex
	jks  JWKS
	keys map[string]verifyKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{
		jks:  JWKS{Keys: []JWK{}},
		keys: make(map[string]verifyKey),
	}
}

// AddSigner registers a Signer's verification key.
func (k *KeySet) AddSigner(s Signer) error {
	if s == nil {
		return errors.New("jwtx: nil signer")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.keys[s.KID()] = verifyKey{alg: s.Alg(), key: s.VerifyKey()}
	if j, ok := s.PublicJWK(); ok {
		k.jks.Keys = append(k.jks.Keys, j)
	}
	return nil
}

// AddJWK adds a published JWK and parses it into a usable crypto key.
func (k *KeySet) AddJWK(j JWK) error {
	key, err := parseJWKToKey(j)
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[j.Kid] = verifyKey{alg: jwkAlg(j), key: key}
	k.jks.Keys = append(k.jks.Keys, j)
	return nil
}

// Get returns the verification key for the given kid.
func (k *KeySet) Get(kid string) (any, error) {
	_, key, err := k.Lookup(kid)
	return key, err
}

// Lookup returns the algorithm and verification key registered for kid.
func (k *KeySet) Lookup(kid string) (string, any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if vk, ok := k.keys[kid]; ok {
		return vk.alg, vk.key, nil
	}
	return "", nil, ErrNoKey
}

// PublicJWKS returns a snapshot of the publishable keys for HTTP serving.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := JWKS{Keys: make([]JWK, len(k.jks.Keys))}
	copy(out.Keys, k.jks.Keys)
	return out
}

// IsReady returns true if the KeySet has at least one key loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys) > 0
}

// ResetFromJWKS replaces all keys from a JWKS, e.g. one fetched from the
// identity service by a resource server.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	next := make(map[string]verifyKey, len(jwks.Keys))
	for _, j := range jwks.Keys {
		key, err := parseJWKToKey(j)
		if err != nil {
			return err
		}
		next[j.Kid] = verifyKey{alg: jwkAlg(j), key: key}
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = next
	k.jks = jwks
	return nil
}

// jwkAlg falls back to the algorithm implied by the key type when "alg" is
// absent.
func jwkAlg(j JWK) string {
	if j.Alg != "" {
		return j.Alg
	}
	switch j.Kty {
	case "RSA":
		return AlgorithmRS256
	case "EC":
		return AlgorithmES256
	case "OKP":
		return AlgorithmEdDSA
	}
	return ""
}

// parseJWKToKey converts a JWK into a crypto.PublicKey.
// Supports RSA, Ed25519 (OKP), and ECDSA P-256 (EC) key types.
func parseJWKToKey(j JWK) (any, error) {
	switch j.Kty {
	case "RSA":
		nb, err := base64.RawURLEncoding.DecodeString(j.N)
		if err != nil {
			return nil, err
		}
		eb, err := base64.RawURLEncoding.DecodeString(j.E)
		if err != nil {
			return nil, err
		}
		n := new(big.Int).SetBytes(nb)
		e := new(big.Int).SetBytes(eb).Int64()
		return &rsa.PublicKey{N: n, E: int(e)}, nil

	case "OKP":
		if j.Crv != "Ed25519" {
			return nil, errors.New("jwtx: unsupported OKP curve " + j.Crv)
		}
		xb, err := base64.RawURLEncoding.DecodeString(j.X)
		if err != nil {
			return nil, err
		}
		if len(xb) != ed25519.PublicKeySize {
			return nil, errors.New("jwtx: invalid Ed25519 public key size")
		}
		return ed25519.PublicKey(xb), nil

	case "EC":
		if j.Crv != "P-256" {
			return nil, errors.New("jwtx: unsupported EC curve " + j.Crv)
		}
		xb, err := base64.RawURLEncoding.DecodeString(j.X)
		if err != nil {
			return nil, err
		}
		yb, err := base64.RawURLEncoding.DecodeString(j.Y)
		if err != nil {
			return nil, err
		}
		return &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(xb),
			Y:     new(big.Int).SetBytes(yb),
		}, nil

	default:
		return nil, errors.New("jwtx: unsupported kty " + j.Kty)
	}
}
