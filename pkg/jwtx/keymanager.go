package jwtx

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/stshume/ohh-marketplace-auth-service/pkg/cryptox"
)

// Supported JWT signing algorithms
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
	AlgorithmHS256 = "HS256"
)

// KeyManager manages JWT signing and verification keys for an instance.
// Keys are selected randomly for signing when more than one is loaded.
type KeyManager struct {
	Verifier  Verifier
	KeySet    *KeySet
	algorithm string

	signers []Signer
	mu      sync.RWMutex
}

// KeyManagerOptions configures the KeyManager for a specific use case.
type KeyManagerOptions struct {
	// Algorithm specifies which signing algorithm to use.
	// Supported values: "RS256", "ES256", "EdDSA", "HS256". Defaults to RS256.
	Algorithm string

	// Issuer is the issuer claim (iss) that will be validated in tokens.
	Issuer string

	// Audience is the list of audience values (aud) that will be validated.
	// Empty slice means no audience validation.
	Audience []string

	// RSABits specifies the RSA key size for generated RS256 keys.
	// Defaults to 2048. Must be at least 2048.
	RSABits int

	// NumKeys specifies how many signing keys to generate.
	// Defaults to 1. Capped at 10.
	NumKeys int

	// PrivateKeyPEM, when set, is used as the single signing key instead of
	// generating ephemeral keys.
	PrivateKeyPEM []byte

	// HMACSecret is the shared secret for HS256.
	HMACSecret []byte

	// KeyID overrides the kid for a loaded (PEM or HMAC) key.
	KeyID string
}

// NewKeyManager builds a KeyManager from opts. HS256 needs HMACSecret, a
// PrivateKeyPEM loads a fixed asymmetric key, and otherwise ephemeral keys
// are generated.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmRS256
	}

	switch {
	case opts.Algorithm == AlgorithmHS256:
		kid := opts.KeyID
		if kid == "" {
			kid = "hs256"
		}
		signer, err := NewSignerHS256(kid, opts.HMACSecret)
		if err != nil {
			return nil, err
		}
		return newKeyManager(opts, []Signer{signer})

	case len(opts.PrivateKeyPEM) > 0:
		kid := opts.KeyID
		if kid == "" {
			var err error
			if kid, err = pemKeyID(opts.PrivateKeyPEM); err != nil {
				return nil, err
			}
		}
		signer, err := NewSignerFromPEM(opts.Algorithm, kid, opts.PrivateKeyPEM)
		if err != nil {
			return nil, err
		}
		return newKeyManager(opts, []Signer{signer})

	default:
		return NewEphemeralKeyManager(opts)
	}
}

// NewEphemeralKeyManager creates a new KeyManager with ephemeral keys.
// The keys only exist in memory, so every issued token becomes invalid
// when the service restarts.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmRS256
	}

	numKeys := opts.NumKeys
	if numKeys <= 0 {
		numKeys = 1
	}
	if numKeys > 10 {
		numKeys = 10
	}

	signers := make([]Signer, 0, numKeys)
	for i := 0; i < numKeys; i++ {
		keyID, err := generateRandomKeyID()
		if err != nil {
			return nil, err
		}

		signer, err := generateSigner(opts.Algorithm, keyID, opts.RSABits)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate signer %d: %w", i+1, err)
		}
		signers = append(signers, signer)
	}

	return newKeyManager(opts, signers)
}

func newKeyManager(opts KeyManagerOptions, signers []Signer) (*KeyManager, error) {
	keyset := NewKeySet()
	for i, s := range signers {
		if err := keyset.AddSigner(s); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add signer %d to keyset: %w", i+1, err)
		}
	}

	return &KeyManager{
		Verifier: NewVerifier(keyset, VerifyOptions{
			Issuer:   opts.Issuer,
			Audience: opts.Audience,
		}),
		KeySet:    keyset,
		algorithm: opts.Algorithm,
		signers:   signers,
	}, nil
}

// pemKeyID derives a kid from the public half of a loaded key, so the kid
// is stable across restarts.
func pemKeyID(pemKey []byte) (string, error) {
	priv, err := cryptox.ParsePrivateKeyPEM(pemKey)
	if err != nil {
		return "", fmt.Errorf("jwtx: %w", err)
	}
	fp, err := cryptox.PublicKeyFingerprint(priv.Public())
	if err != nil {
		return "", fmt.Errorf("jwtx: %w", err)
	}
	return fp[:16], nil
}

// generateSigner creates a new signer with the specified algorithm and key ID.
func generateSigner(algorithm, keyID string, rsaBits int) (Signer, error) {
	var pemBytes []byte
	var err error

	switch algorithm {
	case AlgorithmRS256:
		bits := rsaBits
		if bits == 0 {
			bits = 2048
		}
		pemBytes, err = cryptox.GenerateRSAKey(bits)
	case AlgorithmES256:
		pemBytes, err = cryptox.GenerateES256Key()
	case AlgorithmEdDSA:
		pemBytes, err = cryptox.GenerateEd25519Key()
	default:
		return nil, fmt.Errorf("unsupported algorithm %q (supported: RS256, ES256, EdDSA)", algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s key: %w", algorithm, err)
	}

	return NewSignerFromPEM(algorithm, keyID, pemBytes)
}

// Algorithm returns the signing algorithm being used.
func (km *KeyManager) Algorithm() string {
	return km.algorithm
}

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady()
}

// GetSigner returns a randomly selected signer from the available signing keys.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	}
	return km.signers[rand.IntN(len(km.signers))]
}

// Sign signs claims with one of the active keys.
func (km *KeyManager) Sign(c Claims) (string, error) {
	s := km.GetSigner()
	if s == nil {
		return "", fmt.Errorf("jwtx: no signing key loaded")
	}
	return s.Sign(c)
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// AddSigner adds a new signing key for both signing and verification.
func (km *KeyManager) AddSigner(signer Signer) error {
	if signer == nil {
		return fmt.Errorf("signer cannot be nil")
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.KeySet.AddSigner(signer); err != nil {
		return fmt.Errorf("failed to add signer to keyset: %w", err)
	}
	km.signers = append(km.signers, signer)
	return nil
}

// RetireSignerByKid removes a signing key from active signing operations.
// The key stays in the KeySet so tokens it already signed keep verifying.
func (km *KeyManager) RetireSignerByKid(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if len(km.signers) <= 1 {
		return fmt.Errorf("cannot retire the last signing key")
	}

	found := false
	next := make([]Signer, 0, len(km.signers)-1)
	for _, signer := range km.signers {
		if signer.KID() == kid {
			found = true
			continue
		}
		next = append(next, signer)
	}
	if !found {
		return fmt.Errorf("signer with kid %q not found", kid)
	}

	km.signers = next
	return nil
}

// generateRandomKeyID creates a random key identifier, "identity-{token}".
func generateRandomKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to generate key ID: %w", err)
	}
	return "identity-" + token, nil
}
