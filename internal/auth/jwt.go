// AngelaMos | 2026
// jwt.go

package auth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Signer mints identity tokens shaped like the provider's. It backs the
// devtoken command and tests; production tokens come from the provider.
type Signer struct {
	privateKey jwk.Key
	publicJWKS jwk.Set
	issuer     string
	audience   string
	now        func() time.Time
}

type Identity struct {
	Subject string
	Email   string
}

func NewSignerFromFile(path, issuer, audience string) (*Signer, error) {
	privateKeyPEM, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	privateKey, err := jwk.ParseKey(privateKeyPEM, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return newSigner(privateKey, issuer, audience)
}

func NewSigner(raw *ecdsa.PrivateKey, issuer, audience string) (*Signer, error) {
	privateKey, err := jwk.Import(raw)
	if err != nil {
		return nil, fmt.Errorf("import private key: %w", err)
	}

	return newSigner(privateKey, issuer, audience)
}

func newSigner(privateKey jwk.Key, issuer, audience string) (*Signer, error) {
	if setErr := privateKey.Set(jwk.AlgorithmKey, jwa.ES256()); setErr != nil {
		return nil, fmt.Errorf("set algorithm: %w", setErr)
	}

	// The key id is derived from the key itself so a signer rebuilt from
	// PEM still matches a JWKS written earlier.
	thumbprint, err := privateKey.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("compute thumbprint: %w", err)
	}
	kid := base64.RawURLEncoding.EncodeToString(thumbprint)[:16]
	if setErr := privateKey.Set(jwk.KeyIDKey, kid); setErr != nil {
		return nil, fmt.Errorf("set key id: %w", setErr)
	}

	publicKey, err := privateKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	if setErr := publicKey.Set(jwk.KeyUsageKey, "sig"); setErr != nil {
		return nil, fmt.Errorf("set key usage: %w", setErr)
	}

	publicJWKS := jwk.NewSet()
	if addErr := publicJWKS.AddKey(publicKey); addErr != nil {
		return nil, fmt.Errorf("add key to set: %w", addErr)
	}

	return &Signer{
		privateKey: privateKey,
		publicJWKS: publicJWKS,
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}, nil
}

func (s *Signer) Sign(identity Identity, ttl time.Duration) (string, error) {
	now := s.now()

	builder := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Subject(identity.Subject).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(ttl))

	if s.issuer != "" {
		builder = builder.Issuer(s.issuer)
	}
	if s.audience != "" {
		builder = builder.Audience([]string{s.audience})
	}
	if identity.Email != "" {
		builder = builder.Claim("email", identity.Email)
	}

	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), s.privateKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return string(signed), nil
}

func (s *Signer) PublicKeySet() jwk.Set {
	return s.publicJWKS
}

func (s *Signer) KeyID() string {
	var kid string
	//nolint:errcheck // key ID always set during newSigner
	_ = s.privateKey.Get(jwk.KeyIDKey, &kid)
	return kid
}

// GenerateKeyPair writes a fresh ES256 private key as PEM and the
// matching public key as a JWKS document the Verifier can read.
func GenerateKeyPair(privateKeyPath, jwksPath string) error {
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	signer, err := NewSigner(raw, "", "")
	if err != nil {
		return err
	}

	privatePEM, err := jwk.Pem(signer.privateKey)
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}

	if writeErr := os.WriteFile(privateKeyPath, privatePEM, 0o600); writeErr != nil {
		return fmt.Errorf("write private key: %w", writeErr)
	}

	jwks, err := json.MarshalIndent(signer.publicJWKS, "", "  ")
	if err != nil {
		return fmt.Errorf("encode jwks: %w", err)
	}

	//nolint:gosec // G306: public key set is intentionally world-readable
	if writeErr := os.WriteFile(jwksPath, jwks, 0o644); writeErr != nil {
		return fmt.Errorf("write jwks: %w", writeErr)
	}

	return nil
}
