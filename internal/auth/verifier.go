// AngelaMos | 2026
// verifier.go

package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/notbyai-space/curation-api/internal/config"
	"github.com/notbyai-space/curation-api/internal/core"
	"github.com/notbyai-space/curation-api/internal/middleware"
)

type KeySource func(ctx context.Context) (jwk.Set, error)

// DefaultMinForcedRefresh bounds how often a token that fails
// verification may trigger an out-of-schedule key fetch.
const DefaultMinForcedRefresh = time.Minute

// Verifier checks session tokens issued by the external identity
// provider. The service never sees credentials; a token that verifies
// against the provider's JWKS is the caller's identity.
type Verifier struct {
	source    KeySource
	refresh   time.Duration
	minForced time.Duration
	issuer    string
	audience  string
	skew      time.Duration
	now       func() time.Time

	forceMu    sync.Mutex
	lastForced time.Time

	mu        sync.RWMutex
	keys      jwk.Set
	fetchedAt time.Time
}

type VerifierOptions struct {
	Issuer         string
	Audience       string
	AcceptableSkew time.Duration
	Refresh        time.Duration
	// MinForcedRefresh defaults to DefaultMinForcedRefresh.
	MinForcedRefresh time.Duration
}

func NewVerifier(
	ctx context.Context,
	cfg config.IdentityConfig,
) (*Verifier, error) {
	var source KeySource
	switch {
	case cfg.JWKSURL != "":
		url := cfg.JWKSURL
		source = func(ctx context.Context) (jwk.Set, error) {
			return jwk.Fetch(ctx, url)
		}
	case cfg.JWKSPath != "":
		path := cfg.JWKSPath
		source = func(context.Context) (jwk.Set, error) {
			return jwk.ReadFile(path)
		}
	default:
		return nil, fmt.Errorf("identity: no JWKS source configured")
	}

	return NewVerifierFromSource(ctx, source, VerifierOptions{
		Issuer:         cfg.Issuer,
		Audience:       cfg.Audience,
		AcceptableSkew: cfg.AcceptableSkew,
		Refresh:        cfg.JWKSRefresh,
	})
}

func NewVerifierFromSource(
	ctx context.Context,
	source KeySource,
	opts VerifierOptions,
) (*Verifier, error) {
	minForced := opts.MinForcedRefresh
	if minForced <= 0 {
		minForced = DefaultMinForcedRefresh
	}

	v := &Verifier{
		source:    source,
		refresh:   opts.Refresh,
		minForced: minForced,
		issuer:    opts.Issuer,
		audience:  opts.Audience,
		skew:      opts.AcceptableSkew,
		now:       time.Now,
	}

	if _, err := v.loadKeys(ctx, true); err != nil {
		return nil, err
	}

	return v, nil
}

func (v *Verifier) KeyCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.keys.Len()
}

func (v *Verifier) VerifyIdentityToken(
	ctx context.Context,
	tokenString string,
) (*middleware.IdentityClaims, error) {
	keys, err := v.loadKeys(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	token, err := v.parse(tokenString, keys)
	if err != nil && !isTokenExpiredError(err) && v.refresh > 0 && isSignedMessage(tokenString) {
		// The provider may have rotated keys since the last fetch.
		if fresh, ok := v.forceRefresh(ctx); ok {
			token, err = v.parse(tokenString, fresh)
		}
	}
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	var email string
	//nolint:errcheck // email is optional outside of sync
	_ = token.Get("email", &email)

	return &middleware.IdentityClaims{
		Subject: subject,
		Email:   strings.ToLower(strings.TrimSpace(email)),
	}, nil
}

func (v *Verifier) parse(tokenString string, keys jwk.Set) (jwt.Token, error) {
	opts := []jwt.ParseOption{
		jwt.WithKeySet(keys, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.skew),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	return jwt.Parse([]byte(tokenString), opts...)
}

func (v *Verifier) loadKeys(ctx context.Context, force bool) (jwk.Set, error) {
	v.mu.RLock()
	keys, fetchedAt := v.keys, v.fetchedAt
	v.mu.RUnlock()

	stale := v.refresh > 0 && v.now().Sub(fetchedAt) > v.refresh
	if keys != nil && !force && !stale {
		return keys, nil
	}

	fresh, err := v.source(ctx)
	if err != nil {
		if keys != nil {
			return keys, nil
		}
		return nil, fmt.Errorf("load identity keys: %w", err)
	}
	if fresh.Len() == 0 {
		return nil, fmt.Errorf("load identity keys: key set is empty")
	}

	v.mu.Lock()
	v.keys = fresh
	v.fetchedAt = v.now()
	v.mu.Unlock()

	return fresh, nil
}

// forceRefresh refetches the key set at most once per minForced
// interval; concurrent callers share the result.
func (v *Verifier) forceRefresh(ctx context.Context) (jwk.Set, bool) {
	v.forceMu.Lock()
	defer v.forceMu.Unlock()

	v.mu.RLock()
	fetchedAt := v.fetchedAt
	v.mu.RUnlock()

	now := v.now()
	if now.Sub(fetchedAt) < v.minForced || now.Sub(v.lastForced) < v.minForced {
		return nil, false
	}
	v.lastForced = now

	fresh, err := v.loadKeys(ctx, true)
	if err != nil {
		return nil, false
	}
	return fresh, true
}

func isSignedMessage(tokenString string) bool {
	_, err := jws.Parse([]byte(tokenString))
	return err == nil
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}
