package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validation failures. All of them mean the assertion is rejected and the
// request carrying it fails; none of them is retried automatically.
var (
	// ErrMalformedToken reports a token that could not be decoded, or one
	// whose header does not name a signing key.
	ErrMalformedToken = errors.New("identity: malformed token")
	// ErrUnknownSigningKey reports a kid absent from the current key set.
	// The cache may be stale; callers may refresh and retry once.
	ErrUnknownSigningKey = errors.New("identity: unknown signing key")
	// ErrBadSignature reports a signature that does not verify under the
	// published key, or an algorithm the key does not allow.
	ErrBadSignature = errors.New("identity: signature verification failed")
	// ErrInvalidClaims reports a verified token whose claims do not match
	// expectations (issuer, audience, validity window, required claims).
	ErrInvalidClaims = errors.New("identity: invalid claims")
)

// VerifiedIdentity is the outcome of a successful validation. The raw
// assertion is discarded once this value exists.
type VerifiedIdentity struct {
	DisplayName   string
	Email         string
	EmailVerified bool
	PictureURL    string
	ObservedAt    time.Time
}

// idClaims mirrors the OpenID Connect standard claims we consume. Auth0
// serialises updated_at as an RFC 3339 date string rather than the numeric
// date the OIDC core spec prescribes.
type idClaims struct {
	jwt.RegisteredClaims

	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`
	UpdatedAt     string `json:"updated_at"`
}

// signingMethods lists the asymmetric algorithms a provider key set can
// legitimately declare. "none" and HMAC methods are rejected outright.
var signingMethods = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512"}

// Validate verifies a signed identity assertion against the given key set
// and the expected issuer and audience. It is a pure function: no claim is
// trusted, and nothing is produced, before the signature checks out.
func Validate(issuer, audience string, keys *KeySet, rawToken string) (*VerifiedIdentity, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: no key set", ErrUnknownSigningKey)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(signingMethods),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
	)

	claims := &idClaims{}
	_, err := parser.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrMalformedToken)
		}
		key, ok := keys.ByKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("%w: kid %q", ErrUnknownSigningKey, kid)
		}
		if key.Algorithm != "" && key.Algorithm != t.Method.Alg() {
			return nil, fmt.Errorf("%w: alg %q does not match key", ErrBadSignature, t.Method.Alg())
		}
		return key.Key, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if claims.Name == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrInvalidClaims)
	}

	observedAt := time.Now()
	if claims.UpdatedAt != "" {
		if ts, parseErr := time.Parse(time.RFC3339, claims.UpdatedAt); parseErr == nil {
			observedAt = ts
		}
	}

	return &VerifiedIdentity{
		DisplayName:   claims.Name,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		PictureURL:    claims.Picture,
		ObservedAt:    observedAt,
	}, nil
}

// classifyTokenError maps golang-jwt failures onto the validation taxonomy.
// Errors minted by our own keyfunc pass through unchanged.
func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, ErrMalformedToken),
		errors.Is(err, ErrUnknownSigningKey),
		errors.Is(err, ErrBadSignature):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}
