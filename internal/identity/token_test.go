package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer   = "https://tenant.eu.auth0.com/"
	testAudience = "WvPW3q4XLzxWyzLkRDLZn6mnF3ucbuMv"
)

func newSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func keySetFor(kid string, key *rsa.PrivateKey) *KeySet {
	return &KeySet{jwks: jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &key.PublicKey,
		KeyID:     kid,
		Algorithm: "RS256",
		Use:       "sig",
	}}}}
}

func defaultClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            testIssuer,
		"aud":            testAudience,
		"exp":            time.Now().Add(time.Hour).Unix(),
		"iat":            time.Now().Add(-time.Minute).Unix(),
		"name":           "armin@replicator.org",
		"email":          "armin@replicator.org",
		"email_verified": true,
		"picture":        "https://s.gravatar.com/avatar/ab20e5?s=480",
		"updated_at":     "2023-12-01T09:59:57.720Z",
	}
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestValidateReturnsClaimsFromToken(t *testing.T) {
	key := newSigningKey(t)
	keys := keySetFor("key-1", key)
	raw := signToken(t, key, "key-1", defaultClaims())

	got, err := Validate(testIssuer, testAudience, keys, raw)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	if got.DisplayName != "armin@replicator.org" {
		t.Fatalf("unexpected display name %q", got.DisplayName)
	}
	if got.Email != "armin@replicator.org" {
		t.Fatalf("unexpected email %q", got.Email)
	}
	if !got.EmailVerified {
		t.Fatal("expected email_verified to carry through")
	}
	if got.PictureURL == "" {
		t.Fatal("expected picture claim to carry through")
	}

	wantObserved, _ := time.Parse(time.RFC3339, "2023-12-01T09:59:57.720Z")
	if !got.ObservedAt.Equal(wantObserved) {
		t.Fatalf("expected observedAt %v, got %v", wantObserved, got.ObservedAt)
	}
}

func TestValidateRejectsMissingKid(t *testing.T) {
	key := newSigningKey(t)
	keys := keySetFor("key-1", key)
	raw := signToken(t, key, "", defaultClaims())

	_, err := Validate(testIssuer, testAudience, keys, raw)
	if !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}

func TestValidateRejectsUnknownKid(t *testing.T) {
	key := newSigningKey(t)
	keys := keySetFor("key-1", key)
	raw := signToken(t, key, "key-2", defaultClaims())

	_, err := Validate(testIssuer, testAudience, keys, raw)
	if !errors.Is(err, ErrUnknownSigningKey) {
		t.Fatalf("expected ErrUnknownSigningKey, got %v", err)
	}
	if errors.Is(err, ErrBadSignature) {
		t.Fatal("unknown kid must not surface as a signature error")
	}
}

func TestValidateRejectsForgedSignature(t *testing.T) {
	key := newSigningKey(t)
	forger := newSigningKey(t)
	keys := keySetFor("key-1", key)

	// Forged token reuses the published kid but is signed by another key.
	raw := signToken(t, forger, "key-1", defaultClaims())

	_, err := Validate(testIssuer, testAudience, keys, raw)
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestValidateRejectsGarbageToken(t *testing.T) {
	key := newSigningKey(t)
	keys := keySetFor("key-1", key)

	_, err := Validate(testIssuer, testAudience, keys, "not.a.token")
	if !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}

func TestValidateRejectsIssuerMismatch(t *testing.T) {
	key := newSigningKey(t)
	keys := keySetFor("key-1", key)
	claims := defaultClaims()
	claims["iss"] = "https://evil.example.com/"
	raw := signToken(t, key, "key-1", claims)

	_, err := Validate(testIssuer, testAudience, keys, raw)
	if !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims, got %v", err)
	}
}

func TestValidateRejectsAudienceMismatch(t *testing.T) {
	key := newSigningKey(t)
	keys := keySetFor("key-1", key)
	claims := defaultClaims()
	claims["aud"] = "some-other-client"
	raw := signToken(t, key, "key-1", claims)

	_, err := Validate(testIssuer, testAudience, keys, raw)
	if !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims, got %v", err)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	key := newSigningKey(t)
	keys := keySetFor("key-1", key)
	claims := defaultClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	raw := signToken(t, key, "key-1", claims)

	_, err := Validate(testIssuer, testAudience, keys, raw)
	if !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims, got %v", err)
	}
}

func TestValidateRequiresNameAndEmail(t *testing.T) {
	key := newSigningKey(t)
	keys := keySetFor("key-1", key)

	for _, missing := range []string{"name", "email"} {
		claims := defaultClaims()
		delete(claims, missing)
		raw := signToken(t, key, "key-1", claims)

		_, err := Validate(testIssuer, testAudience, keys, raw)
		if !errors.Is(err, ErrInvalidClaims) {
			t.Fatalf("missing %s: expected ErrInvalidClaims, got %v", missing, err)
		}
	}
}

func TestValidateRejectsUnsignedToken(t *testing.T) {
	key := newSigningKey(t)
	keys := keySetFor("key-1", key)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, defaultClaims())
	token.Header["kid"] = "key-1"
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := Validate(testIssuer, testAudience, keys, raw); err == nil {
		t.Fatal("expected alg=none token to be rejected")
	}
}

func TestValidateRejectsAlgorithmKeyMismatch(t *testing.T) {
	key := newSigningKey(t)
	keys := keySetFor("key-1", key)

	// Key is published for RS256; a PS256 header must not verify against it.
	token := jwt.NewWithClaims(jwt.SigningMethodPS256, defaultClaims())
	token.Header["kid"] = "key-1"
	raw, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	_, verr := Validate(testIssuer, testAudience, keys, raw)
	if !errors.Is(verr, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", verr)
	}
}

func TestValidateWithoutKeySet(t *testing.T) {
	key := newSigningKey(t)
	raw := signToken(t, key, "key-1", defaultClaims())

	_, err := Validate(testIssuer, testAudience, nil, raw)
	if !errors.Is(err, ErrUnknownSigningKey) {
		t.Fatalf("expected ErrUnknownSigningKey, got %v", err)
	}
}
