package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestProvider(t *testing.T) *TokenProvider {
	t.Helper()
	p, err := NewTokenProvider("test-secret", "", "", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	return p
}

func TestNewTokenProvider_Defaults(t *testing.T) {
	p := newTestProvider(t)
	if p.issuer != DefaultIssuer || p.audience != DefaultAudience {
		t.Errorf("issuer/audience = %q/%q, want defaults", p.issuer, p.audience)
	}
	if _, err := NewTokenProvider("", "", "", 0); err != ErrEmptySecret {
		t.Errorf("empty secret: want ErrEmptySecret, got %v", err)
	}
	p, err := NewTokenProvider("s", "", "", 0)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	if p.ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h default", p.ttl)
	}
}

func TestTokenProvider_IssueAndValidate(t *testing.T) {
	p := newTestProvider(t)
	token, exp, err := p.Issue("alice", "session_1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	claims, err := p.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "alice" || claims.SessionID != "session_1" {
		t.Errorf("Validate: got subject=%q session=%q", claims.Subject, claims.SessionID)
	}
	if claims.ID == "" {
		t.Error("jti should be set")
	}
}

func TestTokenProvider_ValidateInvalid(t *testing.T) {
	p := newTestProvider(t)
	if _, err := p.Validate("invalid-token"); err != ErrInvalidToken {
		t.Errorf("Validate invalid token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateWrongSecret(t *testing.T) {
	p := newTestProvider(t)
	other, err := NewTokenProvider("other-secret", "", "", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	token, _, err := other.Issue("alice", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Validate(token); err != ErrInvalidToken {
		t.Errorf("wrong secret: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateWrongAudience(t *testing.T) {
	p := newTestProvider(t)
	other, err := NewTokenProvider("test-secret", "", "other-aud", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	token, _, err := other.Issue("alice", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Validate(token); err != ErrInvalidToken {
		t.Errorf("wrong audience: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateExpired(t *testing.T) {
	p := newTestProvider(t)
	issued := time.Now().Add(-2 * time.Hour)
	p.nowF = func() time.Time { return issued }
	token, _, err := p.Issue("alice", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	p.nowF = time.Now
	if _, err := p.Validate(token); err != ErrInvalidToken {
		t.Errorf("expired token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateRejectsOtherAlgorithms(t *testing.T) {
	p := newTestProvider(t)
	claims := IngestClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    DefaultIssuer,
		Audience:  jwt.ClaimStrings{DefaultAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := p.Validate(token); err != ErrInvalidToken {
		t.Errorf("alg none: want ErrInvalidToken, got %v", err)
	}
}
