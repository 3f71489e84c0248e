package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc.def.ghi", "abc.def.ghi", true},
		{`Bearer "abc.def.ghi"`, "abc.def.ghi", true},
		{"Bearer abc.def.ghi, extra", "abc.def.ghi", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
	}
	for _, c := range cases {
		got, ok := ExtractBearerToken(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("ExtractBearerToken(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseToken(t *testing.T) {
	cfg := JWTConfig{Secret: "test-secret", Issuer: "stonemarket", Audience: "stonemarket-api"}
	actorID := uuid.New()
	industryID := uuid.New()

	sign := func(claims TokenClaims, secret string) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		s, err := tok.SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	valid := sign(TokenClaims{
		Role:       "ROLE_INDUSTRY",
		IndustryID: industryID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, cfg.Secret)

	claims, err := ParseToken(valid, cfg)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != actorID.String() || claims.Role != "ROLE_INDUSTRY" || claims.IndustryID != industryID.String() {
		t.Fatalf("claims mismatch: %+v", claims)
	}

	// wrong secret
	forged := sign(TokenClaims{
		Role: "ROLE_ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, "other-secret")
	if _, err := ParseToken(forged, cfg); err == nil {
		t.Fatalf("forged token accepted")
	}

	// expired
	expired := sign(TokenClaims{
		Role: "ROLE_INDUSTRY",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}, cfg.Secret)
	if _, err := ParseToken(expired, cfg); err == nil {
		t.Fatalf("expired token accepted")
	}

	// wrong issuer
	wrongIss := sign(TokenClaims{
		Role: "ROLE_INDUSTRY",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			Issuer:    "someone-else",
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, cfg.Secret)
	if _, err := ParseToken(wrongIss, cfg); err == nil {
		t.Fatalf("wrong issuer accepted")
	}
}
