package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("test-secret", "renter-42", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT("test-secret", token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.Account != "renter-42" {
		t.Errorf("account = %q, want renter-42", claims.Account)
	}
	if claims.Issuer != "rental-platform" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestParseJWTRejects(t *testing.T) {
	token, err := GenerateJWT("secret-a", "renter-42", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	t.Run("wrong secret", func(t *testing.T) {
		if _, err := ParseJWT("secret-b", token); err == nil {
			t.Error("token accepted with wrong secret")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		claims := Claims{
			Account: "renter-42",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			},
		}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret-a"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := ParseJWT("secret-a", expired); err == nil {
			t.Error("expired token accepted")
		}
	})

	t.Run("missing account claim", func(t *testing.T) {
		anon, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString([]byte("secret-a"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := ParseJWT("secret-a", anon); err == nil {
			t.Error("token without account claim accepted")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := ParseJWT("secret-a", "not.a.token"); err == nil {
			t.Error("garbage accepted")
		}
	})
}
