package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	userID := uuid.New()

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()
		tokenString := signToken(t, testSecret, jwt.MapClaims{
			"sub":   userID.String(),
			"email": "ana@example.com",
			"role":  "customer",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})

		identity, err := verifier.Verify(tokenString)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if identity.UserID != userID {
			t.Errorf("UserID = %v, want %v", identity.UserID, userID)
		}
		if identity.Email != "ana@example.com" {
			t.Errorf("Email = %q, want %q", identity.Email, "ana@example.com")
		}
		if identity.Admin {
			t.Error("Admin = true, want false")
		}
	})

	t.Run("admin role", func(t *testing.T) {
		t.Parallel()
		tokenString := signToken(t, testSecret, jwt.MapClaims{
			"sub":  userID.String(),
			"role": "admin",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})

		identity, err := verifier.Verify(tokenString)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !identity.Admin {
			t.Error("Admin = false, want true")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		tokenString := signToken(t, "other-secret", jwt.MapClaims{
			"sub": userID.String(),
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		if _, err := verifier.Verify(tokenString); err == nil {
			t.Fatal("Verify() expected error for wrong secret")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()
		tokenString := signToken(t, testSecret, jwt.MapClaims{
			"sub": userID.String(),
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		if _, err := verifier.Verify(tokenString); err == nil {
			t.Fatal("Verify() expected error for expired token")
		}
	})

	t.Run("non-uuid subject", func(t *testing.T) {
		t.Parallel()
		tokenString := signToken(t, testSecret, jwt.MapClaims{
			"sub": "not-a-uuid",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		if _, err := verifier.Verify(tokenString); err == nil {
			t.Fatal("Verify() expected error for non-uuid subject")
		}
	})
}

func TestVerifier_FromRequest(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	userID := uuid.New()
	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	t.Run("bearer header", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)

		identity, err := verifier.FromRequest(req)
		if err != nil {
			t.Fatalf("FromRequest() error = %v", err)
		}
		if identity.UserID != userID {
			t.Errorf("UserID = %v, want %v", identity.UserID, userID)
		}
	})

	t.Run("session cookie", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tokenString})

		identity, err := verifier.FromRequest(req)
		if err != nil {
			t.Fatalf("FromRequest() error = %v", err)
		}
		if identity.UserID != userID {
			t.Errorf("UserID = %v, want %v", identity.UserID, userID)
		}
	})

	t.Run("no token", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		if _, err := verifier.FromRequest(req); err != ErrNoToken {
			t.Fatalf("FromRequest() error = %v, want ErrNoToken", err)
		}
	})

	t.Run("malformed header scheme", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic "+tokenString)

		if _, err := verifier.FromRequest(req); err != ErrNoToken {
			t.Fatalf("FromRequest() error = %v, want ErrNoToken", err)
		}
	})
}
