package auth

// Package auth verifies storefront session tokens issued by the auth frontend.

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoToken is returned when a request carries no session token at all.
var ErrNoToken = errors.New("no session token")

// ErrInvalidToken is returned when a token is present but cannot be verified.
var ErrInvalidToken = errors.New("invalid session token")

const sessionCookieName = "croma_session"

// Identity is the verified subject of a session token.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Admin  bool
}

type sessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier verifies HS256 session tokens against a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates a raw token string.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid subject: %w", ErrInvalidToken, err)
	}

	return &Identity{
		UserID: userID,
		Email:  claims.Email,
		Admin:  claims.Role == "admin",
	}, nil
}

// FromRequest extracts and verifies the session token on a request. The
// Authorization header takes precedence over the session cookie. A request
// without a token returns ErrNoToken; callers that allow guests treat that
// as an anonymous identity.
func (v *Verifier) FromRequest(r *http.Request) (*Identity, error) {
	tokenString := bearerToken(r)
	if tokenString == "" {
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			tokenString = cookie.Value
		}
	}
	if tokenString == "" {
		return nil, ErrNoToken
	}
	return v.Verify(tokenString)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
