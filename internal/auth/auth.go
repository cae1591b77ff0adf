// Package auth verifies agent/admin bearer tokens. Token issuance is out of
// scope for the core (spec: "only the verify-token capability is
// consumed"); this package never mints tokens.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"support-chat-broker/internal/models"
)

// ErrInvalidToken is returned for any token that fails parsing, signature
// verification, or carries an unparseable role claim.
var ErrInvalidToken = errors.New("invalid token")

// Verifier verifies an opaque bearer token and reports the caller's identity
// and role. It is the only authentication capability the core consumes.
type Verifier interface {
	VerifyToken(token string) (subject string, role models.Role, err error)
}

// JWTVerifier verifies HMAC-signed JWTs, grounded on the teacher's
// ValidateJWT, extended to also extract and bound-check the role claim.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier builds a Verifier backed by the given HMAC secret.
func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

// VerifyToken parses tokenString, verifies its HMAC signature, and extracts
// the subject and role claims.
func (v *JWTVerifier) VerifyToken(tokenString string) (string, models.Role, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", ErrInvalidToken
	}

	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", "", ErrInvalidToken
	}

	rawRole, _ := claims["role"].(string)
	role, ok := models.ParseRole(rawRole)
	if !ok {
		return "", "", fmt.Errorf("%w: unrecognized role %q", ErrInvalidToken, rawRole)
	}

	return subject, role, nil
}

// SharedSecretBypass implements Verifier for the ADMIN_SHARED_SECRET dev-mode
// path: any token equal to the configured secret authenticates as
// super_admin, bypassing RBAC entirely. Grounded on the teacher's
// bypass-token check in internal/middleware/maintenance.go, generalized
// from "skip maintenance mode" to "skip role verification."
type SharedSecretBypass struct {
	Secret string
	Next   Verifier
}

// VerifyToken authenticates as RoleSuperAdmin when token matches the
// configured shared secret, otherwise delegates to Next.
func (b SharedSecretBypass) VerifyToken(token string) (string, models.Role, error) {
	if b.Secret != "" && token == b.Secret {
		return "admin-shared-secret", models.RoleSuperAdmin, nil
	}
	if b.Next == nil {
		return "", "", ErrInvalidToken
	}
	return b.Next.VerifyToken(token)
}
