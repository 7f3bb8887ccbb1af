package auth

import (
	"crypto/rsa"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// VerifierConfig selects the signing algorithm. RS256 with a public key
// is the production path; an HMAC secret enables HS256 for development.
type VerifierConfig struct {
	PublicKey  string // PEM block inline, or a path to a PEM file
	HMACSecret string
}

// Verifier validates signed tokens and extracts identities.
type Verifier struct {
	method    string
	rsaPubKey *rsa.PublicKey
	hmacKey   []byte
}

// NewVerifier builds a verifier from config. Exactly one key source must
// be set; RS256 wins when both are.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	switch {
	case cfg.PublicKey != "":
		pem, err := loadPEM(cfg.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("load public key: %w", err)
		}
		pub, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		return &Verifier{method: "RS256", rsaPubKey: pub}, nil

	case cfg.HMACSecret != "":
		return &Verifier{method: "HS256", hmacKey: []byte(cfg.HMACSecret)}, nil

	default:
		return nil, fmt.Errorf("no verification key configured")
	}
}

// Verify parses and validates a token, returning the identity it names.
// Tokens without a role claim get the viewer role.
func (v *Verifier) Verify(tokenStr string) (*Identity, error) {
	token, err := jwt.Parse(tokenStr, v.keyFunc,
		jwt.WithValidMethods([]string{v.method}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	role := RoleViewer
	if raw, ok := claims["role"].(string); ok {
		r := Role(raw)
		if !ValidRole(r) {
			return nil, fmt.Errorf("unknown role %q", raw)
		}
		role = r
	}

	return &Identity{UserID: sub, Role: role}, nil
}

func (v *Verifier) keyFunc(token *jwt.Token) (any, error) {
	switch token.Method.Alg() {
	case "RS256":
		return v.rsaPubKey, nil
	case "HS256":
		return v.hmacKey, nil
	default:
		return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
	}
}

func loadPEM(v string) ([]byte, error) {
	if strings.Contains(v, "-----BEGIN") {
		return []byte(v), nil
	}
	return os.ReadFile(v)
}
