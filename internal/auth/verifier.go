// Package auth verifies API bearer tokens and extracts the caller's role and property scope.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

const (
	ModeDev  = "dev"
	ModeHMAC = "hmac"

	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

var ErrInvalidToken = errors.New("invalid token")

// Principal is the verified caller. Admins reach every property; other roles only those listed.
type Principal struct {
	Subject    string
	Role       string
	Properties []string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

func (p Principal) CanAccess(propertyID string) bool {
	return p.IsAdmin() || slices.Contains(p.Properties, "*") || slices.Contains(p.Properties, propertyID)
}

// Claims carry the role and property scope next to the registered JWT claims.
type Claims struct {
	Role       string   `json:"role"`
	Properties []string `json:"properties"`
	jwt.RegisteredClaims
}

// Verifier checks tokens. In dev mode a token is "role:prop1,prop2" and nothing is signed.
type Verifier struct {
	Mode   string
	Secret []byte
}

func NewVerifier(mode, secret string) (*Verifier, error) {
	switch mode {
	case "", ModeDev:
		return &Verifier{Mode: ModeDev}, nil
	case ModeHMAC:
		if secret == "" {
			return nil, errors.New("hmac auth needs a secret")
		}
		return &Verifier{Mode: ModeHMAC, Secret: []byte(secret)}, nil
	}
	return nil, fmt.Errorf("unsupported auth mode %q", mode)
}

func (v *Verifier) Verify(token string) (Principal, error) {
	if v.Mode == ModeDev {
		role, props, _ := strings.Cut(token, ":")
		if role == "" {
			return Principal{}, fmt.Errorf("%w: expected role:properties", ErrInvalidToken)
		}
		p := Principal{Subject: "dev", Role: strings.ToLower(role)}
		if props != "" {
			p.Properties = strings.Split(props, ",")
		}
		return p, nil
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Header["alg"])
		}
		return v.Secret, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	role := strings.ToLower(claims.Role)
	if role == "" {
		role = RoleOperator
	}
	return Principal{Subject: claims.Subject, Role: role, Properties: claims.Properties}, nil
}

// Sign issues an HS256 token; used by tests and the demo client.
func Sign(secret []byte, claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
