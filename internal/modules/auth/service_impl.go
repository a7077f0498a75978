package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// tokenClaims matches the HS256 access tokens issued by the storefront's
// auth provider.
type tokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.StandardClaims
}

// HMACService verifies and issues HS256 tokens with a shared secret.
type HMACService struct {
	key []byte
}

func NewService(secret string) *HMACService {
	return &HMACService{key: []byte(secret)}
}

func (s *HMACService) Verify(_ context.Context, token string) (*Claims, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return &Claims{Subject: claims.Subject, Role: claims.Role}, nil
}

// Issue signs a token for subject valid for ttl.
func (s *HMACService) Issue(subject, role string, ttl time.Duration) (string, error) {
	claims := &tokenClaims{
		Role: role,
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}
