package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/latoalla/roster-server/internal/model"
)

// Claims represents identity token claims. The subject carries the owner id.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	TokenType string `json:"typ"`
}

// JWT implements TokenManager backed by symmetric HMAC.
// Tokens are issued by the identity provider; generation exists for tooling and tests.
type JWT struct {
	secretKey string
	ttl       time.Duration
}

// NewJWT creates a new JWT token manager with the provided secret key.
func NewJWT(secretKey string) model.TokenManager {
	return &JWT{secretKey: secretKey, ttl: accessTTL}
}

const (
	accessTTL  = time.Hour
	typeAccess = "access"
)

// GenerateAccessToken creates an access token for the identity.
func (j *JWT) GenerateAccessToken(identity model.Identity) (string, error) {
	if identity.Anonymous() {
		return "", fmt.Errorf("identity has neither owner id nor email")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.OwnerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
		Email:     identity.OwnerEmail,
		TokenType: typeAccess,
	})

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ParseAccessToken validates the token and extracts the caller identity.
func (j *JWT) ParseAccessToken(tokenString string) (model.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	if !token.Valid {
		return model.Identity{}, fmt.Errorf("access token is invalid")
	}
	if claims.TokenType != typeAccess {
		return model.Identity{}, fmt.Errorf("token type mismatch: %s", claims.TokenType)
	}

	identity := model.Identity{OwnerID: claims.Subject, OwnerEmail: claims.Email}
	if identity.Anonymous() {
		return model.Identity{}, fmt.Errorf("access token carries no identity")
	}
	return identity, nil
}
