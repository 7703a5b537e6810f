package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims of dashboard access tokens. Tokens are issued by the account service;
// this service only validates them.
type Claims struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	InstanceID string `json:"instanceId,omitempty"`
	TokenType  string `json:"tokenType"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an access token. Used by tests and local tooling.
func GenerateAccessToken(userID, email, instanceID, secret string, expiration time.Duration) (string, error) {
	claims := &Claims{
		UserID:     userID,
		Email:      email,
		InstanceID: instanceID,
		TokenType:  "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenType != "access" {
		return nil, errors.New("not an access token")
	}

	return claims, nil
}
