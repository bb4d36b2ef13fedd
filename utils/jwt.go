package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"whatrack/config"
	"whatrack/models"
)

type Claims struct {
	OrganizationID uint `json:"organization_id"`
	TokenVersion   int  `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateAPIToken issues a long-lived API token for an organization. The
// token version lets a tenant revoke all outstanding tokens at once.
func GenerateAPIToken(org *models.Organization) (string, error) {
	claims := &Claims{
		OrganizationID: org.ID,
		TokenVersion:   org.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(365 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.EncryptionKey))
}

// ParseAPIToken validates a token and returns its claims.
func ParseAPIToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.EncryptionKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
