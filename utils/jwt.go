package utils

import (
	"errors"
	"time"

	"touchflow/config"
	"touchflow/models"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	BusinessID uint `json:"business_id"`
	jwt.RegisteredClaims
}

// GenerateJWTToken mints a short-lived tenant token for a business
// that has already authenticated with its API key.
func GenerateJWTToken(business *models.Business) (string, error) {
	claims := &Claims{
		BusinessID: business.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// ParseJWTToken validates a tenant token and returns its claims.
func ParseJWTToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
