package utils

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	jwtKey        = []byte(os.Getenv("JWT_SECRET"))
	jwtRefreshKey = []byte(os.Getenv("JWT_REFRESH_SECRET"))
)

const (
	tokenIssuer   = "sistema-pagamentos"
	tokenAudience = "sistema-pagamentos-app"
)

var ErrTokenExpired = errors.New("token expired")

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func newClaims(userID uuid.UUID, email string, ttl time.Duration) *Claims {
	return &Claims{
		UserID: userID.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func CreateAccessToken(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, newClaims(userID, email, ttl))
	return token.SignedString(jwtKey)
}

func CreateRefreshToken(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, newClaims(userID, email, ttl))
	return token.SignedString(jwtRefreshKey)
}

func validate(tokenString string, key []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithAudience(tokenAudience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	return claims, nil
}

func ValidateToken(tokenString string) (*Claims, error) {
	return validate(tokenString, jwtKey)
}

func ValidateRefreshToken(tokenString string) (*Claims, error) {
	return validate(tokenString, jwtRefreshKey)
}
