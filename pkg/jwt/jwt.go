package jwt

import (
	"time"

	"squadup/backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateToken creates a signed JWT for a user. The lifetime comes
// from TOKEN_TTL_HOURS.
func GenerateToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(config.AppConfig.TokenTTLHours) * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}
