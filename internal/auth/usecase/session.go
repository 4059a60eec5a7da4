package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionValidator checks the HS256 user session tokens issued by the web app.
type SessionValidator struct {
	secret []byte
}

func NewSessionValidator(secret string) *SessionValidator {
	return &SessionValidator{secret: []byte(secret)}
}

// Issue signs a session token for ownerID.
func (s *SessionValidator) Issue(ownerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": ownerID,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate returns the owner id carried by a valid token.
func (s *SessionValidator) Validate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	ownerID, ok := claims["user_id"].(string)
	if !ok || ownerID == "" {
		return "", errors.New("invalid token claims")
	}
	return ownerID, nil
}
