package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID    string
	Username  string
	OwnerID   string
	Role      string
	ExpiresAt time.Time
}

func (c Claims) toMapClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":      c.UserID,
		"username": c.Username,
		"ownerId":  c.OwnerID,
		"role":     c.Role,
		"exp":      c.ExpiresAt.Unix(),
	}
}

func GenerateToken(c Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c.toMapClaims())
	return token.SignedString([]byte(secret))
}

func ParseToken(tokenStr, secret string) (*Principal, error) {
	token, err := jwt.Parse(tokenStr, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	p := &Principal{}
	if v, ok := claims["sub"].(string); ok {
		p.UserID = v
	}
	if v, ok := claims["username"].(string); ok {
		p.Username = v
	}
	if v, ok := claims["ownerId"].(string); ok {
		p.OwnerID = v
	}
	if v, ok := claims["role"].(string); ok {
		p.Role = v
	}
	if p.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return p, nil
}
