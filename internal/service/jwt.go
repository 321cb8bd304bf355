package service

import (
	"errors"
	"time"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

func InitJWT(secret string) {
	if secret == "" {
		panic("jwt secret is empty")
	}
	jwtSecret = []byte(secret)
}

// GenerateJWT mints a session token for a player identity.
func GenerateJWT(id domain.Identity) (string, error) {
	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"uid":  id.UID,
		"name": id.DisplayName,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  now,
		"nbf":  now,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseJWT validates a token and returns the identity inside it.
func ParseJWT(tokenString string) (domain.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})

	if err != nil || !token.Valid {
		return domain.Identity{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if exp, ok := claims["exp"].(float64); ok {
		if int64(exp) < now {
			return domain.Identity{}, errors.New("token expired")
		}
	}
	if nbf, ok := claims["nbf"].(float64); ok {
		if int64(nbf) > now {
			return domain.Identity{}, errors.New("token not valid yet")
		}
	}

	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return domain.Identity{}, errors.New("uid not found")
	}
	name, _ := claims["name"].(string)

	return domain.Identity{UID: uid, DisplayName: name}, nil
}
