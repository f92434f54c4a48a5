package session

import (
	"fmt"

	"github.com/golang-jwt/jwt"
	"uk.co.dudmesh.aura/internal/model"
)

type claims struct {
	jwt.StandardClaims
	User *model.Session `json:"user"`
}

func encodeToken(session *model.Session, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		StandardClaims: jwt.StandardClaims{Subject: string(session.ID)},
		User:           session,
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing session: %w", err)
	}
	return signed, nil
}

func decodeToken(raw string, secret []byte) (*model.Session, error) {
	parsed := &claims{}
	_, err := jwt.ParseWithClaims(raw, parsed, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}
	if parsed.User == nil || parsed.User.ID == "" || string(parsed.User.ID) != parsed.Subject {
		return nil, fmt.Errorf("session has no user")
	}
	return parsed.User, nil
}
