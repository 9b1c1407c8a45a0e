package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var errBadToken = errors.New("invalid bearer token")

// playerName resolves the display name for a joining connection. With a JWT
// secret configured, a presented bearer token must verify and carry a "name"
// claim; anonymous connections fall back to the name query parameter.
func (s *Server) playerName(r *http.Request) (string, error) {
	if token := bearerToken(r); token != "" {
		if s.cfg.JWTSecret == "" {
			return "", errBadToken
		}
		return s.nameFromToken(token)
	}
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		return name, nil
	}
	return "player", nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	// Browsers cannot set headers on websocket dials.
	return r.URL.Query().Get("token")
}

func (s *Server) nameFromToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return "", errBadToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errBadToken
	}
	name, _ := claims["name"].(string)
	if name == "" {
		return "", errBadToken
	}
	return name, nil
}
