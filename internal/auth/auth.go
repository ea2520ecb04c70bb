package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "todo_session"

var ErrInvalidToken = errors.New("invalid session token")

type Claims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies the signed session tokens carried in the
// auth cookie. A fresh token is issued on every successful login or
// registration; logout just clears the cookie.
type Sessions struct {
	secret       []byte
	ttl          time.Duration
	cookieSecure bool
}

func NewSessions(secret string, ttl time.Duration, cookieSecure bool) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, cookieSecure: cookieSecure}
}

func (s *Sessions) Sign(userID uint) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

func (s *Sessions) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if c, ok := token.Claims.(*Claims); ok && token.Valid && c.UserID != 0 {
		return c, nil
	}
	return nil, ErrInvalidToken
}

func (s *Sessions) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cookieSecure,
		Expires:  time.Now().Add(s.ttl),
	})
}

func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cookieSecure,
		MaxAge:   -1,
	})
}

// UserIDFromRequest extracts the authenticated user ID from the session
// cookie, or 0 when the request carries no valid session.
func (s *Sessions) UserIDFromRequest(r *http.Request) uint {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return 0
	}
	claims, err := s.Parse(c.Value)
	if err != nil {
		return 0
	}
	return claims.UserID
}
