package auth

import (
	"errors"
	"time"

	"loandesk/internal/domain/user"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Token is a signed HS256 access token and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Tokens issues and verifies access tokens carrying the actor's id and role.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(a user.Actor) (Token, error) {
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := jwt.MapClaims{
		"sub":  a.UserID,
		"role": string(a.Role),
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// Parse validates raw and returns the actor it was issued for.
func (t *Tokens) Parse(raw string) (user.Actor, error) {
	tok, err := jwt.Parse(raw, func(tk *jwt.Token) (any, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !tok.Valid {
		return user.Actor{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return user.Actor{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return user.Actor{}, ErrInvalidToken
	}
	r := user.Role(role)
	if r != user.RoleAdmin {
		r = user.RoleUser
	}
	return user.Actor{UserID: sub, Role: r}, nil
}
