package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const checkoutTokenIssuer = "FeeriePayCheckout"

var ErrInvalidCheckoutToken = errors.New("invalid or expired checkout token")

type CheckoutClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// CheckoutTokenSigner issues and verifies the bearer tokens that bind a
// browser to its checkout session.
type CheckoutTokenSigner struct {
	secret []byte
	ttl    time.Duration
}

func NewCheckoutTokenSigner(secret string, ttl time.Duration) *CheckoutTokenSigner {
	return &CheckoutTokenSigner{secret: []byte(secret), ttl: ttl}
}

func (s *CheckoutTokenSigner) Generate(sessionID string) (string, error) {
	now := time.Now()
	claims := &CheckoutClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    checkoutTokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *CheckoutTokenSigner) Parse(tokenString string) (*CheckoutClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CheckoutClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(checkoutTokenIssuer),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidCheckoutToken
	}

	claims, ok := token.Claims.(*CheckoutClaims)
	if !ok || claims.SessionID == "" {
		return nil, ErrInvalidCheckoutToken
	}

	return claims, nil
}
