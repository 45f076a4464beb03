package authbridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// stateClaims binds an OAuth round trip to its verification request and
// draft. The token rides the OAuth state parameter; only a callback carrying
// a token we signed ourselves may complete a window.
type stateClaims struct {
	RequestID string `json:"rid"`
	DraftID   string `json:"did"`
	jwt.RegisteredClaims
}

// StateToken issues a signed state token for one auth round trip.
func (b *Bridge) StateToken(requestID, draftID string, ttl time.Duration) (string, error) {
	claims := stateClaims{
		RequestID: requestID,
		DraftID:   draftID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(b.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state token: %w", err)
	}
	return signed, nil
}

// VerifyState validates a state token and returns the request and draft it
// was issued for.
func (b *Bridge) VerifyState(tokenStr string) (requestID, draftID string, err error) {
	var claims stateClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return b.secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to verify state token: %w", err)
	}
	if !token.Valid {
		return "", "", errors.New("invalid state token")
	}
	if claims.RequestID == "" || claims.DraftID == "" {
		return "", "", errors.New("state token missing request binding")
	}
	return claims.RequestID, claims.DraftID, nil
}
