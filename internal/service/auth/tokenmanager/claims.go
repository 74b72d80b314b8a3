package tokenmanager

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimedValidity returns time left until expiration claimed by JWT access token.
// Signature is not verified: the token is issued and checked by the sequencer, we only read it.
func ClaimedValidity(access string, now time.Time) (time.Duration, error) {
	claims := jwt.RegisteredClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(access, &claims)
	if err != nil {
		return 0, fmt.Errorf("error while parsing access token. Err: %w", err)
	}

	if claims.ExpiresAt == nil {
		return 0, fmt.Errorf("access token has no expiration claim")
	}

	return claims.ExpiresAt.Sub(now), nil
}
