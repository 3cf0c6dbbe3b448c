package connection

import (
	"fmt"
	"time"

	"demantive/internal/common/errs"
	"demantive/internal/common/models"
	"demantive/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

const (
	StateCookieName = "oauth_state"
	stateTTL        = 10 * time.Minute
	stateAudience   = "oauth_state"
)

// StateClaims ride in the signed state cookie between authorize and callback.
type StateClaims struct {
	State    string          `json:"state"`
	TenantID string          `json:"tenant_id"`
	UserID   string          `json:"user_id"`
	Provider models.Provider `json:"provider"`
	jwt.RegisteredClaims
}

type StateSigner struct {
	secret []byte
	ttl    time.Duration
}

func NewStateSigner(cfg *config.Config) *StateSigner {
	return &StateSigner{secret: []byte(cfg.JWTSecret), ttl: stateTTL}
}

func (s *StateSigner) Sign(claims StateClaims, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return signed, expiresAt, err
}

// Parse verifies signature, audience and expiry. Any failure is a state mismatch.
func (s *StateSigner) Parse(cookie string) (*StateClaims, error) {
	if cookie == "" {
		return nil, errs.ErrStateMismatch
	}
	token, err := jwt.ParseWithClaims(cookie, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithAudience(stateAudience))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStateMismatch, err)
	}
	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid || claims.State == "" || claims.TenantID == "" {
		return nil, errs.ErrStateMismatch
	}
	return claims, nil
}
