package backend

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenSource hands out the bearer token attached to every request.
// Backend tokens are JWTs; the source reads the expiry claim (without
// verifying the signature, which only the backend can do) and reports
// ErrTokenExpired instead of sending a request that is doomed to 401.
// Opaque non-JWT tokens are accepted as-is.
type AccessTokenSource struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func NewAccessTokenSource(token string) *AccessTokenSource {
	s := &AccessTokenSource{now: time.Now}
	s.Set(token)
	return s
}

// Set replaces the current token, e.g. after a refresh.
func (s *AccessTokenSource) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.expiresAt = time.Time{}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil {
		if claims.ExpiresAt != nil {
			s.expiresAt = claims.ExpiresAt.Time
		}
	}
}

// Token returns the current bearer token, or ErrTokenExpired when its expiry
// claim has passed.
func (s *AccessTokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" {
		return "", ErrTokenExpired
	}
	if !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt) {
		return "", ErrTokenExpired
	}
	return s.token, nil
}
