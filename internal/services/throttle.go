package services

import (
	"context"

	"fintrack/internal/cache"
)

type clientIPKey struct{}

// WithClientIP records the caller's address for login throttling.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// throttleKey scopes failures to one email from one address.
func throttleKey(ctx context.Context, email string) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return email + "|" + ip
}

// LoginThrottle counts failed logins per email and client address inside a
// fixed window. The window length is the TTL of the backing cache.
type LoginThrottle struct {
	failures    cache.Cache[int]
	maxFailures int
}

func NewLoginThrottle(failures cache.Cache[int], maxFailures int) *LoginThrottle {
	return &LoginThrottle{failures: failures, maxFailures: maxFailures}
}

// Locked reports whether key has used up its attempts.
func (t *LoginThrottle) Locked(key string) bool {
	if t == nil {
		return false
	}
	n, ok := t.failures.Get(key)
	return ok && n >= t.maxFailures
}

// Fail records one failed attempt and returns the count in the current window.
func (t *LoginThrottle) Fail(key string) int {
	if t == nil {
		return 0
	}
	return t.failures.Update(key, func(n int, _ bool) int { return n + 1 })
}

func (t *LoginThrottle) Reset(key string) {
	if t == nil {
		return
	}
	t.failures.Delete(key)
}
