package replay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrReplayed is returned when a token has been consumed before.
	ErrReplayed = errors.New("validation token already used")
	// ErrRedisUnavailable wraps backend failures of RedisGuard.
	ErrRedisUnavailable = errors.New("replay store unavailable")
)

const (
	defaultKeyPrefix = "gcr"
	minEntryTTL      = time.Millisecond
)

// Guard marks tokens as consumed.
type Guard interface {
	// Consume records token until expiry. It returns ErrReplayed when the
	// token was already recorded.
	Consume(ctx context.Context, token string, expiry time.Time) error
}

// Digest returns the hex SHA-256 of token, used as the stored key.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func entryTTL(expiry, now time.Time) time.Duration {
	ttl := expiry.Sub(now)
	if ttl < minEntryTTL {
		return minEntryTTL
	}
	return ttl
}
