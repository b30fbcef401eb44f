package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrKeyRequired = errors.New("idempotency key is required for this operation")
	ErrKeyInvalid  = errors.New("invalid idempotency key format")
	ErrKeyTooLong  = errors.New("idempotency key exceeds maximum length")
	ErrNotFound    = errors.New("idempotency key not found")
)

// Record is one Idempotency-Key as seen by the service: who sent it, for
// which request, and once finished the response to replay.
type Record struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Key                string             `bson:"key"`
	UserID             string             `bson:"userId,omitempty"`
	ServiceID          string             `bson:"serviceId"`
	RequestPath        string             `bson:"requestPath"`
	RequestMethod      string             `bson:"requestMethod"`
	RequestFingerprint string             `bson:"requestFingerprint"`
	LockedAt           *time.Time         `bson:"lockedAt,omitempty"`

	ResponseCode    int               `bson:"responseCode,omitempty"`
	ResponseBody    []byte            `bson:"responseBody,omitempty"`
	ResponseHeaders map[string]string `bson:"responseHeaders,omitempty"`

	CreatedAt   time.Time  `bson:"createdAt"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
	ExpiresAt   time.Time  `bson:"expiresAt"`
}

// IsCompleted means a response is stored and will be replayed
func (r *Record) IsCompleted() bool { return r.CompletedAt != nil }

// IsLocked means the first request with this key is still running
func (r *Record) IsLocked() bool { return r.CompletedAt == nil && r.LockedAt != nil }

var keyCharset = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NormalizeKey strips the whitespace clients sometimes send around the header
func NormalizeKey(key string) string { return strings.TrimSpace(key) }

// ValidateKey accepts UUIDs and similar tokens up to maxLength characters.
// A non-positive maxLength means DefaultMaxKeyLength.
func ValidateKey(key string, maxLength int) error {
	if maxLength <= 0 {
		maxLength = DefaultMaxKeyLength
	}
	switch {
	case key == "":
		return ErrKeyRequired
	case len(key) > maxLength:
		return ErrKeyTooLong
	case !keyCharset.MatchString(key):
		return ErrKeyInvalid
	}
	return nil
}

// ComputeFingerprint identifies a request body, so reusing a key for a
// different booking payload is caught.
func ComputeFingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
