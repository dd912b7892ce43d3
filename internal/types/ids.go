package types

import (
	"time"

	"github.com/google/uuid"
)

// NewSubscriptionID generates a UUIDv7 subscription identifier.
// Time-ordered IDs keep store inserts clustered in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewSubscriptionID() SubscriptionID {
	return SubscriptionID(uuid.Must(uuid.NewV7()).String())
}

// NewMessageID generates a random identifier for synthesized events.
func NewMessageID() string {
	return uuid.NewString()
}

// ParseSubscriptionID validates and converts a string to SubscriptionID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the store.
func ParseSubscriptionID(s string) (SubscriptionID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return SubscriptionID(s), nil
}

// SubscriptionIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid or non-v7 UUIDs; caller should check IsZero().
func SubscriptionIDTime(id SubscriptionID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil || u.Version() != 7 {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
