package types

import (
	"testing"
	"time"
)

func TestSubscriptionIDTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := NewSubscriptionID()
	after := time.Now().Add(time.Second)

	got := SubscriptionIDTime(id)
	if got.Before(before) || got.After(after) {
		t.Errorf("SubscriptionIDTime(%s) = %v, want between %v and %v", id, got, before, after)
	}

	tests := []struct {
		name string
		id   SubscriptionID
	}{
		{name: "malformed", id: "not-a-uuid"},
		{name: "empty", id: ""},
		{name: "version 4", id: SubscriptionID(NewMessageID())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubscriptionIDTime(tt.id); !got.IsZero() {
				t.Errorf("SubscriptionIDTime(%q) = %v, want zero", tt.id, got)
			}
		})
	}
}

func TestParseSubscriptionID(t *testing.T) {
	id := NewSubscriptionID()
	got, err := ParseSubscriptionID(string(id))
	if err != nil || got != id {
		t.Errorf("ParseSubscriptionID(%q) = %q, %v", id, got, err)
	}
	if _, err := ParseSubscriptionID("nope"); err == nil {
		t.Error("ParseSubscriptionID(nope) error = nil")
	}
}
