package types

/*
 * Domain types for subscriptions.
 *
 * A Subscription binds an FQL predicate to a destination action. The
 * Subscribe text is the canonical persisted and wire form; the condition
 * tree parsed from it is derived and ephemeral.
 *
 * Key types:
 *   - Subscription: stored record (name, partner action, FQL, mapping)
 *   - SubscriptionID: UUIDv7 identifier
 *
 * Dependencies: None
 */

// SubscriptionID represents a UUIDv7 subscription identifier.
// String alias enables type safety while maintaining JSON string serialization.
type SubscriptionID string

// Subscription is a named binding of an FQL predicate to a destination action.
type Subscription struct {
	ID            SubscriptionID `json:"id,omitempty" yaml:"id,omitempty"`
	Destination   string         `json:"destination" yaml:"destination"`
	Name          string         `json:"name" yaml:"name"`
	PartnerAction string         `json:"partnerAction" yaml:"partnerAction"`
	Subscribe     string         `json:"subscribe" yaml:"subscribe"`
	Enabled       bool           `json:"enabled" yaml:"enabled"`
	Mapping       map[string]any `json:"mapping,omitempty" yaml:"mapping,omitempty"`
}
