package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/action-destinations-sub030/internal/fql"
	"github.com/segmentio/action-destinations-sub030/internal/types"
)

// subscriptionRow mirrors the subscriptions table.
type subscriptionRow struct {
	ID            string `db:"subscription_id"`
	Destination   string `db:"destination"`
	Name          string `db:"name"`
	PartnerAction string `db:"partner_action"`
	Subscribe     string `db:"subscribe"`
	Enabled       bool   `db:"enabled"`
	Mapping       string `db:"mapping"`
	CreatedAt     string `db:"created_at"`
}

func (r subscriptionRow) subscription() (types.Subscription, error) {
	sub := types.Subscription{
		ID:            types.SubscriptionID(r.ID),
		Destination:   r.Destination,
		Name:          r.Name,
		PartnerAction: r.PartnerAction,
		Subscribe:     r.Subscribe,
		Enabled:       r.Enabled,
	}
	if r.Mapping != "" {
		if err := json.Unmarshal([]byte(r.Mapping), &sub.Mapping); err != nil {
			return types.Subscription{}, fmt.Errorf("subscription %s: decode mapping: %w", r.ID, err)
		}
	}
	return sub, nil
}

// SubscriptionStore persists subscriptions through the named queries.
type SubscriptionStore struct {
	queries *Queries
}

// NewSubscriptionStore wraps loaded queries.
func NewSubscriptionStore(q *Queries) *SubscriptionStore {
	return &SubscriptionStore{queries: q}
}

// Create validates and inserts sub, assigning an ID when it has none.
// Subscriptions whose FQL does not parse are rejected with
// types.ErrInvalidSubscription so they never reach dispatch.
func (s *SubscriptionStore) Create(ctx context.Context, sub types.Subscription) (types.Subscription, error) {
	if sub.Destination == "" || sub.Name == "" || sub.PartnerAction == "" {
		return types.Subscription{}, fmt.Errorf("%w: destination, name and partnerAction are required", types.ErrInvalidSubscription)
	}
	if _, err := fql.Parse(sub.Subscribe); err != nil {
		return types.Subscription{}, fmt.Errorf("%w: %v", types.ErrInvalidSubscription, err)
	}

	if sub.ID == "" {
		sub.ID = types.NewSubscriptionID()
	} else if _, err := types.ParseSubscriptionID(string(sub.ID)); err != nil {
		return types.Subscription{}, fmt.Errorf("%w: bad id %q", types.ErrInvalidSubscription, sub.ID)
	}

	mapping := sub.Mapping
	if mapping == nil {
		mapping = map[string]any{}
	}
	encoded, err := json.Marshal(mapping)
	if err != nil {
		return types.Subscription{}, fmt.Errorf("encode mapping: %w", err)
	}

	_, err = s.queries.Exec(ctx, "create-subscription",
		string(sub.ID),
		sub.Destination,
		sub.Name,
		sub.PartnerAction,
		sub.Subscribe,
		sub.Enabled,
		string(encoded),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return types.Subscription{}, fmt.Errorf("insert subscription: %w", err)
	}
	return sub, nil
}

// Get loads one subscription by ID.
func (s *SubscriptionStore) Get(ctx context.Context, id types.SubscriptionID) (types.Subscription, error) {
	var row subscriptionRow
	if err := s.queries.Get(ctx, "get-subscription", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Subscription{}, types.ErrSubscriptionNotFound
		}
		return types.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	return row.subscription()
}

// ListByDestination returns every subscription of a destination, enabled or
// not, oldest first.
func (s *SubscriptionStore) ListByDestination(ctx context.Context, destination string) ([]types.Subscription, error) {
	var rows []subscriptionRow
	if err := s.queries.Select(ctx, "list-subscriptions-by-destination", &rows, destination); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	subs := make([]types.Subscription, 0, len(rows))
	for _, r := range rows {
		sub, err := r.subscription()
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// SetEnabled toggles a subscription.
func (s *SubscriptionStore) SetEnabled(ctx context.Context, id types.SubscriptionID, enabled bool) error {
	res, err := s.queries.Exec(ctx, "set-subscription-enabled", enabled, string(id))
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return expectRow(res)
}

// Delete removes a subscription.
func (s *SubscriptionStore) Delete(ctx context.Context, id types.SubscriptionID) error {
	res, err := s.queries.Exec(ctx, "delete-subscription", string(id))
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.ErrSubscriptionNotFound
	}
	return nil
}
