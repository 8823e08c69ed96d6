package model

import "time"

// Redemption statuses.  The workflow inserts redemptions as CONFIRMED;
// fulfilment moves them through SHIPPED/DELIVERED, and an admin may
// cancel one, which is compensated by a positive ledger entry.
const (
	RedemptionPending   = "PENDING"
	RedemptionConfirmed = "CONFIRMED"
	RedemptionShipped   = "SHIPPED"
	RedemptionDelivered = "DELIVERED"
	RedemptionCancelled = "CANCELLED"
)

// Redemption mirrors the redemptions table.  PointsSpent snapshots the
// reward price at purchase time so later price changes never rewrite
// history.  The table carries UNIQUE(user_id, reward_id): a reward can
// be redeemed at most once per user, and the constraint, not any
// read-then-write check, is what enforces it under concurrency.
type Redemption struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	RewardID    uint64    `json:"reward_id"`
	PointsSpent int64     `json:"points_spent"`
	Status      string    `json:"status"`
	PurchasedAt time.Time `json:"purchased_at"`
}
