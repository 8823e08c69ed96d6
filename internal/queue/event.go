// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into user notifications.
package queue

// PointsAwardedEvent is published after a ledger credit commits.  It
// carries everything a downstream notifier needs without querying the
// primary database.
type PointsAwardedEvent struct {
	EntryID   uint64 `json:"entry_id"`
	UserID    uint64 `json:"user_id"`
	Amount    int64  `json:"amount"`
	Category  string `json:"category"`
	Reason    string `json:"reason"`
	Reference string `json:"reference,omitempty"`
	Balance   int64  `json:"balance"`
	AwardedAt string `json:"awarded_at"`
}

// RedemptionConfirmedEvent is published after a redemption transaction
// commits.  Publication is best-effort: a lost event never rolls back
// the redemption.
type RedemptionConfirmedEvent struct {
	RedemptionID uint64 `json:"redemption_id"`
	UserID       uint64 `json:"user_id"`
	RewardID     uint64 `json:"reward_id"`
	RewardTitle  string `json:"reward_title"`
	PointsSpent  int64  `json:"points_spent"`
	Balance      int64  `json:"balance"`
	PurchasedAt  string `json:"purchased_at"`
}
