package model

import (
	"errors"
	"strings"
	"time"
)

// LedgerEntry is one immutable point-affecting event for a user.  A
// positive amount records earned points, a negative amount records spent
// points.  Entries are append-only: corrections are expressed as new
// compensating entries, never as updates, so the full history stays
// auditable and the balance is always the sum of a user's entries.
type LedgerEntry struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Category  string    `json:"category"`
	Reason    string    `json:"reason"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerEntryInput carries the caller-supplied fields of a new entry.
// Reference optionally points at the triggering entity (a job id, a
// review id, a redemption id) and is kept opaque by this service.
type LedgerEntryInput struct {
	UserID    uint64
	Amount    int64
	Category  string
	Reason    string
	Reference string
}

// Validate rejects malformed entries before they reach the store.  A
// zero amount has no meaning in an append-only ledger and an empty
// category would make the entry invisible to the category accumulator.
func (in LedgerEntryInput) Validate() error {
	if in.UserID == 0 {
		return errors.New("user id is required")
	}
	if in.Amount == 0 {
		return errors.New("amount must be non-zero")
	}
	if strings.TrimSpace(in.Category) == "" {
		return errors.New("category is required")
	}
	return nil
}

// CategoryBalance is the derived per-category net for a user.  It is a
// view over the ledger, recomputed on read, and never stored.
type CategoryBalance struct {
	Category  string `json:"category"`
	NetPoints int64  `json:"net_points"`
}
