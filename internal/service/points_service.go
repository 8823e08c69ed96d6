package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/provia/rewards-service/internal/model"
	"github.com/provia/rewards-service/internal/queue"
)

// ErrValidation marks malformed input: a caller bug, not a retryable
// condition.  Handlers unwrap it into a 422 response.
var ErrValidation = errors.New("validation failed")

// LedgerStore is the slice of the ledger the points service needs.
// Implemented by repository.LedgerRepo.
type LedgerStore interface {
	Append(ctx context.Context, in model.LedgerEntryInput) (model.LedgerEntry, error)
	Balance(ctx context.Context, userID uint64) (int64, error)
	CategoryBalances(ctx context.Context, userID uint64) ([]model.CategoryBalance, error)
	EntriesByUser(ctx context.Context, userID uint64, limit int) ([]model.LedgerEntry, error)
}

// PointsService is the producer side of the ledger: it awards points
// for qualifying actions elsewhere in the platform and serves balance
// reads.  Awarding is best-effort relative to the action that triggered
// it; the collaborator calling Award treats a failure as a logged side
// effect, never as a reason to fail its own operation.
type PointsService struct {
	Ledger     LedgerStore
	Notifier   Notifier
	Categories []string // configured earning categories, used to zero-fill
}

// NewPointsService wires a points service.  notifier may be nil.
func NewPointsService(ledger LedgerStore, notifier Notifier, categories []string) *PointsService {
	if ledger == nil {
		panic("nil ledger passed to NewPointsService")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &PointsService{Ledger: ledger, Notifier: notifier, Categories: categories}
}

// Award credits points to a user.  Amount must be strictly positive;
// spending only ever happens through the redemption workflow, so a
// non-positive amount here is a caller bug.
func (s *PointsService) Award(ctx context.Context, userID uint64, category string, amount int64, reason, reference string) (model.LedgerEntry, error) {
	if amount <= 0 {
		return model.LedgerEntry{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return model.LedgerEntry{}, fmt.Errorf("%w: category is required", ErrValidation)
	}
	entry, err := s.Ledger.Append(ctx, model.LedgerEntryInput{
		UserID:    userID,
		Amount:    amount,
		Category:  category,
		Reason:    reason,
		Reference: reference,
	})
	if err != nil {
		// Surfaced to the caller, but also logged here so failed awards
		// can be reconciled even when the caller drops the error.
		log.Printf("points: award failed: user=%d category=%s amount=%d: %v", userID, category, amount, err)
		return model.LedgerEntry{}, err
	}

	balance, balErr := s.Ledger.Balance(ctx, userID)
	if balErr != nil {
		balance = 0
	}
	s.Notifier.PointsAwarded(queue.PointsAwardedEvent{
		EntryID:   entry.ID,
		UserID:    entry.UserID,
		Amount:    entry.Amount,
		Category:  entry.Category,
		Reason:    entry.Reason,
		Reference: entry.Reference,
		Balance:   balance,
		AwardedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
	})
	return entry, nil
}

// Balance returns the user's current total, always computed from the
// transactional store.
func (s *PointsService) Balance(ctx context.Context, userID uint64) (int64, error) {
	return s.Ledger.Balance(ctx, userID)
}

// CategoryBalances returns the user's per-category nets, zero-filled
// for configured categories the user has no history in.  Categories
// outside the configured list (reward catalog tags, ad-hoc campaign
// tags) still show up when the user has entries in them.
func (s *PointsService) CategoryBalances(ctx context.Context, userID uint64) ([]model.CategoryBalance, error) {
	got, err := s.Ledger.CategoryBalances(ctx, userID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int64, len(got))
	for _, cb := range got {
		byName[cb.Category] = cb.NetPoints
	}
	for _, c := range s.Categories {
		if _, ok := byName[c]; !ok {
			byName[c] = 0
		}
	}
	out := make([]model.CategoryBalance, 0, len(byName))
	for name, net := range byName {
		out = append(out, model.CategoryBalance{Category: name, NetPoints: net})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// History returns the user's most recent ledger entries.
func (s *PointsService) History(ctx context.Context, userID uint64, limit int) ([]model.LedgerEntry, error) {
	return s.Ledger.EntriesByUser(ctx, userID, limit)
}
