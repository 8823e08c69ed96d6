package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/provia/rewards-service/internal/model"
	"github.com/provia/rewards-service/internal/queue"
	"github.com/provia/rewards-service/internal/repository"
)

// CatalogStore is the slice of the reward catalog the workflow needs.
// Implemented by repository.RewardRepo.
type CatalogStore interface {
	GetByID(ctx context.Context, id uint64) (model.Reward, error)
}

// RedemptionStore persists redemptions.  Commit is the atomic
// all-or-nothing unit described in repository.RedemptionRepo: it must
// enforce the unique (user, reward) key, the decrement-if-positive
// stock rule and the no-overdraft guard itself, returning the package's
// sentinel errors when an invariant would break.
type RedemptionStore interface {
	ExistsForUser(ctx context.Context, userID, rewardID uint64) (bool, error)
	Commit(ctx context.Context, userID uint64, reward model.Reward) (model.Redemption, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Redemption, error)
}

// BalanceReader reads a user's committed balance from the transactional
// store.  Implemented by repository.LedgerRepo.
type BalanceReader interface {
	Balance(ctx context.Context, userID uint64) (int64, error)
}

// Invalidator drops cached catalog responses after a mutation.  The
// middleware package provides the Redis-backed implementation.
type Invalidator interface {
	InvalidateCatalog(ctx context.Context)
}

// InsufficientPointsError reports how far short the member's balance
// falls, so the UI can show the exact deficit rather than a generic
// failure.  errors.Is(err, repository.ErrInsufficientPoints) matches it.
type InsufficientPointsError struct {
	Balance int64
	Price   int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: balance %d, price %d", e.Balance, e.Price)
}

func (e *InsufficientPointsError) Is(target error) bool {
	return target == repository.ErrInsufficientPoints
}

// Deficit is the number of points the member is missing.
func (e *InsufficientPointsError) Deficit() int64 { return e.Price - e.Balance }

// RedemptionService is the single controlled entry point for spending
// points on a reward.  Nothing else in the codebase mutates reward
// stock and a member's balance together.
type RedemptionService struct {
	Catalog     CatalogStore
	Ledger      BalanceReader
	Redemptions RedemptionStore
	Notifier    Notifier
	Cache       Invalidator // optional; nil disables invalidation
}

// NewRedemptionService wires a redemption workflow.  notifier and cache
// may be nil.
func NewRedemptionService(catalog CatalogStore, ledger BalanceReader, redemptions RedemptionStore, notifier Notifier, cache Invalidator) *RedemptionService {
	if catalog == nil || ledger == nil || redemptions == nil {
		panic("nil store passed to NewRedemptionService")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &RedemptionService{
		Catalog:     catalog,
		Ledger:      ledger,
		Redemptions: redemptions,
		Notifier:    notifier,
		Cache:       cache,
	}
}

// Redeem validates and commits the redemption of rewardID by userID.
//
// The validation pass exists to give callers the most specific error
// cheaply: missing/inactive reward, then affordability, then stock,
// then the one-per-user rule.  It is advisory only; every one of those
// checks is re-enforced inside the store's atomic commit, so two
// requests racing past validation still produce exactly one success.
// A transient serialization conflict is retried once before being
// surfaced (repository.ErrConflict).
//
// A timed-out request cannot have partially applied: the commit is
// all-or-nothing, and a retry of a success that the client never saw
// lands on the unique key and reports ErrAlreadyRedeemed instead of
// debiting twice.
func (s *RedemptionService) Redeem(ctx context.Context, userID, rewardID uint64) (model.Redemption, error) {
	reward, err := s.Catalog.GetByID(ctx, rewardID)
	if err != nil {
		return model.Redemption{}, err
	}
	if !reward.IsActive {
		return model.Redemption{}, repository.ErrRewardNotFound
	}

	balance, err := s.Ledger.Balance(ctx, userID)
	if err != nil {
		return model.Redemption{}, err
	}
	if balance < reward.Price {
		return model.Redemption{}, &InsufficientPointsError{Balance: balance, Price: reward.Price}
	}

	if reward.Quantity <= 0 {
		return model.Redemption{}, repository.ErrOutOfStock
	}

	exists, err := s.Redemptions.ExistsForUser(ctx, userID, rewardID)
	if err != nil {
		return model.Redemption{}, err
	}
	if exists {
		return model.Redemption{}, repository.ErrAlreadyRedeemed
	}

	rec, err := s.Redemptions.Commit(ctx, userID, reward)
	if errors.Is(err, repository.ErrConflict) {
		rec, err = s.Redemptions.Commit(ctx, userID, reward)
	}
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientPoints) {
			// Lost a race against a concurrent spend; report the balance
			// the commit actually saw, not the stale pre-check read.
			if b, berr := s.Ledger.Balance(ctx, userID); berr == nil {
				balance = b
			}
			return model.Redemption{}, &InsufficientPointsError{Balance: balance, Price: reward.Price}
		}
		return model.Redemption{}, err
	}

	if s.Cache != nil {
		s.Cache.InvalidateCatalog(ctx) // stock changed; cached catalog pages are stale
	}

	newBalance, balErr := s.Ledger.Balance(ctx, userID)
	if balErr != nil {
		newBalance = balance - reward.Price
	}
	s.Notifier.RedemptionConfirmed(queue.RedemptionConfirmedEvent{
		RedemptionID: rec.ID,
		UserID:       rec.UserID,
		RewardID:     rec.RewardID,
		RewardTitle:  reward.Title,
		PointsSpent:  rec.PointsSpent,
		Balance:      newBalance,
		PurchasedAt:  rec.PurchasedAt.UTC().Format(time.RFC3339),
	})
	return rec, nil
}

// ListRedemptions returns the user's redemption history.
func (s *RedemptionService) ListRedemptions(ctx context.Context, userID uint64) ([]model.Redemption, error) {
	return s.Redemptions.ListByUser(ctx, userID)
}
