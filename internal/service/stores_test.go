package service

import (
	"context"
	"sync"
	"time"

	"github.com/provia/rewards-service/internal/model"
	"github.com/provia/rewards-service/internal/queue"
	"github.com/provia/rewards-service/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories.  Its
// Commit enforces the same rules the real transaction does: one
// redemption per (user, reward), decrement-if-positive stock and no
// negative balances.  All state shares one mutex so concurrent commits
// serialize the way competing transactions would.
type memStore struct {
	mu          sync.Mutex
	nextID      uint64
	rewards     map[uint64]*model.Reward
	entries     []model.LedgerEntry
	redemptions []model.Redemption
	conflicts   int    // remaining Commits to fail with ErrConflict
	onConflict  func() // runs under the lock when a conflict is returned
}

func newMemStore() *memStore {
	return &memStore{rewards: map[uint64]*model.Reward{}}
}

func (s *memStore) addReward(rw model.Reward) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := rw
	s.rewards[rw.ID] = &cp
}

func (s *memStore) setPrice(id uint64, price int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewards[id].Price = price
}

func (s *memStore) quantity(id uint64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewards[id].Quantity
}

// ----- LedgerStore -----

func (s *memStore) Append(_ context.Context, in model.LedgerEntryInput) (model.LedgerEntry, error) {
	if err := in.Validate(); err != nil {
		return model.LedgerEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(in), nil
}

func (s *memStore) appendLocked(in model.LedgerEntryInput) model.LedgerEntry {
	s.nextID++
	e := model.LedgerEntry{
		ID:        s.nextID,
		UserID:    in.UserID,
		Amount:    in.Amount,
		Category:  in.Category,
		Reason:    in.Reason,
		Reference: in.Reference,
		CreatedAt: time.Now().UTC(),
	}
	s.entries = append(s.entries, e)
	return e
}

func (s *memStore) Balance(_ context.Context, userID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balanceLocked(userID), nil
}

func (s *memStore) balanceLocked(userID uint64) int64 {
	var sum int64
	for _, e := range s.entries {
		if e.UserID == userID {
			sum += e.Amount
		}
	}
	return sum
}

func (s *memStore) CategoryBalances(_ context.Context, userID uint64) ([]model.CategoryBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCat := map[string]int64{}
	for _, e := range s.entries {
		if e.UserID == userID {
			byCat[e.Category] += e.Amount
		}
	}
	out := make([]model.CategoryBalance, 0, len(byCat))
	for c, n := range byCat {
		out = append(out, model.CategoryBalance{Category: c, NetPoints: n})
	}
	return out, nil
}

func (s *memStore) EntriesByUser(_ context.Context, userID uint64, limit int) ([]model.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.LedgerEntry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].UserID != userID {
			continue
		}
		out = append(out, s.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ----- CatalogStore -----

func (s *memStore) GetByID(_ context.Context, id uint64) (model.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rw, ok := s.rewards[id]
	if !ok {
		return model.Reward{}, repository.ErrRewardNotFound
	}
	return *rw, nil
}

// ----- RedemptionStore -----

func (s *memStore) ExistsForUser(_ context.Context, userID, rewardID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existsLocked(userID, rewardID), nil
}

func (s *memStore) existsLocked(userID, rewardID uint64) bool {
	for _, r := range s.redemptions {
		if r.UserID == userID && r.RewardID == rewardID {
			return true
		}
	}
	return false
}

func (s *memStore) Commit(_ context.Context, userID uint64, reward model.Reward) (model.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflicts > 0 {
		s.conflicts--
		// A deadlock means some competing transaction won; let the test
		// apply that winner's writes before the caller retries.
		if s.onConflict != nil {
			s.onConflict()
		}
		return model.Redemption{}, repository.ErrConflict
	}
	if s.existsLocked(userID, reward.ID) {
		return model.Redemption{}, repository.ErrAlreadyRedeemed
	}
	current, ok := s.rewards[reward.ID]
	if !ok || !current.IsActive || current.Quantity <= 0 {
		return model.Redemption{}, repository.ErrOutOfStock
	}
	if s.balanceLocked(userID) < reward.Price {
		return model.Redemption{}, repository.ErrInsufficientPoints
	}

	current.Quantity--
	s.appendLocked(model.LedgerEntryInput{
		UserID:   userID,
		Amount:   -reward.Price,
		Category: reward.Category,
		Reason:   "Redeemed " + reward.Title,
	})
	s.nextID++
	rec := model.Redemption{
		ID:          s.nextID,
		UserID:      userID,
		RewardID:    reward.ID,
		PointsSpent: reward.Price,
		Status:      model.RedemptionConfirmed,
		PurchasedAt: time.Now().UTC(),
	}
	s.redemptions = append(s.redemptions, rec)
	return rec, nil
}

func (s *memStore) ListByUser(_ context.Context, userID uint64) ([]model.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Redemption, 0)
	for i := len(s.redemptions) - 1; i >= 0; i-- {
		if s.redemptions[i].UserID == userID {
			out = append(out, s.redemptions[i])
		}
	}
	return out, nil
}

// recNotifier records delivered events.
type recNotifier struct {
	mu       sync.Mutex
	awarded  []queue.PointsAwardedEvent
	redeemed []queue.RedemptionConfirmedEvent
}

func (n *recNotifier) PointsAwarded(ev queue.PointsAwardedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.awarded = append(n.awarded, ev)
}

func (n *recNotifier) RedemptionConfirmed(ev queue.RedemptionConfirmedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redeemed = append(n.redeemed, ev)
}

// recInvalidator counts catalog invalidations.
type recInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (i *recInvalidator) InvalidateCatalog(context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
}
