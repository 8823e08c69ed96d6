package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/provia/rewards-service/internal/model"
	"github.com/provia/rewards-service/internal/repository"
)

func newRedeemFixture(t *testing.T) (*memStore, *recNotifier, *recInvalidator, *RedemptionService) {
	t.Helper()
	store := newMemStore()
	notifier := &recNotifier{}
	inv := &recInvalidator{}
	svc := NewRedemptionService(store, store, store, notifier, inv)
	return store, notifier, inv, svc
}

func grant(t *testing.T, store *memStore, userID uint64, amount int64) {
	t.Helper()
	_, err := store.Append(context.Background(), model.LedgerEntryInput{
		UserID: userID, Amount: amount, Category: "general",
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
}

func TestRedeemHappyPath(t *testing.T) {
	store, notifier, inv, svc := newRedeemFixture(t)
	store.addReward(model.Reward{ID: 1, Title: "Branded mug", Price: 120, Quantity: 5, Category: model.RewardMerchandise, IsActive: true})
	grant(t, store, 10, 200)

	rec, err := svc.Redeem(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if rec.PointsSpent != 120 || rec.Status != model.RedemptionConfirmed {
		t.Fatalf("got redemption %+v", rec)
	}

	balance, _ := store.Balance(context.Background(), 10)
	if balance != 80 {
		t.Fatalf("balance = %d, want 80", balance)
	}
	if got := store.quantity(1); got != 4 {
		t.Fatalf("quantity = %d, want 4", got)
	}
	if len(notifier.redeemed) != 1 || notifier.redeemed[0].Balance != 80 {
		t.Fatalf("notifier got %+v", notifier.redeemed)
	}
	if inv.calls != 1 {
		t.Fatalf("invalidations = %d, want 1", inv.calls)
	}
}

func TestRedeemInsufficientPointsReportsDeficit(t *testing.T) {
	store, _, _, svc := newRedeemFixture(t)
	store.addReward(model.Reward{ID: 1, Title: "Headphones", Price: 500, Quantity: 3, Category: model.RewardDigital, IsActive: true})
	grant(t, store, 10, 350)

	_, err := svc.Redeem(context.Background(), 10, 1)
	var ipe *InsufficientPointsError
	if !errors.As(err, &ipe) {
		t.Fatalf("err = %v, want InsufficientPointsError", err)
	}
	if !errors.Is(err, repository.ErrInsufficientPoints) {
		t.Fatalf("errors.Is(ErrInsufficientPoints) = false")
	}
	if ipe.Deficit() != 150 {
		t.Fatalf("deficit = %d, want 150", ipe.Deficit())
	}
	if balance, _ := store.Balance(context.Background(), 10); balance != 350 {
		t.Fatalf("balance changed to %d on failed redeem", balance)
	}
}

func TestRedeemMissingAndInactiveReward(t *testing.T) {
	store, _, _, svc := newRedeemFixture(t)
	store.addReward(model.Reward{ID: 2, Title: "Retired reward", Price: 10, Quantity: 1, Category: model.RewardDigital, IsActive: false})
	grant(t, store, 10, 100)

	if _, err := svc.Redeem(context.Background(), 10, 99); !errors.Is(err, repository.ErrRewardNotFound) {
		t.Fatalf("missing reward: err = %v", err)
	}
	if _, err := svc.Redeem(context.Background(), 10, 2); !errors.Is(err, repository.ErrRewardNotFound) {
		t.Fatalf("inactive reward: err = %v", err)
	}
}

func TestRedeemOutOfStock(t *testing.T) {
	store, _, _, svc := newRedeemFixture(t)
	store.addReward(model.Reward{ID: 1, Title: "Sticker pack", Price: 10, Quantity: 0, Category: model.RewardMerchandise, IsActive: true})
	grant(t, store, 10, 100)

	if _, err := svc.Redeem(context.Background(), 10, 1); !errors.Is(err, repository.ErrOutOfStock) {
		t.Fatalf("err = %v, want ErrOutOfStock", err)
	}
}

func TestRedeemTwiceIsAlreadyRedeemed(t *testing.T) {
	store, _, _, svc := newRedeemFixture(t)
	store.addReward(model.Reward{ID: 1, Title: "Tote bag", Price: 50, Quantity: 10, Category: model.RewardMerchandise, IsActive: true})
	grant(t, store, 10, 500)

	if _, err := svc.Redeem(context.Background(), 10, 1); err != nil {
		t.Fatalf("first Redeem: %v", err)
	}
	// A client retrying a success it never saw gets the idempotent error,
	// not a second debit.
	if _, err := svc.Redeem(context.Background(), 10, 1); !errors.Is(err, repository.ErrAlreadyRedeemed) {
		t.Fatalf("second Redeem: err = %v, want ErrAlreadyRedeemed", err)
	}
	if balance, _ := store.Balance(context.Background(), 10); balance != 450 {
		t.Fatalf("balance = %d, want 450", balance)
	}
	if got := store.quantity(1); got != 9 {
		t.Fatalf("quantity = %d, want 9", got)
	}
}

func TestRedeemRetriesOnceOnConflict(t *testing.T) {
	store, _, _, svc := newRedeemFixture(t)
	store.addReward(model.Reward{ID: 1, Title: "Tote bag", Price: 50, Quantity: 5, Category: model.RewardMerchandise, IsActive: true})
	grant(t, store, 10, 100)
	grant(t, store, 11, 100)

	store.conflicts = 1
	if _, err := svc.Redeem(context.Background(), 10, 1); err != nil {
		t.Fatalf("Redeem after one conflict: %v", err)
	}

	store.conflicts = 2
	if _, err := svc.Redeem(context.Background(), 11, 1); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict after exhausted retry", err)
	}
}

func TestRedeemConflictLoserSeesCommittedDebit(t *testing.T) {
	store, _, _, svc := newRedeemFixture(t)
	// Balance covers one of the two rewards.  The commit for reward 2
	// deadlocks against the commit for reward 1; once reward 1's debit is
	// committed, the retry must find the money gone rather than overdraw.
	store.addReward(model.Reward{ID: 1, Title: "A", Price: 80, Quantity: 5, Category: model.RewardDigital, IsActive: true})
	store.addReward(model.Reward{ID: 2, Title: "B", Price: 80, Quantity: 5, Category: model.RewardDigital, IsActive: true})
	grant(t, store, 10, 100)

	store.conflicts = 1
	store.onConflict = func() {
		store.appendLocked(model.LedgerEntryInput{UserID: 10, Amount: -80, Category: "digital", Reason: "Redeemed A"})
	}

	_, err := svc.Redeem(context.Background(), 10, 2)
	var ipe *InsufficientPointsError
	if !errors.As(err, &ipe) {
		t.Fatalf("err = %v, want InsufficientPointsError", err)
	}
	if ipe.Balance != 20 {
		t.Fatalf("reported balance = %d, want the post-commit 20", ipe.Balance)
	}

	balance, _ := store.Balance(context.Background(), 10)
	if balance != 20 {
		t.Fatalf("balance = %d, want 20", balance)
	}
	list, _ := svc.ListRedemptions(context.Background(), 10)
	if len(list) != 0 {
		t.Fatalf("losing redeem left a redemption behind: %+v", list)
	}
}

func TestRedeemSnapshotsPriceAtPurchase(t *testing.T) {
	store, _, _, svc := newRedeemFixture(t)
	store.addReward(model.Reward{ID: 1, Title: "Workshop seat", Price: 300, Quantity: 5, Category: model.RewardExperiences, IsActive: true})
	grant(t, store, 10, 1000)

	rec, err := svc.Redeem(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	store.setPrice(1, 9999)

	list, err := svc.ListRedemptions(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRedemptions: %v", err)
	}
	if len(list) != 1 || list[0].ID != rec.ID {
		t.Fatalf("got redemptions %+v", list)
	}
	if list[0].PointsSpent != 300 {
		t.Fatalf("points_spent = %d after price change, want 300", list[0].PointsSpent)
	}
}

func TestConcurrentRedeemSameRewardSingleSuccess(t *testing.T) {
	store, _, _, svc := newRedeemFixture(t)
	store.addReward(model.Reward{ID: 1, Title: "Tote bag", Price: 50, Quantity: 100, Category: model.RewardMerchandise, IsActive: true})
	grant(t, store, 10, 10000)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Redeem(context.Background(), 10, 1)
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repository.ErrAlreadyRedeemed):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != n-1 {
		t.Fatalf("ok = %d, dup = %d, want 1 and %d", ok, dup, n-1)
	}
	if balance, _ := store.Balance(context.Background(), 10); balance != 9950 {
		t.Fatalf("balance = %d, want 9950", balance)
	}
}

func TestConcurrentRedeemLimitedStockNoOversell(t *testing.T) {
	store, _, _, svc := newRedeemFixture(t)
	const stock = 3
	const users = 12
	store.addReward(model.Reward{ID: 1, Title: "Signed book", Price: 100, Quantity: stock, Category: model.RewardMerchandise, IsActive: true})
	for u := uint64(1); u <= users; u++ {
		grant(t, store, u, 500)
	}

	var wg sync.WaitGroup
	errs := make([]error, users)
	for u := uint64(1); u <= users; u++ {
		wg.Add(1)
		go func(u uint64) {
			defer wg.Done()
			_, errs[u-1] = svc.Redeem(context.Background(), u, 1)
		}(u)
	}
	wg.Wait()

	var ok, sold int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repository.ErrOutOfStock):
			sold++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != stock || sold != users-stock {
		t.Fatalf("ok = %d, sold-out = %d, want %d and %d", ok, sold, stock, users-stock)
	}
	if got := store.quantity(1); got != 0 {
		t.Fatalf("quantity = %d, want 0", got)
	}
}

func TestConcurrentRedeemSameUserNeverOverdraws(t *testing.T) {
	store, _, _, svc := newRedeemFixture(t)
	// Balance covers only one of the two rewards.
	store.addReward(model.Reward{ID: 1, Title: "A", Price: 80, Quantity: 5, Category: model.RewardDigital, IsActive: true})
	store.addReward(model.Reward{ID: 2, Title: "B", Price: 80, Quantity: 5, Category: model.RewardDigital, IsActive: true})
	grant(t, store, 10, 100)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, rewardID := range []uint64{1, 2} {
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			_, errs[i] = svc.Redeem(context.Background(), 10, id)
		}(i, rewardID)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, repository.ErrInsufficientPoints) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("successes = %d, want exactly 1", ok)
	}
	balance, _ := store.Balance(context.Background(), 10)
	if balance < 0 {
		t.Fatalf("balance went negative: %d", balance)
	}
	if balance != 20 {
		t.Fatalf("balance = %d, want 20", balance)
	}
}
