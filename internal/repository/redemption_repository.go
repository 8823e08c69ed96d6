package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/provia/rewards-service/internal/model"
)

// RedemptionRepo owns the redemptions table and the atomic redemption
// commit.  The commit is the only place in the codebase where reward
// stock and a member's balance change together; everything the workflow
// validated beforehand is re-enforced here under the transaction, so a
// request that loses a race gets the same typed error it would have
// gotten had it arrived later.
type RedemptionRepo struct {
	db      *sql.DB
	ledger  *LedgerRepo
	rewards *RewardRepo
}

// NewRedemptionRepo returns a RedemptionRepo that shares the ledger and
// reward repositories for their transactional helpers.
func NewRedemptionRepo(db *sql.DB, ledger *LedgerRepo, rewards *RewardRepo) *RedemptionRepo {
	if ledger == nil || rewards == nil {
		panic("nil repository passed to NewRedemptionRepo")
	}
	return &RedemptionRepo{db: db, ledger: ledger, rewards: rewards}
}

// ExistsForUser reports whether the user has already redeemed the reward.
// It serves the workflow's pre-check; the authoritative guard is the
// unique key enforced inside Commit.
func (r *RedemptionRepo) ExistsForUser(ctx context.Context, userID, rewardID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM redemptions WHERE user_id = ? AND reward_id = ? LIMIT 1`,
		userID, rewardID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Commit performs the all-or-nothing redemption of one unit of the given
// reward by the given user:
//
//  1. insert the redemption row; UNIQUE(user_id, reward_id) turns a
//     duplicate into ErrAlreadyRedeemed, which also makes retrying an
//     unacknowledged success safe,
//  2. decrement stock with decrement-if-positive; a lost race on the
//     last unit surfaces as ErrOutOfStock,
//  3. append the ledger debit with the price snapshotted into
//     points_spent and the entry amount,
//  4. re-sum the user's ledger inside the transaction with a locking
//     read; a negative total (possible when the same user redeems two
//     different rewards concurrently) rolls everything back with
//     ErrInsufficientPoints.  The lock serializes competing commits on
//     one user: the loser waits for the winner's debit or deadlocks
//     into the retry path below.
//
// Either every step commits or none does; there is no partially-applied
// outcome for callers to observe.  Deadlocks and lock timeouts map to
// ErrConflict so the workflow can retry once.
func (r *RedemptionRepo) Commit(ctx context.Context, userID uint64, reward model.Reward) (model.Redemption, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Redemption{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO redemptions (user_id, reward_id, points_spent, status) VALUES (?,?,?,?)`,
		userID, reward.ID, reward.Price, model.RedemptionConfirmed)
	if err != nil {
		if isDuplicate(err) {
			return model.Redemption{}, ErrAlreadyRedeemed
		}
		if isRetryable(err) {
			return model.Redemption{}, ErrConflict
		}
		return model.Redemption{}, err
	}
	redemptionID, err := res.LastInsertId()
	if err != nil {
		return model.Redemption{}, err
	}

	if err := r.rewards.DecrementStockTx(ctx, tx, reward.ID); err != nil {
		if isRetryable(err) {
			return model.Redemption{}, ErrConflict
		}
		return model.Redemption{}, err
	}

	if _, err := r.ledger.AppendTx(ctx, tx, model.LedgerEntryInput{
		UserID:    userID,
		Amount:    -reward.Price,
		Category:  reward.Category,
		Reason:    "Redeemed " + reward.Title,
		Reference: fmt.Sprintf("redemption:%d", redemptionID),
	}); err != nil {
		if isRetryable(err) {
			return model.Redemption{}, ErrConflict
		}
		return model.Redemption{}, err
	}

	balance, err := r.ledger.BalanceTx(ctx, tx, userID)
	if err != nil {
		if isRetryable(err) {
			return model.Redemption{}, ErrConflict
		}
		return model.Redemption{}, err
	}
	if balance < 0 {
		return model.Redemption{}, ErrInsufficientPoints
	}

	var rec model.Redemption
	if err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, reward_id, points_spent, status, purchased_at FROM redemptions WHERE id = ?`,
		redemptionID).Scan(&rec.ID, &rec.UserID, &rec.RewardID, &rec.PointsSpent, &rec.Status, &rec.PurchasedAt); err != nil {
		return model.Redemption{}, err
	}

	if err := tx.Commit(); err != nil {
		if isRetryable(err) {
			return model.Redemption{}, ErrConflict
		}
		return model.Redemption{}, err
	}
	committed = true
	return rec, nil
}

// ListByUser returns the user's redemptions, newest first.
func (r *RedemptionRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Redemption, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, reward_id, points_spent, status, purchased_at
		 FROM redemptions WHERE user_id = ? ORDER BY purchased_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Redemption, 0)
	for rows.Next() {
		var rec model.Redemption
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.RewardID, &rec.PointsSpent, &rec.Status, &rec.PurchasedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a single redemption.
func (r *RedemptionRepo) GetByID(ctx context.Context, id uint64) (model.Redemption, error) {
	var rec model.Redemption
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, reward_id, points_spent, status, purchased_at FROM redemptions WHERE id = ?`,
		id).Scan(&rec.ID, &rec.UserID, &rec.RewardID, &rec.PointsSpent, &rec.Status, &rec.PurchasedAt)
	if err == sql.ErrNoRows {
		return model.Redemption{}, ErrRedemptionNotFound
	}
	return rec, err
}

// UpdateStatus advances a redemption through fulfilment
// (CONFIRMED -> SHIPPED -> DELIVERED).  Cancellation goes through
// Cancel, which also compensates the ledger and stock.
func (r *RedemptionRepo) UpdateStatus(ctx context.Context, id uint64, from, to string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE redemptions SET status = ? WHERE id = ? AND status = ?`,
		to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrInvalidStatus
	}
	return nil
}

// Cancel voids a confirmed redemption: the status flips to CANCELLED,
// one unit of stock returns to the catalog, and the member is refunded
// with a compensating positive ledger entry.  All three happen in one
// transaction, mirroring Commit.
func (r *RedemptionRepo) Cancel(ctx context.Context, id uint64) (model.Redemption, error) {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Redemption{}, err
	}
	reward, err := r.rewards.GetByID(ctx, rec.RewardID)
	if err != nil {
		return model.Redemption{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Redemption{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE redemptions SET status = ? WHERE id = ? AND status = ?`,
		model.RedemptionCancelled, id, model.RedemptionConfirmed)
	if err != nil {
		return model.Redemption{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Redemption{}, err
	} else if n == 0 {
		return model.Redemption{}, ErrInvalidStatus
	}

	if err := r.rewards.RestoreStockTx(ctx, tx, rec.RewardID); err != nil {
		return model.Redemption{}, err
	}

	if _, err := r.ledger.AppendTx(ctx, tx, model.LedgerEntryInput{
		UserID:    rec.UserID,
		Amount:    rec.PointsSpent,
		Category:  reward.Category,
		Reason:    "Redemption cancelled: " + reward.Title,
		Reference: fmt.Sprintf("redemption:%d", rec.ID),
	}); err != nil {
		return model.Redemption{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Redemption{}, err
	}
	committed = true
	rec.Status = model.RedemptionCancelled
	return rec, nil
}
