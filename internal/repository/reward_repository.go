package repository

import (
	"context"
	"database/sql"

	"github.com/provia/rewards-service/internal/model"
)

// RewardRepo provides access to the rewards catalog.  Administrators
// create and edit rewards (including restocking); the only path allowed
// to decrement stock is the redemption transaction, which uses the
// conditional DecrementStockTx below.
type RewardRepo struct {
	db *sql.DB
}

// NewRewardRepo returns a RewardRepo bound to the given database.
func NewRewardRepo(db *sql.DB) *RewardRepo { return &RewardRepo{db: db} }

const rewardColumns = `id, title, description, price, quantity, category, is_active, is_featured, created_at, updated_at`

// ListActive returns active rewards for the public catalog, optionally
// filtered by category.  Featured rewards sort first.
func (r *RewardRepo) ListActive(ctx context.Context, category string) ([]model.Reward, error) {
	q := `SELECT ` + rewardColumns + ` FROM rewards WHERE is_active = 1`
	args := []any{}
	if category != "" {
		q += ` AND category = ?`
		args = append(args, category)
	}
	q += ` ORDER BY is_featured DESC, title`
	return r.list(ctx, q, args...)
}

// ListAll returns the full catalog including inactive rewards, for
// administrators.
func (r *RewardRepo) ListAll(ctx context.Context) ([]model.Reward, error) {
	return r.list(ctx, `SELECT `+rewardColumns+` FROM rewards ORDER BY created_at DESC`)
}

func (r *RewardRepo) list(ctx context.Context, q string, args ...any) ([]model.Reward, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rewards := make([]model.Reward, 0)
	for rows.Next() {
		var rw model.Reward
		if err := rows.Scan(&rw.ID, &rw.Title, &rw.Description, &rw.Price, &rw.Quantity,
			&rw.Category, &rw.IsActive, &rw.IsFeatured, &rw.CreatedAt, &rw.UpdatedAt); err != nil {
			return nil, err
		}
		rewards = append(rewards, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rewards, nil
}

// GetByID fetches a single reward.  It returns ErrRewardNotFound when no
// row exists; callers that additionally require the reward to be active
// check IsActive themselves so admins can still load inactive rewards.
func (r *RewardRepo) GetByID(ctx context.Context, id uint64) (model.Reward, error) {
	var rw model.Reward
	err := r.db.QueryRowContext(ctx,
		`SELECT `+rewardColumns+` FROM rewards WHERE id = ?`, id).
		Scan(&rw.ID, &rw.Title, &rw.Description, &rw.Price, &rw.Quantity,
			&rw.Category, &rw.IsActive, &rw.IsFeatured, &rw.CreatedAt, &rw.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Reward{}, ErrRewardNotFound
	}
	return rw, err
}

// Create inserts a reward and returns it with generated fields.
func (r *RewardRepo) Create(ctx context.Context, rw model.Reward) (model.Reward, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rewards (title, description, price, quantity, category, is_active, is_featured)
		 VALUES (?,?,?,?,?,?,?)`,
		rw.Title, rw.Description, rw.Price, rw.Quantity, rw.Category, rw.IsActive, rw.IsFeatured)
	if err != nil {
		return model.Reward{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Reward{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update overwrites the editable fields of a reward.  Setting quantity
// here is how admins restock; concurrent redemptions are still safe
// because their decrement is conditional on the row state at commit time.
func (r *RewardRepo) Update(ctx context.Context, rw model.Reward) (model.Reward, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rewards
		 SET title = ?, description = ?, price = ?, quantity = ?, category = ?, is_active = ?, is_featured = ?
		 WHERE id = ?`,
		rw.Title, rw.Description, rw.Price, rw.Quantity, rw.Category, rw.IsActive, rw.IsFeatured, rw.ID)
	if err != nil {
		return model.Reward{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, getErr := r.GetByID(ctx, rw.ID); getErr != nil {
			return model.Reward{}, getErr
		}
	}
	return r.GetByID(ctx, rw.ID)
}

// DecrementStockTx atomically takes one unit of stock inside the given
// transaction.  The WHERE clause is the oversell guard: the decrement
// only applies while the reward is active and quantity is positive, so
// N racing redemptions of k remaining units commit exactly k decrements
// and the rest observe zero affected rows.
func (r *RewardRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, rewardID uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE rewards SET quantity = quantity - 1 WHERE id = ? AND is_active = 1 AND quantity > 0`,
		rewardID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOutOfStock
	}
	return nil
}

// RestoreStockTx puts one unit back, used when an admin cancels a
// redemption.
func (r *RewardRepo) RestoreStockTx(ctx context.Context, tx *sql.Tx, rewardID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE rewards SET quantity = quantity + 1 WHERE id = ?`, rewardID)
	return err
}
