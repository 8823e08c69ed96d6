package repository

import (
	"context"
	"database/sql"

	"github.com/provia/rewards-service/internal/model"
)

// LedgerRepo provides access to the append-only ledger_entries table.
// The table has no update or delete path anywhere in this codebase;
// corrections are modelled as new compensating entries so the history
// stays complete for audit.  A user's balance is always derived by
// summing their entries inside the transactional store, never read from
// a separately maintained counter that could drift.
type LedgerRepo struct {
	db *sql.DB
}

// NewLedgerRepo returns a LedgerRepo bound to the given database.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// Append inserts a new immutable ledger entry and returns it with its
// generated id and timestamp.  Input validation (non-zero amount,
// non-empty category) happens here so every write path is covered.
func (r *LedgerRepo) Append(ctx context.Context, in model.LedgerEntryInput) (model.LedgerEntry, error) {
	if err := in.Validate(); err != nil {
		return model.LedgerEntry{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (user_id, amount, category, reason, reference) VALUES (?,?,?,?,?)`,
		in.UserID, in.Amount, in.Category, in.Reason, nullable(in.Reference))
	if err != nil {
		return model.LedgerEntry{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.LedgerEntry{}, err
	}
	return r.getByID(ctx, r.db.QueryRowContext, uint64(id))
}

// AppendTx is Append within a caller-owned transaction.  It skips the
// read-back of generated columns; the caller only needs the id.
func (r *LedgerRepo) AppendTx(ctx context.Context, tx *sql.Tx, in model.LedgerEntryInput) (uint64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (user_id, amount, category, reason, reference) VALUES (?,?,?,?,?)`,
		in.UserID, in.Amount, in.Category, in.Reason, nullable(in.Reference))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Balance returns the sum of all entries for the user.  A user with no
// history has balance zero.  This reads the primary store directly; it
// must not be served from a cache because the redemption workflow's
// affordability check depends on seeing every committed entry.
func (r *LedgerRepo) Balance(ctx context.Context, userID uint64) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE user_id = ?`,
		userID).Scan(&total)
	return total, err
}

// BalanceTx computes the sum inside a transaction as a locking read.
// The redemption commit uses it as the final overdraft guard, and the
// lock is what makes the guard hold: a plain consistent read under
// REPEATABLE READ would see a snapshot without a competing commit's
// debit, letting two transactions overdraw the same user.  FOR UPDATE
// locks the user's index range instead, so the competitor either waits
// and sees the committed debit, or deadlocks and retries.
func (r *LedgerRepo) BalanceTx(ctx context.Context, tx *sql.Tx, userID uint64) (int64, error) {
	var total int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE user_id = ? FOR UPDATE`,
		userID).Scan(&total)
	return total, err
}

// CategoryBalances groups and sums the user's entries by category.
// Categories the user has no history in are absent here; zero-filling
// against the configured category list is the service layer's job.
func (r *LedgerRepo) CategoryBalances(ctx context.Context, userID uint64) ([]model.CategoryBalance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, COALESCE(SUM(amount), 0)
		 FROM ledger_entries
		 WHERE user_id = ?
		 GROUP BY category
		 ORDER BY category`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CategoryBalance, 0)
	for rows.Next() {
		var cb model.CategoryBalance
		if err := rows.Scan(&cb.Category, &cb.NetPoints); err != nil {
			return nil, err
		}
		out = append(out, cb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// EntriesByUser returns the user's ledger history, newest first.  limit
// caps the page size; values outside (0, 500] fall back to 100.
func (r *LedgerRepo) EntriesByUser(ctx context.Context, userID uint64, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount, category, reason, reference, created_at
		 FROM ledger_entries
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.LedgerEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *LedgerRepo) getByID(ctx context.Context, query func(context.Context, string, ...any) *sql.Row, id uint64) (model.LedgerEntry, error) {
	row := query(ctx,
		`SELECT id, user_id, amount, category, reason, reference, created_at
		 FROM ledger_entries WHERE id = ?`, id)
	return scanEntry(row.Scan)
}

func scanEntry(scan func(...any) error) (model.LedgerEntry, error) {
	var (
		e   model.LedgerEntry
		ref sql.NullString
	)
	if err := scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &e.Reason, &ref, &e.CreatedAt); err != nil {
		return model.LedgerEntry{}, err
	}
	if ref.Valid {
		e.Reference = ref.String
	}
	return e, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
