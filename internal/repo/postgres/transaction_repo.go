package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
	"github.com/ivankudzin/recipemarket/internal/domain/model"
)

var (
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrTransactionNotPending = errors.New("transaction is not pending")
)

type TransactionRepo struct {
	pool *pgxpool.Pool
}

type TransactionFilter struct {
	Status enums.TransactionStatus
	UserID int64
	Limit  int
	Offset int
}

// PaymentTarget is the locked view of a transaction used while accepting payment details.
type PaymentTarget struct {
	UserID          int64
	Status          enums.TransactionStatus
	PaymentProofKey *string
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `t.id, t.user_id, u.username, t.total_cents, t.status, t.payment_method, t.payment_proof_url,
	t.payment_proof_key, t.admin_notes, t.created_at, t.verified_at, t.verified_by,
	(SELECT COUNT(*) FROM transaction_recipes tr WHERE tr.transaction_id = t.id)::int AS recipe_count`

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		t      model.Transaction
		status string
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Username,
		&t.TotalCents,
		&status,
		&t.PaymentMethod,
		&t.PaymentProofURL,
		&t.PaymentProofKey,
		&t.AdminNotes,
		&t.CreatedAt,
		&t.VerifiedAt,
		&t.VerifiedBy,
		&t.RecipeCount,
	)
	if err != nil {
		return model.Transaction{}, err
	}
	t.Status = enums.TransactionStatus(status)
	return t, nil
}

func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, userID, totalCents int64) (int64, error) {
	if tx == nil {
		return 0, ErrNilTx
	}

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO transactions (user_id, total_cents, status, created_at)
VALUES ($1, $2, 'pending', NOW())
RETURNING id
`, userID, totalCents).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

// InsertLines writes the price snapshot of every line with one statement.
func (r *TransactionRepo) InsertLines(ctx context.Context, tx pgx.Tx, transactionID int64, lines []model.LineItem) error {
	if tx == nil {
		return ErrNilTx
	}
	if len(lines) == 0 {
		return fmt.Errorf("transaction lines are empty")
	}

	recipeIDs := make([]int64, len(lines))
	prices := make([]int64, len(lines))
	for i, line := range lines {
		recipeIDs[i] = line.RecipeID
		prices[i] = line.PriceCents
	}

	tag, err := tx.Exec(ctx, `
INSERT INTO transaction_recipes (transaction_id, recipe_id, price_cents)
SELECT $1, t.recipe_id, t.price_cents
FROM unnest($2::bigint[], $3::bigint[]) AS t(recipe_id, price_cents)
`, transactionID, recipeIDs, prices)
	if err != nil {
		return fmt.Errorf("insert transaction lines: %w", err)
	}
	if int(tag.RowsAffected()) != len(lines) {
		return fmt.Errorf("insert transaction lines: wrote %d of %d", tag.RowsAffected(), len(lines))
	}
	return nil
}

func (r *TransactionRepo) LockForPayment(ctx context.Context, tx pgx.Tx, transactionID int64) (PaymentTarget, error) {
	if tx == nil {
		return PaymentTarget{}, ErrNilTx
	}

	var (
		target PaymentTarget
		status string
	)
	err := tx.QueryRow(ctx, `
SELECT user_id, status, payment_proof_key
FROM transactions
WHERE id = $1
FOR UPDATE
`, transactionID).Scan(&target.UserID, &status, &target.PaymentProofKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentTarget{}, ErrTransactionNotFound
		}
		return PaymentTarget{}, fmt.Errorf("lock transaction for payment: %w", err)
	}
	target.Status = enums.TransactionStatus(status)
	return target, nil
}

func (r *TransactionRepo) UpdatePayment(ctx context.Context, tx pgx.Tx, transactionID int64, method, proofURL string, proofKey *string) error {
	if tx == nil {
		return ErrNilTx
	}

	tag, err := tx.Exec(ctx, `
UPDATE transactions
SET payment_method = $2, payment_proof_url = $3, payment_proof_key = $4
WHERE id = $1 AND status = 'pending'
`, transactionID, method, proofURL, proofKey)
	if err != nil {
		return fmt.Errorf("update transaction payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotPending
	}
	return nil
}

// Transition moves a pending transaction into a terminal status. changed is
// false when the row is missing or no longer pending; the conditional update
// is what serialises concurrent reviewers.
func (r *TransactionRepo) Transition(
	ctx context.Context,
	tx pgx.Tx,
	transactionID int64,
	to enums.TransactionStatus,
	adminID int64,
	notes *string,
	now time.Time,
) (userID int64, changed bool, err error) {
	if tx == nil {
		return 0, false, ErrNilTx
	}
	if !to.IsTerminal() {
		return 0, false, fmt.Errorf("transition target %q is not terminal", to)
	}

	err = tx.QueryRow(ctx, `
UPDATE transactions
SET status = $2,
	verified_at = $3,
	verified_by = $4,
	admin_notes = COALESCE($5, admin_notes)
WHERE id = $1 AND status = 'pending'
RETURNING user_id
`, transactionID, string(to), now.UTC(), adminID, notes).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("transition transaction: %w", err)
	}
	return userID, true, nil
}

func (r *TransactionRepo) Status(ctx context.Context, q Querier, transactionID int64) (enums.TransactionStatus, error) {
	if q == nil {
		if r.pool == nil {
			return "", fmt.Errorf("postgres pool is nil")
		}
		q = r.pool
	}

	var status string
	if err := q.QueryRow(ctx, `SELECT status FROM transactions WHERE id = $1`, transactionID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrTransactionNotFound
		}
		return "", fmt.Errorf("read transaction status: %w", err)
	}
	return enums.TransactionStatus(status), nil
}

func (r *TransactionRepo) Lines(ctx context.Context, q Querier, transactionID int64) ([]model.LineItem, error) {
	if q == nil {
		if r.pool == nil {
			return nil, fmt.Errorf("postgres pool is nil")
		}
		q = r.pool
	}

	rows, err := q.Query(ctx, `
SELECT tr.recipe_id, rc.title, tr.price_cents
FROM transaction_recipes tr
JOIN recipes rc ON rc.id = tr.recipe_id
WHERE tr.transaction_id = $1
ORDER BY tr.recipe_id
`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list transaction lines: %w", err)
	}

	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LineItem, error) {
		var line model.LineItem
		err := row.Scan(&line.RecipeID, &line.Title, &line.PriceCents)
		return line, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan transaction lines: %w", err)
	}
	return lines, nil
}

func (r *TransactionRepo) FindByID(ctx context.Context, q Querier, transactionID int64) (model.Transaction, error) {
	if q == nil {
		if r.pool == nil {
			return model.Transaction{}, fmt.Errorf("postgres pool is nil")
		}
		q = r.pool
	}

	t, err := scanTransaction(q.QueryRow(ctx, `
SELECT `+transactionColumns+`
FROM transactions t
JOIN users u ON u.id = t.user_id
WHERE t.id = $1
`, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Transaction{}, ErrTransactionNotFound
		}
		return model.Transaction{}, fmt.Errorf("find transaction: %w", err)
	}
	return t, nil
}

func (r *TransactionRepo) ListForUser(ctx context.Context, userID int64, status enums.TransactionStatus) ([]model.Transaction, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	query := `
SELECT ` + transactionColumns + `
FROM transactions t
JOIN users u ON u.id = t.user_id
WHERE t.user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND t.status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY t.created_at DESC, t.id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list user transactions: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Transaction, error) {
		return scanTransaction(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan user transactions: %w", err)
	}
	return items, nil
}

func (r *TransactionRepo) ListAll(ctx context.Context, filter TransactionFilter) ([]model.Transaction, int64, error) {
	if r.pool == nil {
		return nil, 0, fmt.Errorf("postgres pool is nil")
	}

	clauses := []string{"TRUE"}
	args := make([]any, 0, 4)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, "t.status = $"+strconv.Itoa(len(args)))
	}
	if filter.UserID > 0 {
		args = append(args, filter.UserID)
		clauses = append(clauses, "t.user_id = $"+strconv.Itoa(len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions t WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := `
SELECT ` + transactionColumns + `
FROM transactions t
JOIN users u ON u.id = t.user_id
WHERE ` + where + `
ORDER BY t.created_at DESC, t.id DESC
LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Transaction, error) {
		return scanTransaction(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan transactions: %w", err)
	}
	return items, total, nil
}
