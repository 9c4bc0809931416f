package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/pkg/errors"
)

type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, operation_id, parent_id, type, from_account_id, to_account_id,
	trans_amount, trans_currency, recipient_amount, recipient_currency,
	exchange_rate, status, created_at, settled_at`

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
        INSERT INTO transactions (
            id, operation_id, parent_id, type, from_account_id, to_account_id,
            trans_amount, trans_currency, recipient_amount, recipient_currency,
            exchange_rate, status, created_at, settled_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
        )
    `

	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.OperationID, tx.ParentID, tx.Type, tx.FromAccountID, tx.ToAccountID,
		tx.TransAmount, tx.TransCurrency, tx.RecipientAmount, tx.RecipientCurrency,
		tx.ExchangeRate, tx.Status, tx.CreatedAt, tx.SettledAt,
	)

	return errors.Wrap(err, "failed to create transaction")
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var tx domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	err := r.db.GetContext(ctx, &tx, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrTransactionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find transaction")
	}

	return &tx, nil
}

func (r *TransactionRepository) FindByOperationID(ctx context.Context, operationID uuid.UUID) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE operation_id = $1 ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &txs, query, operationID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find transactions")
	}

	return txs, nil
}

// Settle is the compare-and-swap that enforces at-most-once settlement:
// only a pending row can move to a terminal status, and the caller learns
// from the row count whether it won the race.
func (r *TransactionRepository) Settle(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, settledAt time.Time) (bool, error) {
	query := `
        UPDATE transactions
        SET status = $1, settled_at = $2
        WHERE id = $3 AND status = 'pending'
    `

	result, err := r.db.ExecContext(ctx, query, status, settledAt, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to settle transaction")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read settle result")
	}

	return rows > 0, nil
}

func (r *TransactionRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	query := `
        SELECT ` + transactionColumns + `
        FROM transactions
        WHERE from_account_id = $1 OR to_account_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `

	err := r.db.SelectContext(ctx, &txs, query, accountID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find transactions")
	}

	return txs, nil
}

// SumSettledIncoming totals recipient amounts of successful transactions
// credited to the account.
func (r *TransactionRepository) SumSettledIncoming(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var total int64
	query := `
        SELECT COALESCE(SUM(recipient_amount), 0)
        FROM transactions
        WHERE to_account_id = $1 AND status = 'successful'
    `
	err := r.db.GetContext(ctx, &total, query, accountID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum incoming transactions")
	}
	return total, nil
}

// SumOutgoingReserved totals debited amounts that are settled out or
// still reserved: successful outgoing rows plus pending rows whose owning
// operation is itself pending.
func (r *TransactionRepository) SumOutgoingReserved(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var total int64
	query := `
        SELECT COALESCE(SUM(t.trans_amount), 0)
        FROM transactions t
        LEFT JOIN operations o ON o.id = t.operation_id
        WHERE t.from_account_id = $1
          AND (
            t.status = 'successful'
            OR (t.status = 'pending' AND o.status = 'pending')
          )
    `
	err := r.db.GetContext(ctx, &total, query, accountID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum outgoing transactions")
	}
	return total, nil
}

// SumPendingWithdrawals totals pending withdraw-type operations from the
// account that have no transaction rows yet: money promised but not
// materialized is reserved immediately.
func (r *TransactionRepository) SumPendingWithdrawals(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var total int64
	query := `
        SELECT COALESCE(SUM(o.amount), 0)
        FROM operations o
        WHERE o.from_account_id = $1
          AND o.kind = 'withdraw'
          AND o.status = 'pending'
          AND NOT EXISTS (
            SELECT 1 FROM transactions t WHERE t.operation_id = o.id
          )
    `
	err := r.db.GetContext(ctx, &total, query, accountID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum pending withdrawals")
	}
	return total, nil
}

// SumSettledIncomingAsOf replays settled credits up to and including the
// reference transaction, by creation order.
func (r *TransactionRepository) SumSettledIncomingAsOf(ctx context.Context, accountID, txID uuid.UUID) (int64, error) {
	var total int64
	query := `
        SELECT COALESCE(SUM(recipient_amount), 0)
        FROM transactions
        WHERE to_account_id = $1
          AND status = 'successful'
          AND (created_at, id) <= (SELECT created_at, id FROM transactions WHERE id = $2)
    `
	err := r.db.GetContext(ctx, &total, query, accountID, txID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum incoming transactions as of")
	}
	return total, nil
}

// SumSettledOutgoingAsOf replays settled debits up to and including the
// reference transaction, by creation order.
func (r *TransactionRepository) SumSettledOutgoingAsOf(ctx context.Context, accountID, txID uuid.UUID) (int64, error) {
	var total int64
	query := `
        SELECT COALESCE(SUM(trans_amount), 0)
        FROM transactions
        WHERE from_account_id = $1
          AND status = 'successful'
          AND (created_at, id) <= (SELECT created_at, id FROM transactions WHERE id = $2)
    `
	err := r.db.GetContext(ctx, &total, query, accountID, txID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum outgoing transactions as of")
	}
	return total, nil
}
