package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/pkg/errors"
)

type RefundRepository struct {
	db *sqlx.DB
}

func NewRefundRepository(db *sqlx.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

const refundColumns = `
	id, operation_id, transaction_id, amount, currency, reason,
	status, created_at, updated_at`

func (r *RefundRepository) Create(ctx context.Context, ref *domain.Refund) error {
	query := `
        INSERT INTO refunds (
            id, operation_id, transaction_id, amount, currency, reason,
            status, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9
        )
    `

	_, err := r.db.ExecContext(ctx, query,
		ref.ID, ref.OperationID, ref.TransactionID, ref.Amount, ref.Currency,
		ref.Reason, ref.Status, ref.CreatedAt, ref.UpdatedAt,
	)

	return errors.Wrap(err, "failed to create refund")
}

func (r *RefundRepository) Update(ctx context.Context, ref *domain.Refund) error {
	query := `
        UPDATE refunds
        SET transaction_id = $1, status = $2, updated_at = $3
        WHERE id = $4
    `

	_, err := r.db.ExecContext(ctx, query, ref.TransactionID, ref.Status, ref.UpdatedAt, ref.ID)
	return errors.Wrap(err, "failed to update refund")
}

func (r *RefundRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Refund, error) {
	var ref domain.Refund
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE id = $1`

	err := r.db.GetContext(ctx, &ref, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrRefundNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find refund")
	}

	return &ref, nil
}

func (r *RefundRepository) FindByTransactionID(ctx context.Context, txID uuid.UUID) (*domain.Refund, error) {
	var ref domain.Refund
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE transaction_id = $1`

	err := r.db.GetContext(ctx, &ref, query, txID)
	if err == sql.ErrNoRows {
		return nil, errors.ErrRefundNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find refund")
	}

	return &ref, nil
}

func (r *RefundRepository) SumActiveOrCompleted(ctx context.Context, operationID uuid.UUID) (int64, error) {
	var total int64
	query := `
        SELECT COALESCE(SUM(amount), 0)
        FROM refunds
        WHERE operation_id = $1
          AND status IN ('new', 'processing', 'completed')
    `
	err := r.db.GetContext(ctx, &total, query, operationID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum refunds")
	}
	return total, nil
}

func (r *RefundRepository) SumCompleted(ctx context.Context, operationID uuid.UUID) (int64, error) {
	var total int64
	query := `
        SELECT COALESCE(SUM(amount), 0)
        FROM refunds
        WHERE operation_id = $1 AND status = 'completed'
    `
	err := r.db.GetContext(ctx, &total, query, operationID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum completed refunds")
	}
	return total, nil
}
