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

type OperationRepository struct {
	db *sqlx.DB
}

func NewOperationRepository(db *sqlx.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

const operationColumns = `
	id, kind, status, substatus, from_account_id, to_account_id,
	amount, currency, to_amount, to_currency, reporting_amount,
	client_profile_id, rate_template_id, compliance_review_id,
	period_start, period_end, created_at, updated_at`

func (r *OperationRepository) Create(ctx context.Context, op *domain.Operation) error {
	query := `
        INSERT INTO operations (
            id, kind, status, substatus, from_account_id, to_account_id,
            amount, currency, to_amount, to_currency, reporting_amount,
            client_profile_id, rate_template_id, compliance_review_id,
            period_start, period_end, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
            $15, $16, $17, $18
        )
    `

	_, err := r.db.ExecContext(ctx, query,
		op.ID, op.Kind, op.Status, op.Substatus, op.FromAccountID, op.ToAccountID,
		op.Amount, op.Currency, op.ToAmount, op.ToCurrency, op.ReportingAmount,
		op.ClientProfileID, op.RateTemplateID, op.ComplianceReviewID,
		op.PeriodStart, op.PeriodEnd, op.CreatedAt, op.UpdatedAt,
	)

	return errors.Wrap(err, "failed to create operation")
}

func (r *OperationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Operation, error) {
	var op domain.Operation
	query := `SELECT ` + operationColumns + ` FROM operations WHERE id = $1`

	err := r.db.GetContext(ctx, &op, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrOperationNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find operation")
	}

	return &op, nil
}

func (r *OperationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OperationStatus, substatus string) error {
	query := `UPDATE operations SET status = $1, substatus = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, substatus, id)
	return errors.Wrap(err, "failed to update operation status")
}

// MonthlyReportingTotal sums a client's operations since the given moment
// in reporting-currency minor units, ignoring failed ones.
func (r *OperationRepository) MonthlyReportingTotal(ctx context.Context, clientProfileID uuid.UUID, since time.Time) (int64, error) {
	var total int64
	query := `
        SELECT COALESCE(SUM(reporting_amount), 0)
        FROM operations
        WHERE client_profile_id = $1
          AND created_at >= $2
          AND status != 'failed'
    `
	err := r.db.GetContext(ctx, &total, query, clientProfileID, since)
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum monthly operations")
	}
	return total, nil
}

func (r *OperationRepository) FindByClientProfile(ctx context.Context, clientProfileID uuid.UUID, limit, offset int) ([]*domain.Operation, error) {
	var ops []*domain.Operation
	query := `
        SELECT ` + operationColumns + `
        FROM operations
        WHERE client_profile_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `

	err := r.db.SelectContext(ctx, &ops, query, clientProfileID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find operations")
	}

	return ops, nil
}
