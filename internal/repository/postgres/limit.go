package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/pkg/errors"
)

type LimitRepository struct {
	db *sqlx.DB
}

func NewLimitRepository(db *sqlx.DB) *LimitRepository {
	return &LimitRepository{db: db}
}

func (r *LimitRepository) FindAll(ctx context.Context) ([]*domain.Limit, error) {
	var limits []*domain.Limit
	query := `
        SELECT id, rate_template_id, compliance_level,
               transaction_amount_min, transaction_amount_max,
               monthly_amount_max, created_at
        FROM limits
        ORDER BY created_at ASC, id ASC
    `

	err := r.db.SelectContext(ctx, &limits, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load limits")
	}

	return limits, nil
}

func (r *LimitRepository) Create(ctx context.Context, limit *domain.Limit) error {
	query := `
        INSERT INTO limits (
            id, rate_template_id, compliance_level,
            transaction_amount_min, transaction_amount_max,
            monthly_amount_max, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7
        )
    `

	_, err := r.db.ExecContext(ctx, query,
		limit.ID, limit.RateTemplateID, limit.ComplianceLevel,
		limit.TransactionAmountMin, limit.TransactionAmountMax,
		limit.MonthlyAmountMax, limit.CreatedAt,
	)

	return errors.Wrap(err, "failed to create limit")
}
