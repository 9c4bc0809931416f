package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/pkg/errors"
)

type CommissionRepository struct {
	db *sqlx.DB
}

func NewCommissionRepository(db *sqlx.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

func (r *CommissionRepository) FindAll(ctx context.Context) ([]*domain.CommissionRule, error) {
	var rules []*domain.CommissionRule
	query := `
        SELECT id, rate_template_id, kind, currency, direction,
               percent, fixed, min_amount, max_amount, blockchain_fee, created_at
        FROM commission_rules
        ORDER BY created_at ASC, id ASC
    `

	err := r.db.SelectContext(ctx, &rules, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load commission rules")
	}

	return rules, nil
}

func (r *CommissionRepository) Create(ctx context.Context, rule *domain.CommissionRule) error {
	query := `
        INSERT INTO commission_rules (
            id, rate_template_id, kind, currency, direction,
            percent, fixed, min_amount, max_amount, blockchain_fee, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
        )
    `

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.RateTemplateID, rule.Kind, rule.Currency, rule.Direction,
		rule.Percent, rule.Fixed, rule.MinAmount, rule.MaxAmount, rule.BlockchainFee, rule.CreatedAt,
	)

	return errors.Wrap(err, "failed to create commission rule")
}
