// Package postgres implements repository persistence over sqlx.
package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/pkg/errors"
	"github.com/sahartak2025/Code-samples-sub000/pkg/money"
)

type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `
	id, owner_kind, kind, currency, parent_id, provider_id,
	outgoing_rule_id, incoming_rule_id, internal_rule_id,
	refund_rule_id, chargeback_rule_id,
	balance, status, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
        INSERT INTO accounts (
            id, owner_kind, kind, currency, parent_id, provider_id,
            outgoing_rule_id, incoming_rule_id, internal_rule_id,
            refund_rule_id, chargeback_rule_id,
            balance, status, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
        )
    `

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.OwnerKind, a.Kind, a.Currency, a.ParentID, a.ProviderID,
		a.OutgoingRuleID, a.IncomingRuleID, a.InternalRuleID,
		a.RefundRuleID, a.ChargebackRuleID,
		a.Balance, a.Status, a.CreatedAt, a.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return errors.ErrAccountExists
		}
		return errors.Wrap(err, "failed to create account")
	}

	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	err := r.db.GetContext(ctx, &a, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrAccountNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account")
	}

	return &a, nil
}

func (r *AccountRepository) FindFeeSubAccount(ctx context.Context, parentID uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE parent_id = $1 LIMIT 1`

	err := r.db.GetContext(ctx, &a, query, parentID)
	if err == sql.ErrNoRows {
		return nil, errors.ErrAccountNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find fee sub-account")
	}

	return &a, nil
}

func (r *AccountRepository) FindSystemAccount(ctx context.Context, currency money.Currency, kind domain.AccountKind) (*domain.Account, error) {
	var a domain.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_kind = 'system' AND currency = $1 AND kind = $2 LIMIT 1`

	err := r.db.GetContext(ctx, &a, query, currency, kind)
	if err == sql.ErrNoRows {
		return nil, errors.ErrAccountNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find system account")
	}

	return &a, nil
}

func (r *AccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance int64) error {
	query := `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, balance, id)
	return errors.Wrap(err, "failed to update account balance")
}

func (r *AccountRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	var accounts []*domain.Account
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	err := r.db.SelectContext(ctx, &accounts, query, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list accounts")
	}

	return accounts, nil
}
