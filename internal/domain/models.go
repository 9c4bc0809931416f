// Package domain defines the persisted entities of the settlement ledger.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sahartak2025/Code-samples-sub000/pkg/money"
)

// OwnerKind says who an account belongs to.
type OwnerKind string

const (
	OwnerSystem   OwnerKind = "system"
	OwnerClient   OwnerKind = "client"
	OwnerProvider OwnerKind = "provider"
)

// AccountKind is the rail an account settles over.
type AccountKind string

const (
	AccountKindWire   AccountKind = "wire"
	AccountKindCard   AccountKind = "card"
	AccountKindCrypto AccountKind = "crypto"
	AccountKindWallet AccountKind = "wallet"
)

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
)

// Account is one ledger account. Currency is fixed for its lifetime.
// A provider fee sub-account references its parent via ParentID; the
// cached Balance is derived from transaction history, never authoritative.
type Account struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	OwnerKind  OwnerKind      `json:"owner_kind" db:"owner_kind"`
	Kind       AccountKind    `json:"kind" db:"kind"`
	Currency   money.Currency `json:"currency" db:"currency"`
	ParentID   *uuid.UUID     `json:"parent_id,omitempty" db:"parent_id"`
	ProviderID *uuid.UUID     `json:"provider_id,omitempty" db:"provider_id"`

	// Commission policy links, used directly for SYSTEM/PROVIDER accounts.
	OutgoingRuleID   *uuid.UUID `json:"outgoing_rule_id,omitempty" db:"outgoing_rule_id"`
	IncomingRuleID   *uuid.UUID `json:"incoming_rule_id,omitempty" db:"incoming_rule_id"`
	InternalRuleID   *uuid.UUID `json:"internal_rule_id,omitempty" db:"internal_rule_id"`
	RefundRuleID     *uuid.UUID `json:"refund_rule_id,omitempty" db:"refund_rule_id"`
	ChargebackRuleID *uuid.UUID `json:"chargeback_rule_id,omitempty" db:"chargeback_rule_id"`

	Balance   int64         `json:"balance" db:"balance"`
	Status    AccountStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// BalanceMoney returns the cached balance as a typed amount.
func (a *Account) BalanceMoney() money.Money {
	return money.New(a.Balance, a.Currency)
}

// CommissionKind categorises a fee for rule scoping.
type CommissionKind string

const (
	CommissionWire     CommissionKind = "wire"
	CommissionCard     CommissionKind = "card"
	CommissionCrypto   CommissionKind = "crypto"
	CommissionExchange CommissionKind = "exchange"
	CommissionInternal CommissionKind = "internal"
)

// CommissionKindForAccount maps a CLIENT account's kind to the commission
// kind used in rate-template lookups.
var CommissionKindForAccount = map[AccountKind]CommissionKind{
	AccountKindWire:   CommissionWire,
	AccountKindCard:   CommissionCard,
	AccountKindCrypto: CommissionCrypto,
	AccountKindWallet: CommissionInternal,
}

// Direction is the side of the movement a rule applies to.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// CommissionRule is one versioned fee formula. Several rules may share a
// scope; the most recently created one wins.
type CommissionRule struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	RateTemplateID uuid.UUID       `json:"rate_template_id" db:"rate_template_id"`
	Kind           CommissionKind  `json:"kind" db:"kind"`
	Currency       money.Currency  `json:"currency" db:"currency"`
	Direction      Direction       `json:"direction" db:"direction"`
	Percent        decimal.Decimal `json:"percent" db:"percent"`
	Fixed          int64           `json:"fixed" db:"fixed"`
	MinAmount      int64           `json:"min_amount" db:"min_amount"`
	MaxAmount      int64           `json:"max_amount" db:"max_amount"`
	// BlockchainFee is a per-leg network cost for crypto kinds, charged
	// outside the min/max clamp.
	BlockchainFee int64     `json:"blockchain_fee" db:"blockchain_fee"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Limit caps operations for one (rate template, compliance level) pair.
// Amounts are minor units of the reporting currency.
type Limit struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	RateTemplateID       uuid.UUID `json:"rate_template_id" db:"rate_template_id"`
	ComplianceLevel      int       `json:"compliance_level" db:"compliance_level"`
	TransactionAmountMin int64     `json:"transaction_amount_min" db:"transaction_amount_min"`
	TransactionAmountMax int64     `json:"transaction_amount_max" db:"transaction_amount_max"`
	MonthlyAmountMax     int64     `json:"monthly_amount_max" db:"monthly_amount_max"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// OperationKind is the client-facing action an operation performs.
type OperationKind string

const (
	OperationTopUp        OperationKind = "top_up"
	OperationWithdraw     OperationKind = "withdraw"
	OperationExchange     OperationKind = "exchange"
	OperationCardCharge   OperationKind = "card_charge"
	OperationTransfer     OperationKind = "transfer"
	OperationSubscription OperationKind = "subscription"
)

type OperationStatus string

const (
	OperationStatusPending    OperationStatus = "pending"
	OperationStatusSuccessful OperationStatus = "successful"
	OperationStatusReturned   OperationStatus = "returned"
	OperationStatusFailed     OperationStatus = "failed"
)

// Operation groups the transactions of one business action. Status is
// derived from the non-fee child transactions, never set directly.
type Operation struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Kind          OperationKind   `json:"kind" db:"kind"`
	Status        OperationStatus `json:"status" db:"status"`
	Substatus     string          `json:"substatus" db:"substatus"`
	FromAccountID *uuid.UUID      `json:"from_account_id,omitempty" db:"from_account_id"`
	ToAccountID   *uuid.UUID      `json:"to_account_id,omitempty" db:"to_account_id"`

	Amount     int64          `json:"amount" db:"amount"`
	Currency   money.Currency `json:"currency" db:"currency"`
	ToAmount   int64          `json:"to_amount" db:"to_amount"`
	ToCurrency money.Currency `json:"to_currency" db:"to_currency"`

	// ReportingAmount is the amount expressed in the platform reporting
	// currency, used for limit comparisons only.
	ReportingAmount int64 `json:"reporting_amount" db:"reporting_amount"`

	ClientProfileID    uuid.UUID  `json:"client_profile_id" db:"client_profile_id"`
	RateTemplateID     uuid.UUID  `json:"rate_template_id" db:"rate_template_id"`
	ComplianceReviewID *uuid.UUID `json:"compliance_review_id,omitempty" db:"compliance_review_id"`

	// PeriodStart/PeriodEnd bound subscription-style operations and drive
	// pro-rata refund entitlement.
	PeriodStart *time.Time `json:"period_start,omitempty" db:"period_start"`
	PeriodEnd   *time.Time `json:"period_end,omitempty" db:"period_end"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TransactionType is the role a ledger entry plays.
type TransactionType string

const (
	TransactionTypePrincipal     TransactionType = "principal"
	TransactionTypeSystemFee     TransactionType = "system_fee"
	TransactionTypeBlockchainFee TransactionType = "blockchain_fee"
	TransactionTypeExchange      TransactionType = "exchange"
	TransactionTypeRefund        TransactionType = "refund"
	TransactionTypeChargeback    TransactionType = "chargeback"
)

// IsFee reports whether the type is a fee leg derived from a principal.
func (t TransactionType) IsFee() bool {
	return t == TransactionTypeSystemFee || t == TransactionTypeBlockchainFee
}

// IsCompensating reports whether the type reverses an already-completed
// operation. Compensating legs carry their own lifecycle on the Refund
// record and never feed back into the operation's derived status.
func (t TransactionType) IsCompensating() bool {
	return t == TransactionTypeRefund || t == TransactionTypeChargeback
}

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusSuccessful TransactionStatus = "successful"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// Terminal reports whether the status is final.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusSuccessful || s == TransactionStatusFailed
}

// Transaction is one atomic money movement. TransAmount is debited in the
// from-account currency, RecipientAmount credited in the to-account
// currency; ExchangeRate is the snapshot used at creation (1 for
// same-currency). Once terminal, a row is never updated again.
type Transaction struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OperationID *uuid.UUID      `json:"operation_id,omitempty" db:"operation_id"`
	ParentID    *uuid.UUID      `json:"parent_id,omitempty" db:"parent_id"`
	Type        TransactionType `json:"type" db:"type"`

	FromAccountID uuid.UUID `json:"from_account_id" db:"from_account_id"`
	ToAccountID   uuid.UUID `json:"to_account_id" db:"to_account_id"`

	TransAmount       int64           `json:"trans_amount" db:"trans_amount"`
	TransCurrency     money.Currency  `json:"trans_currency" db:"trans_currency"`
	RecipientAmount   int64           `json:"recipient_amount" db:"recipient_amount"`
	RecipientCurrency money.Currency  `json:"recipient_currency" db:"recipient_currency"`
	ExchangeRate      decimal.Decimal `json:"exchange_rate" db:"exchange_rate"`

	Status    TransactionStatus `json:"status" db:"status"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	SettledAt *time.Time        `json:"settled_at,omitempty" db:"settled_at"`
}

type RefundStatus string

const (
	RefundStatusNew        RefundStatus = "new"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusFailed     RefundStatus = "failed"
	RefundStatusRefused    RefundStatus = "refused"
	RefundStatusCompleted  RefundStatus = "completed"
)

// Refund tracks one compensating payout against a completed operation.
type Refund struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	OperationID   uuid.UUID      `json:"operation_id" db:"operation_id"`
	TransactionID *uuid.UUID     `json:"transaction_id,omitempty" db:"transaction_id"`
	Amount        int64          `json:"amount" db:"amount"`
	Currency      money.Currency `json:"currency" db:"currency"`
	Reason        string         `json:"reason" db:"reason"`
	Status        RefundStatus   `json:"status" db:"status"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// ClientProfile carries the compliance context the gate and resolver need.
// Profiles themselves are owned by the external compliance workflow.
type ClientProfile struct {
	ID              uuid.UUID `json:"id"`
	RateTemplateID  uuid.UUID `json:"rate_template_id"`
	ComplianceLevel int       `json:"compliance_level"`
}
