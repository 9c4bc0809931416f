// Package commission resolves which fee rule applies to a movement and
// computes the resulting fee amount.
package commission

import (
	"github.com/google/uuid"

	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/pkg/money"
)

// Catalog is the rule lookup the resolver runs against.
type Catalog interface {
	Resolve(template uuid.UUID, kind domain.CommissionKind, currency money.Currency, direction domain.Direction) *domain.CommissionRule
	FindByID(id uuid.UUID) *domain.CommissionRule
}

// Context describes the movement a fee is being resolved for.
type Context struct {
	Account *domain.Account
	// RateTemplateID is the client tier template; ignored for
	// SYSTEM/PROVIDER accounts, which carry fixed policy links instead.
	RateTemplateID uuid.UUID
	Direction      domain.Direction
	Type           domain.TransactionType
}

// Resolver applies the two-tier resolution design: client fees come from
// a shared rate template, platform-internal fees from per-account policy
// links negotiated per provider contract.
type Resolver struct {
	catalog Catalog
}

func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve returns the applicable rule, or nil when the movement carries
// no fee. A nil result is not an error.
func (r *Resolver) Resolve(rc Context) *domain.CommissionRule {
	if rc.Account == nil {
		return nil
	}

	if rc.Account.OwnerKind == domain.OwnerClient {
		kind := clientKind(rc)
		if kind == "" {
			return nil
		}
		return r.catalog.Resolve(rc.RateTemplateID, kind, rc.Account.Currency, rc.Direction)
	}

	if id := policyLink(rc); id != nil {
		return r.catalog.FindByID(*id)
	}
	return nil
}

func clientKind(rc Context) domain.CommissionKind {
	switch rc.Type {
	case domain.TransactionTypeExchange:
		return domain.CommissionExchange
	default:
		return domain.CommissionKindForAccount[rc.Account.Kind]
	}
}

func policyLink(rc Context) *uuid.UUID {
	a := rc.Account
	switch rc.Type {
	case domain.TransactionTypeRefund:
		return a.RefundRuleID
	case domain.TransactionTypeChargeback:
		return a.ChargebackRuleID
	case domain.TransactionTypeExchange:
		return a.InternalRuleID
	}
	if rc.Direction == domain.DirectionIncoming {
		return a.IncomingRuleID
	}
	return a.OutgoingRuleID
}

// FeeParts computes what a rule charges on a principal amount, split into
// the platform fee, clamp(amount*percent/100 + fixed, min, max), and the
// per-leg network cost crypto rules pass through outside the clamp.
// A nil rule charges nothing.
func FeeParts(rule *domain.CommissionRule, amount money.Money, legs int) (service, network money.Money) {
	service = money.New(0, amount.Currency)
	network = money.New(0, amount.Currency)
	if rule == nil {
		return service, network
	}

	service = amount.Percent(rule.Percent)
	service.Units += rule.Fixed
	service = service.Clamp(
		money.New(rule.MinAmount, amount.Currency),
		money.New(rule.MaxAmount, amount.Currency),
	)

	if rule.Kind == domain.CommissionCrypto && rule.BlockchainFee > 0 {
		if legs < 1 {
			legs = 1
		}
		network.Units = rule.BlockchainFee * int64(legs)
	}
	return service, network
}

// Fee is the total charge: platform fee plus network cost.
func Fee(rule *domain.CommissionRule, amount money.Money, legs int) money.Money {
	service, network := FeeParts(rule, amount, legs)
	return money.New(service.Units+network.Units, amount.Currency)
}
