// Package catalog holds the in-memory commission and limit catalogs.
// Catalogs are explicit, injected objects: loaded once at service start
// from postgres and refreshed on demand, never ambient process state.
package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/pkg/logger"
	"github.com/sahartak2025/Code-samples-sub000/pkg/money"
)

// CommissionRepository loads rules from storage.
type CommissionRepository interface {
	FindAll(ctx context.Context) ([]*domain.CommissionRule, error)
}

type commissionScope struct {
	template  uuid.UUID
	kind      domain.CommissionKind
	currency  money.Currency
	direction domain.Direction
}

// CommissionCatalog is a read-mostly snapshot of commission rules.
type CommissionCatalog struct {
	repo   CommissionRepository
	logger logger.Logger

	mu      sync.RWMutex
	byScope map[commissionScope]*domain.CommissionRule
	byID    map[uuid.UUID]*domain.CommissionRule
}

func NewCommissionCatalog(repo CommissionRepository, log logger.Logger) *CommissionCatalog {
	return &CommissionCatalog{
		repo:    repo,
		logger:  log,
		byScope: make(map[commissionScope]*domain.CommissionRule),
		byID:    make(map[uuid.UUID]*domain.CommissionRule),
	}
}

// Load replaces the snapshot with the current storage contents. Rules
// sharing a scope are versioned overrides: the newest creation time wins,
// with the id as an explicit tie-break so the winner is deterministic.
func (c *CommissionCatalog) Load(ctx context.Context) error {
	rules, err := c.repo.FindAll(ctx)
	if err != nil {
		return err
	}

	sort.Slice(rules, func(i, j int) bool {
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].ID.String() < rules[j].ID.String()
	})

	byScope := make(map[commissionScope]*domain.CommissionRule, len(rules))
	byID := make(map[uuid.UUID]*domain.CommissionRule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
		byScope[commissionScope{r.RateTemplateID, r.Kind, r.Currency, r.Direction}] = r
	}

	c.mu.Lock()
	c.byScope = byScope
	c.byID = byID
	c.mu.Unlock()

	c.logger.Info("Commission catalog loaded", map[string]interface{}{
		"rules":  len(rules),
		"scopes": len(byScope),
	})
	return nil
}

// Resolve returns the winning rule for a scope, or nil when no rule
// matches. Callers treat nil as a zero fee.
func (c *CommissionCatalog) Resolve(template uuid.UUID, kind domain.CommissionKind, currency money.Currency, direction domain.Direction) *domain.CommissionRule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byScope[commissionScope{template, kind, currency, direction}]
}

// FindByID returns a rule by its id, used for per-account policy links.
func (c *CommissionCatalog) FindByID(id uuid.UUID) *domain.CommissionRule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID[id]
}
