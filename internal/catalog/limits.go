package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/pkg/logger"
)

// LimitRepository loads limits from storage.
type LimitRepository interface {
	FindAll(ctx context.Context) ([]*domain.Limit, error)
}

type limitScope struct {
	template uuid.UUID
	level    int
}

// LimitCatalog is a read-mostly snapshot of per-compliance-level limits.
type LimitCatalog struct {
	repo   LimitRepository
	logger logger.Logger

	mu       sync.RWMutex
	byScope  map[limitScope]*domain.Limit
	byLevels map[uuid.UUID][]int
}

func NewLimitCatalog(repo LimitRepository, log logger.Logger) *LimitCatalog {
	return &LimitCatalog{
		repo:     repo,
		logger:   log,
		byScope:  make(map[limitScope]*domain.Limit),
		byLevels: make(map[uuid.UUID][]int),
	}
}

// Load replaces the snapshot with current storage contents. As with
// commission rules, the newest row per scope wins.
func (c *LimitCatalog) Load(ctx context.Context) error {
	limits, err := c.repo.FindAll(ctx)
	if err != nil {
		return err
	}

	sort.Slice(limits, func(i, j int) bool {
		if !limits[i].CreatedAt.Equal(limits[j].CreatedAt) {
			return limits[i].CreatedAt.Before(limits[j].CreatedAt)
		}
		return limits[i].ID.String() < limits[j].ID.String()
	})

	byScope := make(map[limitScope]*domain.Limit, len(limits))
	byLevels := make(map[uuid.UUID][]int)
	for _, l := range limits {
		scope := limitScope{l.RateTemplateID, l.ComplianceLevel}
		if _, seen := byScope[scope]; !seen {
			byLevels[l.RateTemplateID] = append(byLevels[l.RateTemplateID], l.ComplianceLevel)
		}
		byScope[scope] = l
	}
	for _, levels := range byLevels {
		sort.Ints(levels)
	}

	c.mu.Lock()
	c.byScope = byScope
	c.byLevels = byLevels
	c.mu.Unlock()

	c.logger.Info("Limit catalog loaded", map[string]interface{}{
		"limits": len(limits),
	})
	return nil
}

// Lookup returns the limit for a (rate template, compliance level) pair,
// or nil when none is configured.
func (c *LimitCatalog) Lookup(template uuid.UUID, level int) *domain.Limit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byScope[limitScope{template, level}]
}

// LevelsAbove returns the compliance levels configured for a template
// that are strictly higher than the given one, ascending.
func (c *LimitCatalog) LevelsAbove(template uuid.UUID, level int) []int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []int
	for _, l := range c.byLevels[template] {
		if l > level {
			out = append(out, l)
		}
	}
	return out
}
