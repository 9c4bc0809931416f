package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sahartak2025/Code-samples-sub000/internal/catalog"
	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/internal/repository/postgres"
	"github.com/sahartak2025/Code-samples-sub000/pkg/money"
	"github.com/sahartak2025/Code-samples-sub000/pkg/validator"
	"github.com/shopspring/decimal"
)

const catalogRefreshLockTTL = 30 * time.Second

// AdminHandler manages catalog administration and service health endpoints.
type AdminHandler struct {
	db          *sqlx.DB
	redisClient *redis.Client
	commissions *catalog.CommissionCatalog
	limits      *catalog.LimitCatalog
	ruleRepo    *postgres.CommissionRepository
	limitRepo   *postgres.LimitRepository
	validator   *validator.Validator
	logger      Logger
	startTime   time.Time
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *sqlx.DB, redisClient *redis.Client, commissions *catalog.CommissionCatalog, limits *catalog.LimitCatalog, ruleRepo *postgres.CommissionRepository, limitRepo *postgres.LimitRepository, val *validator.Validator, log Logger) *AdminHandler {
	return &AdminHandler{
		db:          db,
		redisClient: redisClient,
		commissions: commissions,
		limits:      limits,
		ruleRepo:    ruleRepo,
		limitRepo:   limitRepo,
		validator:   val,
		logger:      log,
		startTime:   time.Now(),
	}
}

// Health reports liveness of the service and its dependencies.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "unavailable"
	}
	redisStatus := "ok"
	if h.redisClient == nil {
		redisStatus = "disabled"
	} else if err := h.redisClient.Ping(ctx).Err(); err != nil {
		redisStatus = "unavailable"
	}

	status := http.StatusOK
	if dbStatus != "ok" {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, map[string]interface{}{
		"status":         dbStatus,
		"redis":          redisStatus,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	})
}

// RefreshCatalogs reloads commission rules and limits from the database.
// A short-lived redis lock collapses concurrent refresh requests; when
// redis is down the refresh runs anyway.
func (h *AdminHandler) RefreshCatalogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.redisClient != nil {
		ok, err := h.redisClient.SetNX(ctx, "catalog:refresh:lock", "1", catalogRefreshLockTTL).Result()
		if err == nil && !ok {
			respondJSON(w, http.StatusAccepted, map[string]string{"status": "refresh already in progress"})
			return
		}
		if err != nil {
			h.logger.Warn("Catalog refresh lock unavailable, proceeding without it", map[string]interface{}{"error": err.Error()})
		} else {
			defer h.redisClient.Del(ctx, "catalog:refresh:lock")
		}
	}

	if err := h.commissions.Load(ctx); err != nil {
		h.logger.Error("Failed to reload commission catalog", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to reload commission catalog")
		return
	}
	if err := h.limits.Load(ctx); err != nil {
		h.logger.Error("Failed to reload limit catalog", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to reload limit catalog")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "catalogs reloaded"})
}

type createRuleRequest struct {
	RateTemplateID uuid.UUID       `json:"rate_template_id" validate:"required"`
	Kind           string          `json:"kind" validate:"required,oneof=wire card crypto internal exchange"`
	Currency       string          `json:"currency" validate:"required"`
	Direction      string          `json:"direction" validate:"required,oneof=incoming outgoing"`
	Percent        decimal.Decimal `json:"percent"`
	Fixed          int64           `json:"fixed" validate:"gte=0"`
	MinAmount      int64           `json:"min_amount" validate:"gte=0"`
	MaxAmount      int64           `json:"max_amount" validate:"gte=0"`
	BlockchainFee  int64           `json:"blockchain_fee" validate:"gte=0"`
}

// CreateRule inserts a commission rule. The catalogs serve the new rule
// only after the next refresh; rules are never updated in place.
func (h *AdminHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	rule := &domain.CommissionRule{
		ID:             uuid.New(),
		RateTemplateID: req.RateTemplateID,
		Kind:           domain.CommissionKind(req.Kind),
		Currency:       money.Currency(req.Currency),
		Direction:      domain.Direction(req.Direction),
		Percent:        req.Percent,
		Fixed:          req.Fixed,
		MinAmount:      req.MinAmount,
		MaxAmount:      req.MaxAmount,
		BlockchainFee:  req.BlockchainFee,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.ruleRepo.Create(r.Context(), rule); err != nil {
		h.logger.Error("Failed to create commission rule", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to create commission rule")
		return
	}

	respondJSON(w, http.StatusCreated, rule)
}

type createLimitRequest struct {
	RateTemplateID       uuid.UUID `json:"rate_template_id" validate:"required"`
	ComplianceLevel      int       `json:"compliance_level" validate:"gte=0"`
	TransactionAmountMin int64     `json:"transaction_amount_min" validate:"gte=0"`
	TransactionAmountMax int64     `json:"transaction_amount_max" validate:"gte=0"`
	MonthlyAmountMax     int64     `json:"monthly_amount_max" validate:"gte=0"`
}

// CreateLimit inserts a limit row for a (rate template, compliance level)
// pair.
func (h *AdminHandler) CreateLimit(w http.ResponseWriter, r *http.Request) {
	var req createLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	limit := &domain.Limit{
		ID:                   uuid.New(),
		RateTemplateID:       req.RateTemplateID,
		ComplianceLevel:      req.ComplianceLevel,
		TransactionAmountMin: req.TransactionAmountMin,
		TransactionAmountMax: req.TransactionAmountMax,
		MonthlyAmountMax:     req.MonthlyAmountMax,
		CreatedAt:            time.Now().UTC(),
	}
	if err := h.limitRepo.Create(r.Context(), limit); err != nil {
		h.logger.Error("Failed to create limit", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to create limit")
		return
	}

	respondJSON(w, http.StatusCreated, limit)
}
