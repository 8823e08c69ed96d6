package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/provia/rewards-service/internal/model"
	"github.com/provia/rewards-service/internal/repository"
	"github.com/provia/rewards-service/internal/service"
)

// AdminRewardHandler manages the reward catalog and redemption
// fulfilment.  Every mutation invalidates the public catalog cache so
// members never see stale stock or pricing for longer than one request.
type AdminRewardHandler struct {
	Rewards     *repository.RewardRepo
	Redemptions *repository.RedemptionRepo
	Cache       service.Invalidator // nil when caching is disabled
}

func NewAdminRewardHandler(rw *repository.RewardRepo, rd *repository.RedemptionRepo, cache service.Invalidator) *AdminRewardHandler {
	return &AdminRewardHandler{Rewards: rw, Redemptions: rd, Cache: cache}
}

type rewardReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
	Category    string `json:"category"`
	IsActive    *bool  `json:"is_active"`
	IsFeatured  bool   `json:"is_featured"`
}

func (r *rewardReq) validate() (string, bool) {
	r.Title = strings.TrimSpace(r.Title)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	switch {
	case r.Title == "":
		return "title required", false
	case r.Price <= 0:
		return "price must be positive", false
	case r.Quantity < 0:
		return "quantity must not be negative", false
	case !model.ValidRewardCategory(r.Category):
		return "unknown category", false
	}
	return "", true
}

// ListRewards returns the full catalog including inactive rewards.
func (h *AdminRewardHandler) ListRewards(c echo.Context) error {
	rewards, err := h.Rewards.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "catalog query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"rewards": rewards})
}

// CreateReward adds a reward to the catalog.
func (h *AdminRewardHandler) CreateReward(c echo.Context) error {
	var req rewardReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg, ok := req.validate(); !ok {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": msg})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	reward, err := h.Rewards.Create(c.Request().Context(), model.Reward{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Category:    req.Category,
		IsActive:    active,
		IsFeatured:  req.IsFeatured,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create reward failed"})
	}
	h.invalidate(c)
	return c.JSON(http.StatusCreated, reward)
}

// UpdateReward overwrites a reward's editable fields.  Raising quantity
// here is the restock path.  Price changes apply to future redemptions
// only; committed redemptions keep their points_spent snapshot.
func (h *AdminRewardHandler) UpdateReward(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reward id"})
	}
	var req rewardReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg, ok := req.validate(); !ok {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": msg})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	reward, err := h.Rewards.Update(c.Request().Context(), model.Reward{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Category:    req.Category,
		IsActive:    active,
		IsFeatured:  req.IsFeatured,
	})
	if err != nil {
		if errors.Is(err, repository.ErrRewardNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reward_not_found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update reward failed"})
	}
	h.invalidate(c)
	return c.JSON(http.StatusOK, reward)
}

// ShipRedemption moves a confirmed redemption into fulfilment.
func (h *AdminRewardHandler) ShipRedemption(c echo.Context) error {
	return h.transition(c, model.RedemptionConfirmed, model.RedemptionShipped)
}

// DeliverRedemption marks a shipped redemption delivered.
func (h *AdminRewardHandler) DeliverRedemption(c echo.Context) error {
	return h.transition(c, model.RedemptionShipped, model.RedemptionDelivered)
}

func (h *AdminRewardHandler) transition(c echo.Context, from, to string) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid redemption id"})
	}
	err = h.Redemptions.UpdateStatus(c.Request().Context(), id, from, to)
	switch {
	case errors.Is(err, repository.ErrRedemptionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "redemption_not_found"})
	case errors.Is(err, repository.ErrInvalidStatus):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_status"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "status update failed"})
	}
	rec, err := h.Redemptions.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "status update failed"})
	}
	return c.JSON(http.StatusOK, rec)
}

// CancelRedemption voids a confirmed redemption, restoring one unit of
// stock and refunding the member with a compensating ledger entry.
func (h *AdminRewardHandler) CancelRedemption(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid redemption id"})
	}
	rec, err := h.Redemptions.Cancel(c.Request().Context(), id)
	switch {
	case errors.Is(err, repository.ErrRedemptionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "redemption_not_found"})
	case errors.Is(err, repository.ErrInvalidStatus):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_status"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	h.invalidate(c) // stock went back up
	return c.JSON(http.StatusOK, rec)
}

func (h *AdminRewardHandler) invalidate(c echo.Context) {
	if h.Cache != nil {
		h.Cache.InvalidateCatalog(c.Request().Context())
	}
}
