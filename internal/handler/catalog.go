package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/provia/rewards-service/internal/model"
	"github.com/provia/rewards-service/internal/repository"
)

// CatalogHandler serves the public reward catalog.  These routes sit
// behind the response cache; they expose only active rewards and carry
// no per-user data.
type CatalogHandler struct {
	Rewards *repository.RewardRepo
}

func NewCatalogHandler(r *repository.RewardRepo) *CatalogHandler {
	return &CatalogHandler{Rewards: r}
}

// ListRewards returns active rewards, optionally filtered by category.
func (h *CatalogHandler) ListRewards(c echo.Context) error {
	category := strings.ToLower(strings.TrimSpace(c.QueryParam("category")))
	if category != "" && !model.ValidRewardCategory(category) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "unknown category"})
	}
	rewards, err := h.Rewards.ListActive(c.Request().Context(), category)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "catalog query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"rewards": rewards})
}

// GetReward returns one active reward.  Inactive rewards are hidden
// from the public catalog even when the id is known.
func (h *CatalogHandler) GetReward(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reward id"})
	}
	reward, err := h.Rewards.GetByID(c.Request().Context(), id)
	if err == repository.ErrRewardNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reward_not_found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "catalog query failed"})
	}
	if !reward.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reward_not_found"})
	}
	return c.JSON(http.StatusOK, reward)
}
