package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/provia/rewards-service/internal/repository"
	"github.com/provia/rewards-service/internal/service"
)

// RedemptionHandler exposes the redemption workflow to members.
type RedemptionHandler struct {
	Redemptions *service.RedemptionService
}

func NewRedemptionHandler(s *service.RedemptionService) *RedemptionHandler {
	return &RedemptionHandler{Redemptions: s}
}

// Redeem spends the caller's points on the reward in the path.  The
// service commits atomically; every failure mode maps to a distinct
// status and error code so clients can react precisely:
//
//	402 insufficient_points  (includes the exact deficit)
//	404 reward_not_found     (missing or inactive)
//	409 out_of_stock
//	409 already_redeemed     (also what a safe retry of a success sees)
//	409 conflict             (transient; retry the request)
func (h *RedemptionHandler) Redeem(c echo.Context) error {
	rewardID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || rewardID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reward id"})
	}
	uid := getUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rec, err := h.Redemptions.Redeem(c.Request().Context(), uid, rewardID)
	if err != nil {
		var ipe *service.InsufficientPointsError
		switch {
		case errors.As(err, &ipe):
			return c.JSON(http.StatusPaymentRequired, echo.Map{
				"error":   "insufficient_points",
				"balance": ipe.Balance,
				"price":   ipe.Price,
				"deficit": ipe.Deficit(),
			})
		case errors.Is(err, repository.ErrRewardNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reward_not_found"})
		case errors.Is(err, repository.ErrOutOfStock):
			return c.JSON(http.StatusConflict, echo.Map{"error": "out_of_stock"})
		case errors.Is(err, repository.ErrAlreadyRedeemed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "already_redeemed"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "message": "please retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redeem failed"})
	}
	return c.JSON(http.StatusCreated, rec)
}

// ListMine returns the caller's redemption history, newest first.
func (h *RedemptionHandler) ListMine(c echo.Context) error {
	uid := getUserID(c)
	out, err := h.Redemptions.ListRedemptions(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redemptions query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"redemptions": out})
}
