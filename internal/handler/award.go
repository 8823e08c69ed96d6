package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/provia/rewards-service/internal/service"
)

// AwardHandler is the administrative entry point for crediting points.
// In production the platform's other services call it when a member
// completes a qualifying action (a profile update, a posted review, an
// application); it is mounted ADMIN-only so members cannot mint points.
type AwardHandler struct {
	Points *service.PointsService
}

func NewAwardHandler(p *service.PointsService) *AwardHandler {
	return &AwardHandler{Points: p}
}

type awardReq struct {
	UserID    uint64 `json:"user_id"`
	Amount    int64  `json:"amount"`
	Category  string `json:"category"`
	Reason    string `json:"reason"`
	Reference string `json:"reference"`
}

// Award credits points to a user and returns the created ledger entry.
func (h *AwardHandler) Award(c echo.Context) error {
	var req awardReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID == 0 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "user_id required"})
	}

	entry, err := h.Points.Award(c.Request().Context(), req.UserID, req.Category, req.Amount, req.Reason, req.Reference)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "award failed"})
	}
	return c.JSON(http.StatusCreated, entry)
}
