package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/provia/rewards-service/internal/service"
)

// BalanceHandler serves the member-facing read side of the ledger.
// Every response is computed from the transactional store on each
// request; balances are deliberately excluded from the response cache.
type BalanceHandler struct {
	Points *service.PointsService
}

func NewBalanceHandler(p *service.PointsService) *BalanceHandler {
	return &BalanceHandler{Points: p}
}

// GetBalance returns the caller's current total.
func (h *BalanceHandler) GetBalance(c echo.Context) error {
	uid := getUserID(c)
	balance, err := h.Points.Balance(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "balance query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": uid, "balance": balance})
}

// GetCategoryBalances returns the caller's per-category nets, including
// zero rows for configured categories with no history yet.
func (h *BalanceHandler) GetCategoryBalances(c echo.Context) error {
	uid := getUserID(c)
	balances, err := h.Points.CategoryBalances(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "balance query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": uid, "categories": balances})
}

// GetHistory returns the caller's most recent ledger entries.  The
// limit query parameter is clamped by the store.
func (h *BalanceHandler) GetHistory(c echo.Context) error {
	uid := getUserID(c)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, err := h.Points.History(c.Request().Context(), uid, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "history query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": uid, "entries": entries})
}
