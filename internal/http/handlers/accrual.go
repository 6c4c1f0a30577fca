package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/FintechGT/empeno-backend/internal/domain/accrual"
)

type AccrualHandler struct{}

func NewAccrualHandler() *AccrualHandler {
	return &AccrualHandler{}
}

// Estimate is the raw dashboard estimator: it prices arbitrary terms before
// any loan exists.
func (h *AccrualHandler) Estimate(c *gin.Context) {
	var req struct {
		Principal decimal.Decimal `json:"principal"`
		StartDate time.Time       `json:"start_date"`
		DueDate   time.Time       `json:"due_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if req.Principal.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_principal"})
		return
	}

	est, err := accrual.Compute(req.Principal, req.StartDate, req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}
