package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FintechGT/empeno-backend/internal/auth"
	"github.com/FintechGT/empeno-backend/internal/domain/accrual"
	contractdomain "github.com/FintechGT/empeno-backend/internal/domain/contract"
	loandomain "github.com/FintechGT/empeno-backend/internal/domain/loan"
	"github.com/FintechGT/empeno-backend/internal/http/middleware"
)

type LoanService interface {
	Create(ctx context.Context, in loandomain.CreateRequest) (*loandomain.Entity, *contractdomain.Entity, accrual.Estimate, error)
	Get(ctx context.Context, loanID string) (*loandomain.Entity, error)
	List(ctx context.Context, f loandomain.ListFilter) ([]loandomain.Entity, error)
	EstimateCurrent(ctx context.Context, loanID string) (accrual.Estimate, error)
	Close(ctx context.Context, loanID string) (*loandomain.Entity, error)
}

type LoanHandler struct {
	loanService LoanService
}

func NewLoanHandler(loanService LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

func (h *LoanHandler) CreateLoan(c *gin.Context) {
	var req loandomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	l, ct, est, err := h.loanService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"loan": l, "contract": ct, "estimate": est})
}

func (h *LoanHandler) GetLoan(c *gin.Context) {
	l, ok := h.loadOwnedLoan(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *LoanHandler) GetLoanStatus(c *gin.Context) {
	l, ok := h.loadOwnedLoan(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan_id": l.ID, "status": l.Status})
}

func (h *LoanHandler) GetLoanAccrual(c *gin.Context) {
	l, ok := h.loadOwnedLoan(c)
	if !ok {
		return
	}
	est, err := h.loanService.EstimateCurrent(c.Request.Context(), l.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

func (h *LoanHandler) ListLoans(c *gin.Context) {
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)
	items, err := h.loanService.List(c.Request.Context(), loandomain.ListFilter{
		ClientID: strings.TrimSpace(c.Query("client_id")),
		Status:   strings.TrimSpace(c.Query("status")),
		Limit:    int32(limit),
		Offset:   int32(offset),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *LoanHandler) CloseLoan(c *gin.Context) {
	loanID := strings.TrimSpace(c.Param("loanId"))
	if loanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_loan_id"})
		return
	}
	l, err := h.loanService.Close(c.Request.Context(), loanID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// loadOwnedLoan fetches the loan and enforces that clients only read their
// own loans. Staff and admins read any.
func (h *LoanHandler) loadOwnedLoan(c *gin.Context) (*loandomain.Entity, bool) {
	loanID := strings.TrimSpace(c.Param("loanId"))
	if loanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_loan_id"})
		return nil, false
	}
	l, err := h.loanService.Get(c.Request.Context(), loanID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	actor := middleware.Actor(c)
	if actor.Role == auth.RoleClient && l.ClientID != actor.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return l, true
}
