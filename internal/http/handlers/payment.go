package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	loandomain "github.com/FintechGT/empeno-backend/internal/domain/loan"
	paymentdomain "github.com/FintechGT/empeno-backend/internal/domain/payment"
)

type PaymentService interface {
	Create(ctx context.Context, in paymentdomain.CreateInput) (*paymentdomain.Entity, error)
	ListByLoan(ctx context.Context, loanID string, limit, offset int32) ([]paymentdomain.Entity, error)
	Validate(ctx context.Context, paymentID, note string) (*paymentdomain.Entity, *loandomain.Entity, error)
	Reject(ctx context.Context, paymentID, reason string) (*paymentdomain.Entity, error)
}

type PaymentHandler struct {
	paymentService PaymentService
}

func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req struct {
		LoanID    string          `json:"loan_id"`
		Amount    decimal.Decimal `json:"amount"`
		Channel   string          `json:"channel"`
		Reference string          `json:"reference"`
		ProofURI  string          `json:"proof_uri"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if strings.TrimSpace(req.LoanID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_loan_id"})
		return
	}

	p, err := h.paymentService.Create(c.Request.Context(), paymentdomain.CreateInput{
		LoanID:    req.LoanID,
		Amount:    req.Amount,
		Channel:   req.Channel,
		Reference: req.Reference,
		ProofURI:  req.ProofURI,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PaymentHandler) ListLoanPayments(c *gin.Context) {
	loanID := strings.TrimSpace(c.Param("loanId"))
	if loanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_loan_id"})
		return
	}
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)

	items, err := h.paymentService.ListByLoan(c.Request.Context(), loanID, int32(limit), int32(offset))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ValidatePayment recognizes intake money against the loan; the response
// carries the updated payment plus the loan's new debt and derived status.
func (h *PaymentHandler) ValidatePayment(c *gin.Context) {
	paymentID := strings.TrimSpace(c.Param("paymentId"))
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_payment_id"})
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	p, l, err := h.paymentService.Validate(c.Request.Context(), paymentID, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": p, "loan": l})
}

func (h *PaymentHandler) RejectPayment(c *gin.Context) {
	paymentID := strings.TrimSpace(c.Param("paymentId"))
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_payment_id"})
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	p, err := h.paymentService.Reject(c.Request.Context(), paymentID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
