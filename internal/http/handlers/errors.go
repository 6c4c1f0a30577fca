package handlers

import (
	"errors"
	"net/http"

	contractdomain "github.com/FintechGT/empeno-backend/internal/domain/contract"
	loandomain "github.com/FintechGT/empeno-backend/internal/domain/loan"
	paymentdomain "github.com/FintechGT/empeno-backend/internal/domain/payment"

	"github.com/FintechGT/empeno-backend/internal/domain/accrual"
	"github.com/gin-gonic/gin"
)

// respondError maps the domain error taxonomy onto HTTP statuses. Domain
// errors are final and never worth retrying; everything else is reported as
// a store failure the caller may retry.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, accrual.ErrInvalidDateRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date_range"})
	case errors.Is(err, loandomain.ErrInvalidPrincipal):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_principal"})
	case errors.Is(err, paymentdomain.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_amount"})
	case errors.Is(err, contractdomain.ErrMissingSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_signature_blob"})
	case errors.Is(err, paymentdomain.ErrAlreadyFinalized):
		c.JSON(http.StatusConflict, gin.H{"error": "already_finalized"})
	case errors.Is(err, contractdomain.ErrAlreadySigned):
		c.JSON(http.StatusConflict, gin.H{"error": "already_signed"})
	case errors.Is(err, contractdomain.ErrOutOfOrderSignature):
		c.JSON(http.StatusConflict, gin.H{"error": "out_of_order_signature"})
	case errors.Is(err, contractdomain.ErrCryptoUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "crypto_unavailable"})
	case errors.Is(err, loandomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "loan_not_found"})
	case errors.Is(err, contractdomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "contract_not_found"})
	case errors.Is(err, paymentdomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "payment_not_found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
