package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FintechGT/empeno-backend/internal/auth"
	contractdomain "github.com/FintechGT/empeno-backend/internal/domain/contract"
	loandomain "github.com/FintechGT/empeno-backend/internal/domain/loan"
	"github.com/FintechGT/empeno-backend/internal/http/middleware"
)

type ContractService interface {
	Get(ctx context.Context, contractID string) (*contractdomain.Entity, error)
	GetByLoanID(ctx context.Context, loanID string) (*contractdomain.Entity, error)
	SignClient(ctx context.Context, contractID string, signatureBlob []byte, signerIP string) (*contractdomain.Entity, error)
	SignCompany(ctx context.Context, contractID string, signatureBlob []byte, signerIP string) (*contractdomain.Entity, error)
	SignCryptographically(ctx context.Context, contractID string) (*contractdomain.Entity, error)
}

type LoanGetter interface {
	Get(ctx context.Context, loanID string) (*loandomain.Entity, error)
}

type ContractHandler struct {
	contractService ContractService
	loans           LoanGetter
}

func NewContractHandler(contractService ContractService, loans LoanGetter) *ContractHandler {
	return &ContractHandler{contractService: contractService, loans: loans}
}

type signRequest struct {
	Signature string `json:"signature"`
}

func (h *ContractHandler) GetContract(c *gin.Context) {
	contractID := strings.TrimSpace(c.Param("contractId"))
	if contractID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_contract_id"})
		return
	}
	ct, err := h.contractService.Get(c.Request.Context(), contractID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondContract(c, ct)
}

// SignClient records the borrowing client's signature. Clients may only
// sign contracts on their own loans; that ownership check is this caller's
// job, not the state machine's.
func (h *ContractHandler) SignClient(c *gin.Context) {
	contractID := strings.TrimSpace(c.Param("contractId"))
	if contractID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_contract_id"})
		return
	}
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	actor := middleware.Actor(c)
	if actor.Role == auth.RoleClient {
		ct, err := h.contractService.Get(c.Request.Context(), contractID)
		if err != nil {
			respondError(c, err)
			return
		}
		l, err := h.loans.Get(c.Request.Context(), ct.LoanID)
		if err != nil {
			respondError(c, err)
			return
		}
		if l.ClientID != actor.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
	}

	ct, err := h.contractService.SignClient(c.Request.Context(), contractID, []byte(req.Signature), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	respondContract(c, ct)
}

func (h *ContractHandler) SignCompany(c *gin.Context) {
	contractID := strings.TrimSpace(c.Param("contractId"))
	if contractID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_contract_id"})
		return
	}
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	ct, err := h.contractService.SignCompany(c.Request.Context(), contractID, []byte(req.Signature), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	respondContract(c, ct)
}

func (h *ContractHandler) SignCrypto(c *gin.Context) {
	contractID := strings.TrimSpace(c.Param("contractId"))
	if contractID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_contract_id"})
		return
	}
	ct, err := h.contractService.SignCryptographically(c.Request.Context(), contractID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondContract(c, ct)
}

func respondContract(c *gin.Context, ct *contractdomain.Entity) {
	c.JSON(http.StatusOK, gin.H{
		"contract":  ct,
		"state":     ct.State(),
		"completed": ct.Completed(),
	})
}
