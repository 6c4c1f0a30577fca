package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FintechGT/empeno-backend/internal/auth"
	"github.com/FintechGT/empeno-backend/internal/config"
	"github.com/FintechGT/empeno-backend/internal/http/handlers"
	"github.com/FintechGT/empeno-backend/internal/http/middleware"
	"github.com/FintechGT/empeno-backend/internal/version"
	"github.com/FintechGT/empeno-backend/internal/ws"
)

type Dependencies struct {
	Pinger          handlers.Pinger
	LoanHandler     *handlers.LoanHandler
	ContractHandler *handlers.ContractHandler
	PaymentHandler  *handlers.PaymentHandler
	AccrualHandler  *handlers.AccrualHandler
	WSHandler       *ws.Handler
	JWTManager      *auth.JWTManager
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *gin.Engine {
	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Next()
	})

	health := handlers.NewHealthHandler(deps.Pinger)
	meta := handlers.NewMetaHandler(cfg.Env, version.Version)

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/v1/meta", meta.GetMeta)

	if deps.JWTManager != nil {
		authed := r.Group("/v1")
		authed.Use(middleware.RequireAuth(deps.JWTManager))

		if deps.AccrualHandler != nil {
			authed.POST("/accruals/estimate", deps.AccrualHandler.Estimate)
		}

		if deps.LoanHandler != nil {
			staff := authed.Group("")
			staff.Use(middleware.RequireRole(auth.RoleStaff, auth.RoleAdmin))
			staff.POST("/loans", deps.LoanHandler.CreateLoan)
			staff.GET("/loans", deps.LoanHandler.ListLoans)

			admin := authed.Group("")
			admin.Use(middleware.RequireRole(auth.RoleAdmin))
			admin.POST("/loans/:loanId/close", deps.LoanHandler.CloseLoan)

			authed.GET("/loans/:loanId", deps.LoanHandler.GetLoan)
			authed.GET("/loans/:loanId/status", deps.LoanHandler.GetLoanStatus)
			authed.GET("/loans/:loanId/accrual", deps.LoanHandler.GetLoanAccrual)
		}

		if deps.ContractHandler != nil {
			authed.GET("/contracts/:contractId", deps.ContractHandler.GetContract)

			clientSign := authed.Group("")
			clientSign.Use(middleware.RequireRole(auth.RoleClient, auth.RoleStaff, auth.RoleAdmin))
			clientSign.POST("/contracts/:contractId/sign/client", deps.ContractHandler.SignClient)

			companySign := authed.Group("")
			companySign.Use(middleware.RequireRole(auth.RoleStaff, auth.RoleAdmin))
			companySign.POST("/contracts/:contractId/sign/company", deps.ContractHandler.SignCompany)

			cryptoSign := authed.Group("")
			cryptoSign.Use(middleware.RequireRole(auth.RoleAdmin))
			cryptoSign.POST("/contracts/:contractId/sign/crypto", deps.ContractHandler.SignCrypto)
		}

		if deps.PaymentHandler != nil {
			authed.POST("/payments", deps.PaymentHandler.CreatePayment)
			authed.GET("/loans/:loanId/payments", deps.PaymentHandler.ListLoanPayments)

			resolve := authed.Group("")
			resolve.Use(middleware.RequireRole(auth.RoleStaff, auth.RoleAdmin))
			resolve.POST("/payments/:paymentId/validate", deps.PaymentHandler.ValidatePayment)
			resolve.POST("/payments/:paymentId/reject", deps.PaymentHandler.RejectPayment)
		}
	}

	if deps.WSHandler != nil {
		r.GET("/ws", deps.WSHandler.HandleWebSocket)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}
