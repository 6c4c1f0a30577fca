package postgres

import (
	contractdomain "github.com/FintechGT/empeno-backend/internal/domain/contract"
	loandomain "github.com/FintechGT/empeno-backend/internal/domain/loan"
	paymentdomain "github.com/FintechGT/empeno-backend/internal/domain/payment"
	"github.com/FintechGT/empeno-backend/internal/jobs"
	"github.com/FintechGT/empeno-backend/internal/ws"
)

var (
	_ loandomain.Repository     = (*LoanRepository)(nil)
	_ contractdomain.Repository = (*ContractRepository)(nil)
	_ paymentdomain.Repository  = (*PaymentRepository)(nil)
	_ jobs.OutboxRepository     = (*OutboxRepository)(nil)
	_ ws.EventRepository        = (*EventRepository)(nil)

	_ loandomain.ContractRepository    = (*ContractRepository)(nil)
	_ paymentdomain.ContractRepository = (*ContractRepository)(nil)
	_ loandomain.OutboxRepository      = (*OutboxRepository)(nil)
)
