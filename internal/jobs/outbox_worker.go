package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const refreshLoanAccrualTopic = "refresh_loan_accrual"

type OutboxJob struct {
	ID          int64
	Topic       string
	Payload     []byte
	Status      string
	Attempts    int32
	LastError   string
	AvailableAt time.Time
}

type OutboxRepository interface {
	ClaimPending(ctx context.Context, limit int32) ([]OutboxJob, error)
	MarkDone(ctx context.Context, jobID int64) error
	MarkRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, jobID int64, lastError string) error
}

type LoanService interface {
	Recalculate(ctx context.Context, loanID string) error
}

// Worker drains accrual refresh jobs: after a payment is validated or a
// loan activated, the loan's cached interest, mora, debt and display status
// are recomputed out of the request path.
type Worker struct {
	outboxRepo   OutboxRepository
	loans        LoanService
	maxAttempts  int32
	now          func() time.Time
	retryBackoff func(attempt int32) time.Duration
}

func NewWorker(outboxRepo OutboxRepository, loans LoanService) *Worker {
	return &Worker{
		outboxRepo:  outboxRepo,
		loans:       loans,
		maxAttempts: 5,
		now:         func() time.Time { return time.Now().UTC() },
		retryBackoff: func(attempt int32) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			return time.Duration(attempt*15) * time.Second
		},
	}
}

func (w *Worker) RunOnce(ctx context.Context, batchSize int32) error {
	claimed, err := w.outboxRepo.ClaimPending(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, job := range claimed {
		if err := w.processJob(ctx, job); err != nil {
			return err
		}
	}

	return nil
}

// Run polls until the context is canceled.
func (w *Worker) Run(ctx context.Context, batchSize int32, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx, batchSize); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job OutboxJob) error {
	switch job.Topic {
	case refreshLoanAccrualTopic:
		return w.processRefreshAccrual(ctx, job)
	default:
		if job.Attempts >= w.maxAttempts {
			return w.outboxRepo.MarkFailed(ctx, job.ID, "unsupported_topic")
		}
		next := w.now().Add(w.retryBackoff(job.Attempts))
		return w.outboxRepo.MarkRetry(ctx, job.ID, next, "unsupported_topic")
	}
}

type refreshAccrualPayload struct {
	LoanID string `json:"loan_id"`
}

func (w *Worker) processRefreshAccrual(ctx context.Context, job OutboxJob) error {
	var payload refreshAccrualPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return w.handleJobError(ctx, job, fmt.Errorf("invalid_payload"))
	}
	if payload.LoanID == "" {
		return w.handleJobError(ctx, job, errors.New("missing_loan_id"))
	}

	if err := w.loans.Recalculate(ctx, payload.LoanID); err != nil {
		return w.handleJobError(ctx, job, err)
	}

	return w.outboxRepo.MarkDone(ctx, job.ID)
}

func (w *Worker) handleJobError(ctx context.Context, job OutboxJob, err error) error {
	msg := err.Error()
	if job.Attempts >= w.maxAttempts {
		return w.outboxRepo.MarkFailed(ctx, job.ID, msg)
	}
	next := w.now().Add(w.retryBackoff(job.Attempts))
	return w.outboxRepo.MarkRetry(ctx, job.ID, next, msg)
}
