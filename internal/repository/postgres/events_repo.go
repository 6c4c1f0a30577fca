package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FintechGT/empeno-backend/internal/ws"
)

// insertLoanEvent appends to the loan_events stream inside the caller's
// transaction, so an event exists exactly when its state change committed.
func insertLoanEvent(ctx context.Context, tx pgx.Tx, loanID, event string, payload []byte) error {
	q := `INSERT INTO loan_events (loan_id, event, payload) VALUES ($1, $2, $3::jsonb)`
	_, err := tx.Exec(ctx, q, loanID, event, payload)
	return err
}

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) ListEventsSince(ctx context.Context, lastID int64, limit int32) ([]ws.LoanEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `
SELECT id, loan_id, event, payload, recorded_at
FROM loan_events
WHERE id > $1
ORDER BY id
LIMIT $2`
	rows, err := r.pool.Query(ctx, q, lastID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ws.LoanEvent, 0)
	for rows.Next() {
		var ev ws.LoanEvent
		if err := rows.Scan(&ev.ID, &ev.LoanID, &ev.Event, &ev.Payload, &ev.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
