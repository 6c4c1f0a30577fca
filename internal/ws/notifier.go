package ws

import (
	"context"
	"encoding/json"
	"time"
)

// LoanEvent is a row from the loan_events stream: every state transition
// (signatures, activation, validated payments, closure) appends one.
type LoanEvent struct {
	ID         int64
	LoanID     string
	Event      string
	Payload    []byte
	RecordedAt time.Time
}

type EventRepository interface {
	ListEventsSince(ctx context.Context, lastID int64, limit int32) ([]LoanEvent, error)
}

// Notifier tails the loan_events stream and fans each event out to the
// dashboard sessions watching that loan.
type Notifier struct {
	repo         EventRepository
	hub          *Hub
	pollInterval time.Duration
	lastID       int64
}

func NewNotifier(repo EventRepository, hub *Hub, pollInterval time.Duration) *Notifier {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Notifier{repo: repo, hub: hub, pollInterval: pollInterval}
}

func (n *Notifier) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := n.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (n *Notifier) tick(ctx context.Context) error {
	events, err := n.repo.ListEventsSince(ctx, n.lastID, 100)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.ID > n.lastID {
			n.lastID = ev.ID
		}
		payload, _ := json.Marshal(map[string]any{
			"event": ev.Event,
			"data": map[string]any{
				"loan_id":     ev.LoanID,
				"detail":      json.RawMessage(ev.Payload),
				"recorded_at": ev.RecordedAt.UTC().Format(time.RFC3339),
			},
		})
		n.hub.Publish("loan:events:"+ev.LoanID, payload)
	}
	return nil
}
