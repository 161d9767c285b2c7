package storage

import (
	"context"

	"github.com/mrogowski01/rentacar/libs/db"
)

// Notification is one delivery attempt recorded in the notification log.
type Notification struct {
	EventType string
	Aggregate string
	Recipient string
	Subject   string
	Body      string
	Status    string
}

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (event_type, aggregate_id, recipient, subject, body, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.EventType, n.Aggregate, n.Recipient, n.Subject, n.Body, n.Status)
	return err
}
