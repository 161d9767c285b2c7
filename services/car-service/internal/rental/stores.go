package rental

import (
	"context"
	"errors"
	"time"

	"github.com/mrogowski01/rentacar/libs/auth"
	"github.com/mrogowski01/rentacar/services/car-service/internal/model"
)

// Identity is the authenticated caller, as resolved by the gateway.
type Identity struct {
	ID    string
	Email string
	Role  string
}

func (id Identity) Admin() bool { return id.Role == auth.RoleAdmin }

// Event is a domain event the store writes to its outbox in the same
// transaction as the row change.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type CarStore interface {
	GetCar(ctx context.Context, id int64) (model.Car, error)
}

type OfferStore interface {
	GetOffer(ctx context.Context, id int64) (model.Offer, error)
	ListOffersByCar(ctx context.Context, carID int64) ([]model.Offer, error)
	ListOffersFrom(ctx context.Context, asOf time.Time) ([]model.Offer, error)
	CreateOffer(ctx context.Context, o *model.Offer) (int64, error)
	UpdateOffer(ctx context.Context, o *model.Offer) error
	// SaveOffer rewrites the offer row unchanged, bumping its updated_at.
	SaveOffer(ctx context.Context, o *model.Offer) error
	// DeleteOffer removes the offer and all of its reservations.
	DeleteOffer(ctx context.Context, id int64) error
}

type ReservationStore interface {
	GetReservation(ctx context.Context, id int64) (model.Reservation, error)
	ListReservationsByOffer(ctx context.Context, offerID int64) ([]model.Reservation, error)
	// CreateReservation persists r and, when evt is non-nil, writes the event
	// built from the assigned id atomically with the insert.
	CreateReservation(ctx context.Context, r *model.Reservation, evt func(id int64) (Event, error)) (int64, error)
	UpdateReservation(ctx context.Context, r *model.Reservation, events ...Event) error
	DeleteReservation(ctx context.Context, id int64, events ...Event) error
}

// ErrRowNotFound is returned by stores when a row does not exist. The guards
// translate it into a NotFound failure naming the missing entity.
var ErrRowNotFound = errors.New("row not found")

// ErrWriteConflict is returned by stores when a database constraint rejects
// a write that passed validation, closing the cross-process race window.
var ErrWriteConflict = errors.New("write conflict")
