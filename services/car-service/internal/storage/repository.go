package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mrogowski01/rentacar/libs/db"
	"github.com/mrogowski01/rentacar/services/car-service/internal/model"
	"github.com/mrogowski01/rentacar/services/car-service/internal/outbox"
	"github.com/mrogowski01/rentacar/services/car-service/internal/rental"
)

// Repository implements the rental store interfaces on Postgres. Overlap
// validation happens in the guards; exclusion constraints on offers and
// reservations are the cross-process backstop, surfaced as
// rental.ErrWriteConflict.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return rental.ErrRowNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505") {
		return rental.ErrWriteConflict
	}
	return err
}

const carColumns = `id, owner_id, brand, model, prod_year, engine, fuel_type, color, gear_type, created_at`

func scanCar(row pgx.Row) (model.Car, error) {
	var c model.Car
	err := row.Scan(&c.ID, &c.OwnerID, &c.Brand, &c.Model, &c.ProdYear, &c.Engine, &c.FuelType, &c.Color, &c.GearType, &c.CreatedAt)
	if err != nil {
		return model.Car{}, mapError(err)
	}
	return c, nil
}

func (r *Repository) GetCar(ctx context.Context, id int64) (model.Car, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+carColumns+` FROM cars WHERE id = $1`, id)
	return scanCar(row)
}

func (r *Repository) ListCars(ctx context.Context) ([]model.Car, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+carColumns+` FROM cars ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cars []model.Car
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

func (r *Repository) ListCarsByOwner(ctx context.Context, ownerID string) ([]model.Car, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+carColumns+` FROM cars WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cars []model.Car
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

func (r *Repository) CreateCar(ctx context.Context, c *model.Car) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cars (owner_id, brand, model, prod_year, engine, fuel_type, color, gear_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, c.OwnerID, c.Brand, c.Model, c.ProdYear, c.Engine, c.FuelType, c.Color, c.GearType).Scan(&id)
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

func (r *Repository) UpdateCar(ctx context.Context, c *model.Car) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cars
		SET brand = $2, model = $3, prod_year = $4, engine = $5, fuel_type = $6, color = $7, gear_type = $8, updated_at = now()
		WHERE id = $1
	`, c.ID, c.Brand, c.Model, c.ProdYear, c.Engine, c.FuelType, c.Color, c.GearType)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return rental.ErrRowNotFound
	}
	return nil
}

// DeleteCar removes the car with its offers and their reservations in one
// transaction.
func (r *Repository) DeleteCar(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM reservations
		WHERE offer_id IN (SELECT id FROM offers WHERE car_id = $1)
	`, id); err != nil {
		return mapError(err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM offers WHERE car_id = $1`, id); err != nil {
		return mapError(err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM cars WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return rental.ErrRowNotFound
	}
	return tx.Commit(ctx)
}

const offerColumns = `o.id, o.car_id, o.owner_id, o.price, o.date_from, o.date_to, o.created_at`

func scanOffer(row pgx.Row) (model.Offer, error) {
	var o model.Offer
	err := row.Scan(&o.ID, &o.CarID, &o.OwnerID, &o.Price, &o.From, &o.To, &o.CreatedAt)
	if err != nil {
		return model.Offer{}, mapError(err)
	}
	return o, nil
}

func scanOfferWithCar(row pgx.Row) (model.Offer, error) {
	var o model.Offer
	var c model.Car
	err := row.Scan(
		&o.ID, &o.CarID, &o.OwnerID, &o.Price, &o.From, &o.To, &o.CreatedAt,
		&c.ID, &c.OwnerID, &c.Brand, &c.Model, &c.ProdYear, &c.Engine, &c.FuelType, &c.Color, &c.GearType, &c.CreatedAt,
	)
	if err != nil {
		return model.Offer{}, mapError(err)
	}
	o.Car = &c
	return o, nil
}

const offerWithCarQuery = `
	SELECT ` + offerColumns + `,
		c.id, c.owner_id, c.brand, c.model, c.prod_year, c.engine, c.fuel_type, c.color, c.gear_type, c.created_at
	FROM offers o
	JOIN cars c ON c.id = o.car_id
`

func (r *Repository) GetOffer(ctx context.Context, id int64) (model.Offer, error) {
	row := r.pool.QueryRow(ctx, offerWithCarQuery+` WHERE o.id = $1`, id)
	return scanOfferWithCar(row)
}

func (r *Repository) listOffersWithCar(ctx context.Context, where string, args ...any) ([]model.Offer, error) {
	rows, err := r.pool.Query(ctx, offerWithCarQuery+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		o, err := scanOfferWithCar(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func (r *Repository) ListOffers(ctx context.Context) ([]model.Offer, error) {
	return r.listOffersWithCar(ctx, ` ORDER BY o.id`)
}

func (r *Repository) ListOffersByCar(ctx context.Context, carID int64) ([]model.Offer, error) {
	return r.listOffersWithCar(ctx, ` WHERE o.car_id = $1 ORDER BY o.date_from`, carID)
}

func (r *Repository) ListOffersByOwner(ctx context.Context, ownerID string) ([]model.Offer, error) {
	return r.listOffersWithCar(ctx, ` WHERE o.owner_id = $1 ORDER BY o.id`, ownerID)
}

func (r *Repository) ListOffersFrom(ctx context.Context, asOf time.Time) ([]model.Offer, error) {
	return r.listOffersWithCar(ctx, ` WHERE o.date_from >= $1 ORDER BY o.id`, asOf)
}

func (r *Repository) CreateOffer(ctx context.Context, o *model.Offer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO offers (car_id, owner_id, price, date_from, date_to)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, o.CarID, o.OwnerID, o.Price, o.From, o.To).Scan(&id)
	if err != nil {
		return 0, mapError(err)
	}
	o.ID = id
	return id, nil
}

func (r *Repository) UpdateOffer(ctx context.Context, o *model.Offer) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE offers
		SET price = $2, date_from = $3, date_to = $4, updated_at = now()
		WHERE id = $1
	`, o.ID, o.Price, o.From, o.To)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return rental.ErrRowNotFound
	}
	return nil
}

// SaveOffer rewrites the row without changing its fields. The update hook
// keeps audit timestamps honest when a child reservation is removed.
func (r *Repository) SaveOffer(ctx context.Context, o *model.Offer) error {
	return r.UpdateOffer(ctx, o)
}

func (r *Repository) DeleteOffer(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM reservations WHERE offer_id = $1`, id); err != nil {
		return mapError(err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return rental.ErrRowNotFound
	}
	return tx.Commit(ctx)
}

const reservationColumns = `id, offer_id, renter_id, date_from, date_to, created_at`

func scanReservation(row pgx.Row) (model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(&res.ID, &res.OfferID, &res.RenterID, &res.From, &res.To, &res.CreatedAt)
	if err != nil {
		return model.Reservation{}, mapError(err)
	}
	return res, nil
}

func (r *Repository) GetReservation(ctx context.Context, id int64) (model.Reservation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	return scanReservation(row)
}

func (r *Repository) ListReservationsByOffer(ctx context.Context, offerID int64) ([]model.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE offer_id = $1
		ORDER BY date_from
	`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *Repository) ListReservationsByRenter(ctx context.Context, renterID string) ([]model.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE renter_id = $1
		ORDER BY date_from
	`, renterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *Repository) ListReservations(ctx context.Context) ([]model.Reservation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reservationColumns+` FROM reservations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *Repository) CreateReservation(ctx context.Context, res *model.Reservation, evt func(id int64) (rental.Event, error)) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO reservations (offer_id, renter_id, date_from, date_to)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, res.OfferID, res.RenterID, res.From, res.To).Scan(&id)
	if err != nil {
		return 0, mapError(err)
	}
	res.ID = id

	if evt != nil {
		e, err := evt(id)
		if err != nil {
			return 0, err
		}
		if err := r.insertEvent(ctx, tx, e); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

func (r *Repository) UpdateReservation(ctx context.Context, res *model.Reservation, events ...rental.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE reservations
		SET date_from = $2, date_to = $3, updated_at = now()
		WHERE id = $1
	`, res.ID, res.From, res.To)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return rental.ErrRowNotFound
	}
	for _, e := range events {
		if err := r.insertEvent(ctx, tx, e); err != nil {
			return err
		}
	}
	return mapError(tx.Commit(ctx))
}

func (r *Repository) DeleteReservation(ctx context.Context, id int64, events ...rental.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return rental.ErrRowNotFound
	}
	for _, e := range events {
		if err := r.insertEvent(ctx, tx, e); err != nil {
			return err
		}
	}
	return mapError(tx.Commit(ctx))
}

func (r *Repository) insertEvent(ctx context.Context, tx pgx.Tx, e rental.Event) error {
	if r.outbox == nil {
		return fmt.Errorf("outbox repository not configured")
	}
	return r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		EventType:     e.EventType,
		Payload:       e.Payload,
	})
}
