package rental

import (
	"context"
	"sync"
	"time"

	"github.com/mrogowski01/rentacar/services/car-service/internal/model"
)

// memoryStore backs the guard tests with map-based storage. Writes take a
// short artificial pause so concurrent validate-then-write sequences would
// interleave without the per-key locks.
type memoryStore struct {
	mu           sync.Mutex
	cars         map[int64]model.Car
	offers       map[int64]model.Offer
	reservations map[int64]model.Reservation
	nextID       int64
	events       []Event
	writeDelay   time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		cars:         make(map[int64]model.Car),
		offers:       make(map[int64]model.Offer),
		reservations: make(map[int64]model.Reservation),
		nextID:       1,
	}
}

func (m *memoryStore) addCar(car model.Car) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	car.ID = m.nextID
	m.nextID++
	m.cars[car.ID] = car
	return car.ID
}

func (m *memoryStore) addOffer(offer model.Offer) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	offer.ID = m.nextID
	m.nextID++
	m.offers[offer.ID] = offer
	return offer.ID
}

func (m *memoryStore) addReservation(r model.Reservation) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextID
	m.nextID++
	m.reservations[r.ID] = r
	return r.ID
}

func (m *memoryStore) GetCar(_ context.Context, id int64) (model.Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	car, ok := m.cars[id]
	if !ok {
		return model.Car{}, ErrRowNotFound
	}
	return car, nil
}

func (m *memoryStore) GetOffer(_ context.Context, id int64) (model.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	offer, ok := m.offers[id]
	if !ok {
		return model.Offer{}, ErrRowNotFound
	}
	return offer, nil
}

func (m *memoryStore) ListOffersByCar(_ context.Context, carID int64) ([]model.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Offer
	for _, o := range m.offers {
		if o.CarID == carID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memoryStore) ListOffersFrom(_ context.Context, asOf time.Time) ([]model.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Offer
	for _, o := range m.offers {
		if !o.From.Before(asOf) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateOffer(_ context.Context, o *model.Offer) (int64, error) {
	m.pause()
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.nextID
	m.nextID++
	m.offers[o.ID] = *o
	return o.ID, nil
}

func (m *memoryStore) UpdateOffer(_ context.Context, o *model.Offer) error {
	m.pause()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.offers[o.ID]; !ok {
		return ErrRowNotFound
	}
	m.offers[o.ID] = *o
	return nil
}

func (m *memoryStore) SaveOffer(ctx context.Context, o *model.Offer) error {
	return m.UpdateOffer(ctx, o)
}

func (m *memoryStore) DeleteOffer(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.offers[id]; !ok {
		return ErrRowNotFound
	}
	delete(m.offers, id)
	for rid, r := range m.reservations {
		if r.OfferID == id {
			delete(m.reservations, rid)
		}
	}
	return nil
}

func (m *memoryStore) GetReservation(_ context.Context, id int64) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return model.Reservation{}, ErrRowNotFound
	}
	return r, nil
}

func (m *memoryStore) ListReservationsByOffer(_ context.Context, offerID int64) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Reservation
	for _, r := range m.reservations {
		if r.OfferID == offerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateReservation(_ context.Context, r *model.Reservation, evt func(id int64) (Event, error)) (int64, error) {
	m.pause()
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextID
	m.nextID++
	m.reservations[r.ID] = *r
	if evt != nil {
		e, err := evt(r.ID)
		if err != nil {
			return 0, err
		}
		m.events = append(m.events, e)
	}
	return r.ID, nil
}

func (m *memoryStore) UpdateReservation(_ context.Context, r *model.Reservation, events ...Event) error {
	m.pause()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[r.ID]; !ok {
		return ErrRowNotFound
	}
	m.reservations[r.ID] = *r
	m.events = append(m.events, events...)
	return nil
}

func (m *memoryStore) DeleteReservation(_ context.Context, id int64, events ...Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[id]; !ok {
		return ErrRowNotFound
	}
	delete(m.reservations, id)
	m.events = append(m.events, events...)
	return nil
}

func (m *memoryStore) pause() {
	if m.writeDelay > 0 {
		time.Sleep(m.writeDelay)
	}
}

func (m *memoryStore) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var types []string
	for _, e := range m.events {
		types = append(types, e.EventType)
	}
	return types
}

type staticDirectory struct {
	emails map[string]string
	err    error
}

func (d *staticDirectory) UserEmail(_ context.Context, userID string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.emails[userID], nil
}
