package rental

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mrogowski01/rentacar/services/car-service/internal/interval"
	"github.com/mrogowski01/rentacar/services/car-service/internal/model"
)

func newReservationFixture(t *testing.T) (*ReservationService, *memoryStore, int64) {
	t.Helper()
	store := newMemoryStore()
	carID := store.addCar(model.Car{OwnerID: "owner-1", Brand: "Toyota", Model: "Corolla"})
	offerID := store.addOffer(model.Offer{CarID: carID, OwnerID: "owner-1", Price: 100, From: day("2025-01-01"), To: day("2025-01-31")})
	dir := &staticDirectory{emails: map[string]string{"owner-1": "owner@example.com"}}
	return NewReservationService(store, store, store, dir, testLogger()), store, offerID
}

func TestCreateReservation(t *testing.T) {
	svc, store, offerID := newReservationFixture(t)
	renter := Identity{ID: "renter-1", Email: "renter@example.com", Role: "user"}

	id, err := svc.Create(context.Background(), renter, offerID, iv("2025-01-10", "2025-01-15"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	saved, err := store.GetReservation(context.Background(), id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if saved.RenterID != renter.ID || saved.OfferID != offerID {
		t.Fatalf("reservation persisted wrong: %+v", saved)
	}

	types := store.eventTypes()
	if len(types) != 1 || types[0] != TopicReservationCreated {
		t.Fatalf("expected one %s event, got %v", TopicReservationCreated, types)
	}
}

func TestCreateReservationValidation(t *testing.T) {
	svc, store, offerID := newReservationFixture(t)
	renter := Identity{ID: "renter-1", Role: "user"}
	store.addReservation(model.Reservation{OfferID: offerID, RenterID: "renter-2", From: day("2025-01-10"), To: day("2025-01-20")})

	cases := []struct {
		name       string
		ident      Identity
		offerID    int64
		iv         interval.Interval
		want       Kind
		wantReason string
	}{
		{"unknown offer", renter, offerID + 99, iv("2025-01-02", "2025-01-03"), KindNotFound, ""},
		{"owner reserving own offer", Identity{ID: "owner-1", Role: "user"}, offerID, iv("2025-01-02", "2025-01-03"), KindSelfReservation, ""},
		{"inverted range", renter, offerID, iv("2025-01-03", "2025-01-02"), KindInvalidRange, ""},
		{"inverted range outside bounds", renter, offerID, iv("2025-03-03", "2025-03-02"), KindInvalidRange, ""},
		{"spans both offer bounds", renter, offerID, iv("2024-12-20", "2025-02-10"), KindOutOfRange, ReasonSpanning},
		{"starts before offer", renter, offerID, iv("2024-12-20", "2025-01-05"), KindOutOfRange, ReasonStartsBeforeAvailable},
		{"ends after offer", renter, offerID, iv("2025-01-25", "2025-02-10"), KindOutOfRange, ReasonEndsAfterAvailable},
		{"overlaps sibling", renter, offerID, iv("2025-01-05", "2025-01-15"), KindOverlappingReservation, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.ident, tc.offerID, tc.iv)
			if KindOf(err) != tc.want {
				t.Fatalf("got error %v, want kind %d", err, tc.want)
			}
			if tc.wantReason != "" {
				var re *Error
				if !errors.As(err, &re) {
					t.Fatalf("expected a classified error, got %v", err)
				}
				if re.Reason != tc.wantReason {
					t.Fatalf("got reason %q, want %q", re.Reason, tc.wantReason)
				}
			}
		})
	}
}

func TestCreateReservationSurvivesDirectoryFailure(t *testing.T) {
	store := newMemoryStore()
	carID := store.addCar(model.Car{OwnerID: "owner-1"})
	offerID := store.addOffer(model.Offer{CarID: carID, OwnerID: "owner-1", Price: 100, From: day("2025-01-01"), To: day("2025-01-31")})
	dir := &staticDirectory{err: errors.New("directory down")}
	svc := NewReservationService(store, store, store, dir, testLogger())

	id, err := svc.Create(context.Background(), Identity{ID: "renter-1", Role: "user"}, offerID, iv("2025-01-10", "2025-01-15"))
	if err != nil {
		t.Fatalf("a directory outage must not abort the write: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a reservation id")
	}
	if types := store.eventTypes(); len(types) != 1 {
		t.Fatalf("event should still be emitted, got %v", types)
	}
}

func TestUpdateReservation(t *testing.T) {
	svc, store, offerID := newReservationFixture(t)
	renter := Identity{ID: "renter-1", Role: "user"}
	resID := store.addReservation(model.Reservation{OfferID: offerID, RenterID: "renter-1", From: day("2025-01-10"), To: day("2025-01-15")})
	store.addReservation(model.Reservation{OfferID: offerID, RenterID: "renter-2", From: day("2025-01-20"), To: day("2025-01-25")})

	// Moving within the offer, overlapping only itself, succeeds.
	if err := svc.Update(context.Background(), renter, resID, offerID, iv("2025-01-12", "2025-01-18")); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	moved, _ := store.GetReservation(context.Background(), resID)
	if !moved.From.Equal(day("2025-01-12")) || !moved.To.Equal(day("2025-01-18")) {
		t.Fatalf("interval not persisted: %+v", moved)
	}
	if types := store.eventTypes(); len(types) != 1 || types[0] != TopicReservationUpdated {
		t.Fatalf("expected one %s event, got %v", TopicReservationUpdated, types)
	}

	cases := []struct {
		name    string
		ident   Identity
		id      int64
		offerID int64
		iv      interval.Interval
		want    Kind
	}{
		{"unknown reservation", renter, resID + 99, offerID, iv("2025-01-02", "2025-01-03"), KindNotFound},
		{"not renter not admin", Identity{ID: "intruder", Role: "user"}, resID, offerID, iv("2025-01-02", "2025-01-03"), KindNotOwner},
		{"cross offer reassignment", renter, resID, offerID + 1, iv("2025-01-02", "2025-01-03"), KindOfferMismatch},
		{"inverted range", renter, resID, offerID, iv("2025-01-03", "2025-01-02"), KindInvalidRange},
		{"outside offer bounds", renter, resID, offerID, iv("2025-01-25", "2025-02-05"), KindOutOfRange},
		{"collides with sibling", renter, resID, offerID, iv("2025-01-18", "2025-01-22"), KindOverlappingReservation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Update(context.Background(), tc.ident, tc.id, tc.offerID, tc.iv)
			if KindOf(err) != tc.want {
				t.Fatalf("got error %v, want kind %d", err, tc.want)
			}
		})
	}

	admin := Identity{ID: "boss", Role: "admin"}
	if err := svc.Update(context.Background(), admin, resID, offerID, iv("2025-01-02", "2025-01-05")); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
}

func TestDeleteReservation(t *testing.T) {
	svc, store, offerID := newReservationFixture(t)
	renter := Identity{ID: "renter-1", Role: "user"}
	resID := store.addReservation(model.Reservation{OfferID: offerID, RenterID: "renter-1", From: day("2025-01-10"), To: day("2025-01-15")})

	if err := svc.Delete(context.Background(), Identity{ID: "intruder", Role: "user"}, resID); KindOf(err) != KindNotOwner {
		t.Fatalf("expected NotOwner, got %v", err)
	}
	if err := svc.Delete(context.Background(), renter, resID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.GetReservation(context.Background(), resID); err == nil {
		t.Fatal("reservation should be gone")
	}
	if types := store.eventTypes(); len(types) != 1 || types[0] != TopicReservationCancelled {
		t.Fatalf("expected one %s event, got %v", TopicReservationCancelled, types)
	}
}

func TestConcurrentOverlappingCreates(t *testing.T) {
	svc, store, offerID := newReservationFixture(t)
	store.writeDelay = 5 * time.Millisecond

	const n = 16
	var wg sync.WaitGroup
	successes := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ident := Identity{ID: "renter-" + string(rune('a'+i)), Role: "user"}
			if id, err := svc.Create(context.Background(), ident, offerID, iv("2025-01-05", "2025-01-15")); err == nil {
				successes <- id
			}
		}(i)
	}
	wg.Wait()
	close(successes)

	var won int
	for range successes {
		won++
	}
	if won != 1 {
		t.Fatalf("exactly one of %d mutually overlapping creates may succeed, got %d", n, won)
	}
	left, _ := store.ListReservationsByOffer(context.Background(), offerID)
	if len(left) != 1 {
		t.Fatalf("store should hold a single reservation, has %d", len(left))
	}
}
