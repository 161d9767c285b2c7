package rental

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mrogowski01/rentacar/services/car-service/internal/interval"
	"github.com/mrogowski01/rentacar/services/car-service/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func iv(from, to string) interval.Interval {
	return interval.Interval{From: day(from), To: day(to)}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newOfferFixture(t *testing.T) (*OfferService, *memoryStore, int64) {
	t.Helper()
	store := newMemoryStore()
	carID := store.addCar(model.Car{OwnerID: "owner-1", Brand: "Toyota", Model: "Corolla"})
	return NewOfferService(store, store, store, testLogger()), store, carID
}

func TestCreateOffer(t *testing.T) {
	svc, _, carID := newOfferFixture(t)
	owner := Identity{ID: "owner-1", Role: "user"}

	id, err := svc.Create(context.Background(), owner, carID, 100, iv("2025-06-01", "2025-06-30"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero offer id")
	}
}

func TestCreateOfferValidation(t *testing.T) {
	svc, store, carID := newOfferFixture(t)
	owner := Identity{ID: "owner-1", Role: "user"}
	store.addOffer(model.Offer{CarID: carID, OwnerID: "owner-1", Price: 100, From: day("2025-06-01"), To: day("2025-06-10")})

	cases := []struct {
		name  string
		ident Identity
		carID int64
		iv    interval.Interval
		want  Kind
	}{
		{"inverted range", owner, carID, iv("2025-07-10", "2025-07-01"), KindInvalidRange},
		{"unknown car", owner, carID + 99, iv("2025-07-01", "2025-07-10"), KindNotFound},
		{"not the owner", Identity{ID: "someone-else", Role: "user"}, carID, iv("2025-07-01", "2025-07-10"), KindNotOwner},
		{"overlapping window", owner, carID, iv("2025-06-05", "2025-06-20"), KindOverlappingOffer},
		{"adjacent by one day still overlaps", owner, carID, iv("2025-06-10", "2025-06-20"), KindOverlappingOffer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.ident, tc.carID, 100, tc.iv)
			if KindOf(err) != tc.want {
				t.Fatalf("got error %v (kind %d), want kind %d", err, KindOf(err), tc.want)
			}
		})
	}
}

func TestUpdateOffer(t *testing.T) {
	svc, store, carID := newOfferFixture(t)
	owner := Identity{ID: "owner-1", Role: "user"}
	offerID := store.addOffer(model.Offer{CarID: carID, OwnerID: "owner-1", Price: 100, From: day("2025-06-01"), To: day("2025-06-10")})
	otherID := store.addOffer(model.Offer{CarID: carID, OwnerID: "owner-1", Price: 100, From: day("2025-07-01"), To: day("2025-07-10")})

	// Shrinking within its own window is fine: the offer itself is excluded
	// from the overlap check.
	if err := svc.Update(context.Background(), owner, offerID, carID, 120, iv("2025-06-02", "2025-06-09")); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	updated, err := store.GetOffer(context.Background(), offerID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if updated.Price != 120 || !updated.From.Equal(day("2025-06-02")) || !updated.To.Equal(day("2025-06-09")) {
		t.Fatalf("offer not persisted as requested: %+v", updated)
	}

	cases := []struct {
		name  string
		ident Identity
		id    int64
		carID int64
		iv    interval.Interval
		want  Kind
	}{
		{"unknown offer", owner, offerID + 99, carID, iv("2025-06-02", "2025-06-09"), KindNotFound},
		{"car reassignment", owner, offerID, carID + 1, iv("2025-06-02", "2025-06-09"), KindResourceMismatch},
		{"not owner not admin", Identity{ID: "intruder", Role: "user"}, offerID, carID, iv("2025-06-02", "2025-06-09"), KindNotOwner},
		{"inverted range", owner, offerID, carID, iv("2025-06-09", "2025-06-02"), KindInvalidRange},
		{"collides with sibling", owner, offerID, carID, iv("2025-06-02", "2025-07-05"), KindOverlappingOffer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Update(context.Background(), tc.ident, tc.id, tc.carID, 120, tc.iv)
			if KindOf(err) != tc.want {
				t.Fatalf("got error %v, want kind %d", err, tc.want)
			}
		})
	}

	// Admins may edit offers they do not own.
	admin := Identity{ID: "boss", Role: "admin"}
	if err := svc.Update(context.Background(), admin, otherID, carID, 150, iv("2025-07-02", "2025-07-09")); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
}

func TestDeleteOfferCascades(t *testing.T) {
	svc, store, carID := newOfferFixture(t)
	owner := Identity{ID: "owner-1", Role: "user"}
	offerID := store.addOffer(model.Offer{CarID: carID, OwnerID: "owner-1", Price: 100, From: day("2025-06-01"), To: day("2025-06-30")})
	store.addReservation(model.Reservation{OfferID: offerID, RenterID: "renter-1", From: day("2025-06-05"), To: day("2025-06-10")})

	if err := svc.Delete(context.Background(), Identity{ID: "intruder", Role: "user"}, offerID); KindOf(err) != KindNotOwner {
		t.Fatalf("expected NotOwner, got %v", err)
	}
	if err := svc.Delete(context.Background(), owner, offerID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.GetOffer(context.Background(), offerID); err == nil {
		t.Fatal("offer should be gone")
	}
	left, _ := store.ListReservationsByOffer(context.Background(), offerID)
	if len(left) != 0 {
		t.Fatalf("reservations should cascade with the offer, %d left", len(left))
	}
}

func TestAdjustedOffers(t *testing.T) {
	svc, store, carID := newOfferFixture(t)
	offerID := store.addOffer(model.Offer{CarID: carID, OwnerID: "owner-1", Price: 100, From: day("2025-01-01"), To: day("2025-01-31")})
	pastID := store.addOffer(model.Offer{CarID: carID, OwnerID: "owner-1", Price: 100, From: day("2024-01-01"), To: day("2024-01-31")})
	store.addReservation(model.Reservation{OfferID: offerID, RenterID: "renter-1", From: day("2025-01-10"), To: day("2025-01-15")})

	adjusted, err := svc.Adjusted(context.Background(), day("2025-01-01"))
	if err != nil {
		t.Fatalf("adjusted failed: %v", err)
	}
	if len(adjusted) != 2 {
		t.Fatalf("expected 2 spans, got %d: %+v", len(adjusted), adjusted)
	}
	for _, a := range adjusted {
		if a.OfferID == pastID {
			t.Fatal("offers starting before asOf must not appear")
		}
		if a.OfferID != offerID || a.CarID != carID || a.Price != 100 {
			t.Fatalf("span should carry the parent offer's identity and price: %+v", a)
		}
	}
	if !adjusted[0].From.Equal(day("2025-01-01")) || !adjusted[0].To.Equal(day("2025-01-09")) {
		t.Fatalf("first span wrong: %+v", adjusted[0])
	}
	if !adjusted[1].From.Equal(day("2025-01-16")) || !adjusted[1].To.Equal(day("2025-01-31")) {
		t.Fatalf("second span wrong: %+v", adjusted[1])
	}

	// A fully booked offer contributes nothing.
	store.addReservation(model.Reservation{OfferID: offerID, RenterID: "renter-1", From: day("2025-01-01"), To: day("2025-01-09")})
	store.addReservation(model.Reservation{OfferID: offerID, RenterID: "renter-1", From: day("2025-01-16"), To: day("2025-01-31")})
	adjusted, err = svc.Adjusted(context.Background(), day("2025-01-01"))
	if err != nil {
		t.Fatalf("adjusted failed: %v", err)
	}
	if len(adjusted) != 0 {
		t.Fatalf("fully booked offer should yield no spans, got %+v", adjusted)
	}
}
