package rental

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mrogowski01/rentacar/services/car-service/internal/interval"
	"github.com/mrogowski01/rentacar/services/car-service/internal/model"
)

// OfferService gates every offer write against sibling offers for the same
// car. Reads needed for display go straight to the store.
type OfferService struct {
	cars         CarStore
	offers       OfferStore
	reservations ReservationStore
	locks        *lockTable
	logger       *slog.Logger
}

func NewOfferService(cars CarStore, offers OfferStore, reservations ReservationStore, logger *slog.Logger) *OfferService {
	return &OfferService{
		cars:         cars,
		offers:       offers,
		reservations: reservations,
		locks:        newLockTable(),
		logger:       logger,
	}
}

func (s *OfferService) Create(ctx context.Context, ident Identity, carID, price int64, iv interval.Interval) (int64, error) {
	if !iv.Valid() {
		return 0, errInvalidRange(iv)
	}

	release := s.locks.acquire(carKey(carID))
	defer release()

	car, err := s.cars.GetCar(ctx, carID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return 0, errNotFound("car", carID)
		}
		return 0, err
	}
	if car.OwnerID != ident.ID {
		return 0, errNotOwner("car", carID)
	}

	siblings, err := s.offers.ListOffersByCar(ctx, carID)
	if err != nil {
		return 0, err
	}
	if conflict, found := interval.FirstConflict(iv, tagOffers(siblings), 0); found {
		return 0, errOverlappingOffer(iv, conflict.Interval)
	}

	id, err := s.offers.CreateOffer(ctx, &model.Offer{
		CarID:   carID,
		OwnerID: ident.ID,
		Price:   price,
		From:    iv.From,
		To:      iv.To,
	})
	if err != nil {
		if errors.Is(err, ErrWriteConflict) {
			return 0, errOverlappingOffer(iv, iv)
		}
		return 0, err
	}
	s.logger.Info("offer created", "offer_id", id, "car_id", carID, "owner_id", ident.ID)
	return id, nil
}

func (s *OfferService) Update(ctx context.Context, ident Identity, offerID, carID, price int64, iv interval.Interval) error {
	offer, err := s.getOffer(ctx, offerID)
	if err != nil {
		return err
	}

	release := s.locks.acquire(carKey(offer.CarID))
	defer release()

	// Re-read under the lock so the overlap check sees the latest siblings.
	offer, err = s.getOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if carID != offer.CarID {
		return errResourceMismatch(offerID, carID, offer.CarID)
	}
	if !ident.Admin() && offer.OwnerID != ident.ID {
		return errNotOwner("offer", offerID)
	}
	if !iv.Valid() {
		return errInvalidRange(iv)
	}

	siblings, err := s.offers.ListOffersByCar(ctx, offer.CarID)
	if err != nil {
		return err
	}
	if conflict, found := interval.FirstConflict(iv, tagOffers(siblings), offerID); found {
		return errOverlappingOffer(iv, conflict.Interval)
	}

	offer.Price = price
	offer.From = iv.From
	offer.To = iv.To
	if err := s.offers.UpdateOffer(ctx, &offer); err != nil {
		if errors.Is(err, ErrWriteConflict) {
			return errOverlappingOffer(iv, iv)
		}
		return err
	}
	s.logger.Info("offer updated", "offer_id", offerID, "car_id", offer.CarID)
	return nil
}

func (s *OfferService) Delete(ctx context.Context, ident Identity, offerID int64) error {
	offer, err := s.getOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if !ident.Admin() && offer.OwnerID != ident.ID {
		return errNotOwner("offer", offerID)
	}

	release := s.locks.acquire(carKey(offer.CarID))
	defer release()

	if err := s.offers.DeleteOffer(ctx, offerID); err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return errNotFound("offer", offerID)
		}
		return err
	}
	s.logger.Info("offer deleted", "offer_id", offerID, "car_id", offer.CarID)
	return nil
}

// Adjusted lists the still-bookable spans of every offer starting on or
// after asOf, with each offer's reservations subtracted.
func (s *OfferService) Adjusted(ctx context.Context, asOf time.Time) ([]model.AdjustedOffer, error) {
	offers, err := s.offers.ListOffersFrom(ctx, asOf)
	if err != nil {
		return nil, err
	}

	adjusted := make([]model.AdjustedOffer, 0, len(offers))
	for _, o := range offers {
		reservations, err := s.reservations.ListReservationsByOffer(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		booked := make([]interval.Interval, 0, len(reservations))
		for _, r := range reservations {
			booked = append(booked, interval.Interval{From: r.From, To: r.To})
		}
		for _, gap := range interval.Remaining(interval.Interval{From: o.From, To: o.To}, booked) {
			adjusted = append(adjusted, model.AdjustedOffer{
				OfferID: o.ID,
				CarID:   o.CarID,
				Price:   o.Price,
				From:    gap.From,
				To:      gap.To,
				Car:     o.Car,
			})
		}
	}
	return adjusted, nil
}

func (s *OfferService) getOffer(ctx context.Context, offerID int64) (model.Offer, error) {
	offer, err := s.offers.GetOffer(ctx, offerID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return model.Offer{}, errNotFound("offer", offerID)
		}
		return model.Offer{}, err
	}
	return offer, nil
}

func tagOffers(offers []model.Offer) []interval.Tagged {
	tagged := make([]interval.Tagged, 0, len(offers))
	for _, o := range offers {
		tagged = append(tagged, interval.Tagged{ID: o.ID, Interval: interval.Interval{From: o.From, To: o.To}})
	}
	return tagged
}
