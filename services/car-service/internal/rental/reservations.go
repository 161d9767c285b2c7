package rental

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/mrogowski01/rentacar/services/car-service/internal/directory"
	"github.com/mrogowski01/rentacar/services/car-service/internal/interval"
	"github.com/mrogowski01/rentacar/services/car-service/internal/model"
)

const (
	TopicReservationCreated   = "rental.reservation.created.v1"
	TopicReservationUpdated   = "rental.reservation.updated.v1"
	TopicReservationCancelled = "rental.reservation.cancelled.v1"
)

// ReservationService gates reservation writes against the parent offer's
// bounds and sibling reservations, and emits lifecycle events through the
// store's outbox. Notification delivery is asynchronous; a failed owner
// email lookup degrades the event, it never aborts the write.
type ReservationService struct {
	cars         CarStore
	offers       OfferStore
	reservations ReservationStore
	directory    directory.Provider
	locks        *lockTable
	logger       *slog.Logger
}

func NewReservationService(cars CarStore, offers OfferStore, reservations ReservationStore, dir directory.Provider, logger *slog.Logger) *ReservationService {
	return &ReservationService{
		cars:         cars,
		offers:       offers,
		reservations: reservations,
		directory:    dir,
		locks:        newLockTable(),
		logger:       logger,
	}
}

func (s *ReservationService) Create(ctx context.Context, ident Identity, offerID int64, iv interval.Interval) (int64, error) {
	release := s.locks.acquire(offerKey(offerID))
	defer release()

	offer, err := s.offers.GetOffer(ctx, offerID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return 0, errNotFound("offer", offerID)
		}
		return 0, err
	}
	if offer.OwnerID == ident.ID {
		return 0, errSelfReservation(offerID)
	}
	if !iv.Valid() {
		return 0, errInvalidRange(iv)
	}
	if err := checkContainment(offer, iv); err != nil {
		return 0, err
	}

	siblings, err := s.reservations.ListReservationsByOffer(ctx, offerID)
	if err != nil {
		return 0, err
	}
	if conflict, found := interval.FirstConflict(iv, tagReservations(siblings), 0); found {
		return 0, errOverlappingReservation(iv, conflict.Interval)
	}

	reservation := &model.Reservation{
		OfferID:  offerID,
		RenterID: ident.ID,
		From:     iv.From,
		To:       iv.To,
	}
	payload := s.eventPayload(ctx, ident, offer, iv)
	id, err := s.reservations.CreateReservation(ctx, reservation, func(id int64) (Event, error) {
		payload["reservation_id"] = id
		return reservationEvent(TopicReservationCreated, id, payload)
	})
	if err != nil {
		if errors.Is(err, ErrWriteConflict) {
			return 0, errOverlappingReservation(iv, iv)
		}
		return 0, err
	}
	s.logger.Info("reservation created", "reservation_id", id, "offer_id", offerID, "renter_id", ident.ID)
	return id, nil
}

func (s *ReservationService) Update(ctx context.Context, ident Identity, reservationID, offerID int64, iv interval.Interval) error {
	reservation, err := s.getReservation(ctx, reservationID)
	if err != nil {
		return err
	}

	release := s.locks.acquire(offerKey(reservation.OfferID))
	defer release()

	reservation, err = s.getReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if !ident.Admin() && reservation.RenterID != ident.ID {
		return errNotOwner("reservation", reservationID)
	}
	if offerID != reservation.OfferID {
		return errOfferMismatch(reservationID, offerID, reservation.OfferID)
	}
	if !iv.Valid() {
		return errInvalidRange(iv)
	}

	// Fresh offer lookup so the containment check sees the current bounds.
	offer, err := s.offers.GetOffer(ctx, reservation.OfferID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return errNotFound("offer", reservation.OfferID)
		}
		return err
	}
	if err := checkContainment(offer, iv); err != nil {
		return err
	}

	siblings, err := s.reservations.ListReservationsByOffer(ctx, reservation.OfferID)
	if err != nil {
		return err
	}
	if conflict, found := interval.FirstConflict(iv, tagReservations(siblings), reservationID); found {
		return errOverlappingReservation(iv, conflict.Interval)
	}

	payload := s.eventPayload(ctx, ident, offer, iv)
	payload["reservation_id"] = reservationID
	payload["previous_date_from"] = reservation.From.Format(dayFormat)
	payload["previous_date_to"] = reservation.To.Format(dayFormat)
	evt, err := reservationEvent(TopicReservationUpdated, reservationID, payload)
	if err != nil {
		return err
	}

	reservation.From = iv.From
	reservation.To = iv.To
	if err := s.reservations.UpdateReservation(ctx, &reservation, evt); err != nil {
		if errors.Is(err, ErrWriteConflict) {
			return errOverlappingReservation(iv, iv)
		}
		return err
	}
	s.logger.Info("reservation updated", "reservation_id", reservationID, "offer_id", reservation.OfferID)
	return nil
}

func (s *ReservationService) Delete(ctx context.Context, ident Identity, reservationID int64) error {
	reservation, err := s.getReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if !ident.Admin() && reservation.RenterID != ident.ID {
		return errNotOwner("reservation", reservationID)
	}

	release := s.locks.acquire(offerKey(reservation.OfferID))
	defer release()

	iv := interval.Interval{From: reservation.From, To: reservation.To}
	var events []Event
	offer, err := s.offers.GetOffer(ctx, reservation.OfferID)
	switch {
	case err == nil:
		// Re-save the parent offer unchanged so its audit timestamps move.
		if err := s.offers.SaveOffer(ctx, &offer); err != nil {
			return err
		}
		payload := s.eventPayload(ctx, ident, offer, iv)
		payload["reservation_id"] = reservationID
		evt, err := reservationEvent(TopicReservationCancelled, reservationID, payload)
		if err != nil {
			return err
		}
		events = append(events, evt)
	case errors.Is(err, ErrRowNotFound):
		s.logger.Warn("deleting reservation with missing offer", "reservation_id", reservationID, "offer_id", reservation.OfferID)
	default:
		return err
	}

	if err := s.reservations.DeleteReservation(ctx, reservationID, events...); err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return errNotFound("reservation", reservationID)
		}
		return err
	}
	s.logger.Info("reservation deleted", "reservation_id", reservationID, "offer_id", reservation.OfferID)
	return nil
}

// checkContainment validates iv against the offer's bounds. A range sticking
// out on both sides reports spanning before either one-sided reason.
func checkContainment(offer model.Offer, iv interval.Interval) error {
	bounds := interval.Interval{From: offer.From, To: offer.To}
	startsBefore := iv.From.Before(bounds.From)
	endsAfter := iv.To.After(bounds.To)
	switch {
	case startsBefore && endsAfter:
		return errOutOfRange(ReasonSpanning, iv, bounds)
	case startsBefore:
		return errOutOfRange(ReasonStartsBeforeAvailable, iv, bounds)
	case endsAfter:
		return errOutOfRange(ReasonEndsAfterAvailable, iv, bounds)
	}
	return nil
}

func (s *ReservationService) getReservation(ctx context.Context, id int64) (model.Reservation, error) {
	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return model.Reservation{}, errNotFound("reservation", id)
		}
		return model.Reservation{}, err
	}
	return reservation, nil
}

// eventPayload builds the notification payload for a reservation lifecycle
// event. Owner email resolution is best-effort.
func (s *ReservationService) eventPayload(ctx context.Context, ident Identity, offer model.Offer, iv interval.Interval) map[string]any {
	payload := map[string]any{
		"offer_id":     offer.ID,
		"car_id":       offer.CarID,
		"owner_id":     offer.OwnerID,
		"renter_id":    ident.ID,
		"renter_email": ident.Email,
		"date_from":    iv.From.Format(dayFormat),
		"date_to":      iv.To.Format(dayFormat),
		"price":        offer.Price,
		"total_price":  model.TotalPrice(offer.Price, iv.From, iv.To),

		"offer_date_from": offer.From.Format(dayFormat),
		"offer_date_to":   offer.To.Format(dayFormat),
	}
	if car, err := s.cars.GetCar(ctx, offer.CarID); err == nil {
		payload["car_brand"] = car.Brand
		payload["car_model"] = car.Model
	}
	if s.directory != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		ownerEmail, err := s.directory.UserEmail(lookupCtx, offer.OwnerID)
		cancel()
		if err != nil {
			s.logger.Warn("owner email lookup failed, notifying renter only", "owner_id", offer.OwnerID, "err", err)
		} else {
			payload["owner_email"] = ownerEmail
		}
	}
	return payload
}

func reservationEvent(topic string, reservationID int64, payload map[string]any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "reservation",
		AggregateID:   strconv.FormatInt(reservationID, 10),
		EventType:     topic,
		Payload:       body,
	}, nil
}

func tagReservations(reservations []model.Reservation) []interval.Tagged {
	tagged := make([]interval.Tagged, 0, len(reservations))
	for _, r := range reservations {
		tagged = append(tagged, interval.Tagged{ID: r.ID, Interval: interval.Interval{From: r.From, To: r.To}})
	}
	return tagged
}
