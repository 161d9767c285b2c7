package rental

import (
	"errors"
	"fmt"

	"github.com/mrogowski01/rentacar/services/car-service/internal/interval"
)

// Kind classifies a validation failure so the HTTP layer can pick a status
// code without parsing messages.
type Kind int

const (
	KindInvalidRange Kind = iota + 1
	KindOutOfRange
	KindOverlappingOffer
	KindOverlappingReservation
	KindNotFound
	KindNotOwner
	KindSelfReservation
	KindResourceMismatch
	KindOfferMismatch
)

// Out-of-range sub-reasons, most specific first. A reservation sticking out
// on both sides reports spanning, not one of the one-sided reasons.
const (
	ReasonSpanning              = "spanning"
	ReasonStartsBeforeAvailable = "startsBeforeAvailable"
	ReasonEndsAfterAvailable    = "endsAfterAvailable"
)

type Error struct {
	Kind    Kind
	Reason  string
	Message string
}

func (e *Error) Error() string { return e.Message }

// KindOf extracts the classification from err, or 0 if err is not a
// validation failure.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

const dayFormat = "2006-01-02"

func fmtInterval(iv interval.Interval) string {
	return fmt.Sprintf("[%s, %s]", iv.From.Format(dayFormat), iv.To.Format(dayFormat))
}

func errInvalidRange(iv interval.Interval) error {
	return &Error{
		Kind:    KindInvalidRange,
		Message: fmt.Sprintf("invalid range: end date %s precedes start date %s", iv.To.Format(dayFormat), iv.From.Format(dayFormat)),
	}
}

func errOutOfRange(reason string, candidate, bounds interval.Interval) error {
	return &Error{
		Kind:    KindOutOfRange,
		Reason:  reason,
		Message: fmt.Sprintf("requested range %s is out of the available range %s (%s)", fmtInterval(candidate), fmtInterval(bounds), reason),
	}
}

func errOverlappingOffer(candidate, conflict interval.Interval) error {
	return &Error{
		Kind:    KindOverlappingOffer,
		Message: fmt.Sprintf("offer range %s overlaps an existing offer %s for this car", fmtInterval(candidate), fmtInterval(conflict)),
	}
}

func errOverlappingReservation(candidate, conflict interval.Interval) error {
	return &Error{
		Kind:    KindOverlappingReservation,
		Message: fmt.Sprintf("reservation range %s overlaps an existing reservation %s", fmtInterval(candidate), fmtInterval(conflict)),
	}
}

func errNotFound(what string, id int64) error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %d not found", what, id),
	}
}

func errNotOwner(what string, id int64) error {
	return &Error{
		Kind:    KindNotOwner,
		Message: fmt.Sprintf("requester does not own %s %d", what, id),
	}
}

func errSelfReservation(offerID int64) error {
	return &Error{
		Kind:    KindSelfReservation,
		Message: fmt.Sprintf("owner cannot reserve their own offer %d", offerID),
	}
}

func errResourceMismatch(offerID, gotCarID, wantCarID int64) error {
	return &Error{
		Kind:    KindResourceMismatch,
		Message: fmt.Sprintf("offer %d belongs to car %d, not car %d", offerID, wantCarID, gotCarID),
	}
}

func errOfferMismatch(reservationID, gotOfferID, wantOfferID int64) error {
	return &Error{
		Kind:    KindOfferMismatch,
		Message: fmt.Sprintf("reservation %d belongs to offer %d, not offer %d", reservationID, wantOfferID, gotOfferID),
	}
}
