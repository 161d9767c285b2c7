package email

import "fmt"

// ReservationEvent mirrors the payload of the reservation lifecycle events
// published by car-service. Owner fields are optional: the producer degrades
// to a renter-only payload when the owner lookup fails.
type ReservationEvent struct {
	ReservationID    int64  `json:"reservation_id"`
	OfferID          int64  `json:"offer_id"`
	CarID            int64  `json:"car_id"`
	OwnerID          string `json:"owner_id"`
	RenterID         string `json:"renter_id"`
	RenterEmail      string `json:"renter_email"`
	OwnerEmail       string `json:"owner_email"`
	CarBrand         string `json:"car_brand"`
	CarModel         string `json:"car_model"`
	DateFrom         string `json:"date_from"`
	DateTo           string `json:"date_to"`
	PreviousDateFrom string `json:"previous_date_from"`
	PreviousDateTo   string `json:"previous_date_to"`
	Price            int64  `json:"price"`
	TotalPrice       int64  `json:"total_price"`
	OfferDateFrom    string `json:"offer_date_from"`
	OfferDateTo      string `json:"offer_date_to"`
}

type UserCreatedEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Mail is a rendered message ready for the SMTP sender.
type Mail struct {
	To      string
	Subject string
	Body    string
}

const (
	SubjectReservationCreated   = "Reservation created"
	SubjectReservationUpdated   = "Reservation updated"
	SubjectReservationCancelled = "Reservation deleted"
	SubjectWelcome              = "Welcome to RentCar"
)

// ReservationCreatedMails renders the renter confirmation and, when the owner
// email is known, the owner notice for a freshly created reservation.
func ReservationCreatedMails(evt ReservationEvent) []Mail {
	mails := []Mail{{
		To:      evt.RenterEmail,
		Subject: SubjectReservationCreated,
		Body: fmt.Sprintf(
			"Your reservation has been created!\nYour car %s %s from %s - %s\nReservation price: %d PLN",
			evt.CarBrand, evt.CarModel, evt.DateFrom, evt.DateTo, evt.TotalPrice,
		),
	}}
	if evt.OwnerEmail != "" {
		mails = append(mails, Mail{
			To:      evt.OwnerEmail,
			Subject: SubjectReservationCreated,
			Body: fmt.Sprintf(
				"User with email %s has created a reservation for your car %s %s with id %d in offer: price - %d, start date - %s, end date - %s.\nReservation from %s to %s, price - %d PLN",
				evt.RenterEmail, evt.CarBrand, evt.CarModel, evt.ReservationID,
				evt.Price, evt.OfferDateFrom, evt.OfferDateTo,
				evt.DateFrom, evt.DateTo, evt.TotalPrice,
			),
		})
	}
	return mails
}

// ReservationUpdatedMails renders both notices for a moved reservation,
// carrying the previous and current date ranges.
func ReservationUpdatedMails(evt ReservationEvent) []Mail {
	mails := []Mail{{
		To:      evt.RenterEmail,
		Subject: SubjectReservationUpdated,
		Body: fmt.Sprintf(
			"Your reservation has been updated!\nYour car %s %s. Previous dates: from %s - %s, current: from %s - %s\nReservation price: %d PLN",
			evt.CarBrand, evt.CarModel,
			evt.PreviousDateFrom, evt.PreviousDateTo,
			evt.DateFrom, evt.DateTo, evt.TotalPrice,
		),
	}}
	if evt.OwnerEmail != "" {
		mails = append(mails, Mail{
			To:      evt.OwnerEmail,
			Subject: SubjectReservationUpdated,
			Body: fmt.Sprintf(
				"User with email %s has updated the reservation for your car %s %s with id %d in offer: price - %d, start date - %s, end date - %s.\nPrevious reservation from %s to %s, current reservation from %s to %s, current price - %d PLN",
				evt.RenterEmail, evt.CarBrand, evt.CarModel, evt.ReservationID,
				evt.Price, evt.OfferDateFrom, evt.OfferDateTo,
				evt.PreviousDateFrom, evt.PreviousDateTo,
				evt.DateFrom, evt.DateTo, evt.TotalPrice,
			),
		})
	}
	return mails
}

// ReservationCancelledMails renders both notices for a cancelled reservation.
func ReservationCancelledMails(evt ReservationEvent) []Mail {
	mails := []Mail{{
		To:      evt.RenterEmail,
		Subject: SubjectReservationCancelled,
		Body: fmt.Sprintf(
			"Your reservation has been deleted!\nYour car %s %s from %s - %s\nReservation price: %d PLN",
			evt.CarBrand, evt.CarModel, evt.DateFrom, evt.DateTo, evt.TotalPrice,
		),
	}}
	if evt.OwnerEmail != "" {
		mails = append(mails, Mail{
			To:      evt.OwnerEmail,
			Subject: SubjectReservationCancelled,
			Body: fmt.Sprintf(
				"User with email %s has deleted the reservation for your car %s %s with id %d in offer: price - %d, start date - %s, end date - %s.\nReservation from %s to %s, price - %d PLN",
				evt.RenterEmail, evt.CarBrand, evt.CarModel, evt.ReservationID,
				evt.Price, evt.OfferDateFrom, evt.OfferDateTo,
				evt.DateFrom, evt.DateTo, evt.TotalPrice,
			),
		})
	}
	return mails
}

// WelcomeMail renders the registration greeting for a new user.
func WelcomeMail(evt UserCreatedEvent) Mail {
	return Mail{
		To:      evt.Email,
		Subject: SubjectWelcome,
		Body:    "Your account has been created.\nLog in to browse offers and book your first car.",
	}
}
