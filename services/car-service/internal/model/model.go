package model

import "time"

type Car struct {
	ID        int64
	OwnerID   string
	Brand     string
	Model     string
	ProdYear  int
	Engine    float64
	FuelType  string
	Color     string
	GearType  string
	CreatedAt time.Time
}

type Offer struct {
	ID        int64
	CarID     int64
	OwnerID   string
	Price     int64
	From      time.Time
	To        time.Time
	CreatedAt time.Time

	// Car is populated by list/get queries that join car details; nil otherwise.
	Car *Car
}

type Reservation struct {
	ID        int64
	OfferID   int64
	RenterID  string
	From      time.Time
	To        time.Time
	CreatedAt time.Time
}

// AdjustedOffer is a still-bookable span of an offer after subtracting its
// reservations. Computed on read, never persisted.
type AdjustedOffer struct {
	OfferID int64
	CarID   int64
	Price   int64
	From    time.Time
	To      time.Time
	Car     *Car
}

// TotalPrice is the cost of renting for the closed day range [from, to].
// Both endpoints count, so a single-day rental costs one day's price.
func TotalPrice(price int64, from, to time.Time) int64 {
	days := int64(to.Sub(from).Hours()/24) + 1
	if days < 1 {
		return 0
	}
	return days * price
}
