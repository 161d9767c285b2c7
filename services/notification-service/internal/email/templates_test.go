package email

import (
	"strings"
	"testing"
)

func sampleEvent() ReservationEvent {
	return ReservationEvent{
		ReservationID: 7,
		OfferID:       3,
		CarID:         5,
		RenterEmail:   "renter@example.com",
		OwnerEmail:    "owner@example.com",
		CarBrand:      "Skoda",
		CarModel:      "Octavia",
		DateFrom:      "2025-07-10",
		DateTo:        "2025-07-12",
		Price:         100,
		TotalPrice:    300,
		OfferDateFrom: "2025-07-01",
		OfferDateTo:   "2025-07-31",
	}
}

func TestReservationCreatedMails(t *testing.T) {
	mails := ReservationCreatedMails(sampleEvent())
	if len(mails) != 2 {
		t.Fatalf("expected renter and owner mails, got %d", len(mails))
	}

	renter := mails[0]
	if renter.To != "renter@example.com" || renter.Subject != SubjectReservationCreated {
		t.Fatalf("unexpected renter mail header: %+v", renter)
	}
	for _, want := range []string{"Skoda Octavia", "2025-07-10 - 2025-07-12", "300 PLN"} {
		if !strings.Contains(renter.Body, want) {
			t.Errorf("renter body missing %q:\n%s", want, renter.Body)
		}
	}

	owner := mails[1]
	if owner.To != "owner@example.com" {
		t.Fatalf("unexpected owner recipient: %s", owner.To)
	}
	for _, want := range []string{"renter@example.com", "with id 7", "price - 100", "start date - 2025-07-01", "end date - 2025-07-31", "300 PLN"} {
		if !strings.Contains(owner.Body, want) {
			t.Errorf("owner body missing %q:\n%s", want, owner.Body)
		}
	}
}

func TestReservationMailsWithoutOwnerEmail(t *testing.T) {
	evt := sampleEvent()
	evt.OwnerEmail = ""

	for name, render := range map[string]func(ReservationEvent) []Mail{
		"created":   ReservationCreatedMails,
		"updated":   ReservationUpdatedMails,
		"cancelled": ReservationCancelledMails,
	} {
		mails := render(evt)
		if len(mails) != 1 {
			t.Errorf("%s: expected renter-only delivery, got %d mails", name, len(mails))
			continue
		}
		if mails[0].To != evt.RenterEmail {
			t.Errorf("%s: expected renter recipient, got %s", name, mails[0].To)
		}
	}
}

func TestReservationUpdatedMailsCarryPreviousDates(t *testing.T) {
	evt := sampleEvent()
	evt.PreviousDateFrom = "2025-07-05"
	evt.PreviousDateTo = "2025-07-07"

	mails := ReservationUpdatedMails(evt)
	if len(mails) != 2 {
		t.Fatalf("expected 2 mails, got %d", len(mails))
	}
	for i, m := range mails {
		if m.Subject != SubjectReservationUpdated {
			t.Errorf("mail %d: unexpected subject %q", i, m.Subject)
		}
		for _, want := range []string{"2025-07-05", "2025-07-07", "2025-07-10", "2025-07-12"} {
			if !strings.Contains(m.Body, want) {
				t.Errorf("mail %d missing %q:\n%s", i, want, m.Body)
			}
		}
	}
}

func TestWelcomeMail(t *testing.T) {
	mail := WelcomeMail(UserCreatedEvent{UserID: "u-1", Email: "new@example.com", Role: "user"})
	if mail.To != "new@example.com" {
		t.Fatalf("unexpected recipient: %s", mail.To)
	}
	if mail.Subject != SubjectWelcome {
		t.Fatalf("unexpected subject: %s", mail.Subject)
	}
	if !strings.Contains(mail.Body, "account has been created") {
		t.Fatalf("unexpected body:\n%s", mail.Body)
	}
}
