package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mrogowski01/rentacar/services/car-service/internal/rental"
)

func TestPathID(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		prefix string
		want   int64
		ok     bool
	}{
		{name: "plain id", path: "/api/offers/42", prefix: "/api/offers/", want: 42, ok: true},
		{name: "missing id", path: "/api/offers/", prefix: "/api/offers/", ok: false},
		{name: "nested path", path: "/api/offers/42/extra", prefix: "/api/offers/", ok: false},
		{name: "not a number", path: "/api/offers/abc", prefix: "/api/offers/", ok: false},
		{name: "zero id", path: "/api/offers/0", prefix: "/api/offers/", ok: false},
		{name: "wrong prefix", path: "/api/cars/42", prefix: "/api/offers/", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := pathID(tc.path, tc.prefix)
			if ok != tc.ok {
				t.Fatalf("pathID(%q) ok = %v, want %v", tc.path, ok, tc.ok)
			}
			if ok && id != tc.want {
				t.Fatalf("pathID(%q) = %d, want %d", tc.path, id, tc.want)
			}
		})
	}
}

func TestIdentityFrom(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/cars", nil)
	if _, ok := identityFrom(req); ok {
		t.Fatal("expected no identity without gateway headers")
	}

	req.Header.Set("X-User-Id", "u-1")
	req.Header.Set("X-User-Email", "u-1@example.com")
	req.Header.Set("X-Role", "admin")
	ident, ok := identityFrom(req)
	if !ok {
		t.Fatal("expected identity from headers")
	}
	if ident.ID != "u-1" || ident.Email != "u-1@example.com" || !ident.Admin() {
		t.Fatalf("unexpected identity: %+v", ident)
	}
}

func TestWriteEngineErrorStatus(t *testing.T) {
	cases := map[int][]rental.Kind{
		http.StatusBadRequest: {
			rental.KindInvalidRange,
			rental.KindOutOfRange,
			rental.KindResourceMismatch,
			rental.KindOfferMismatch,
		},
		http.StatusForbidden: {
			rental.KindNotOwner,
			rental.KindSelfReservation,
		},
		http.StatusNotFound: {
			rental.KindNotFound,
		},
		http.StatusConflict: {
			rental.KindOverlappingOffer,
			rental.KindOverlappingReservation,
		},
	}
	for status, kinds := range cases {
		for _, kind := range kinds {
			rec := httptest.NewRecorder()
			writeEngineError(rec, &rental.Error{Kind: kind, Message: "boom"})
			if rec.Code != status {
				t.Errorf("kind %d: got status %d, want %d", kind, rec.Code, status)
			}
		}
	}
}
