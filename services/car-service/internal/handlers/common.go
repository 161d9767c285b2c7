package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mrogowski01/rentacar/services/car-service/internal/interval"
	"github.com/mrogowski01/rentacar/services/car-service/internal/rental"
)

const dayFormat = "2006-01-02"

// identityFrom reads the caller identity the gateway injected after token
// verification. Requests reaching this service without the headers were not
// authenticated.
func identityFrom(r *http.Request) (rental.Identity, bool) {
	ident := rental.Identity{
		ID:    strings.TrimSpace(r.Header.Get("X-User-Id")),
		Email: strings.TrimSpace(r.Header.Get("X-User-Email")),
		Role:  strings.TrimSpace(r.Header.Get("X-Role")),
	}
	return ident, ident.ID != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps a guard failure to its HTTP status.
func writeEngineError(w http.ResponseWriter, err error) {
	switch rental.KindOf(err) {
	case rental.KindInvalidRange, rental.KindOutOfRange, rental.KindResourceMismatch, rental.KindOfferMismatch:
		writeError(w, http.StatusBadRequest, err.Error())
	case rental.KindNotOwner, rental.KindSelfReservation:
		writeError(w, http.StatusForbidden, err.Error())
	case rental.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case rental.KindOverlappingOffer, rental.KindOverlappingReservation:
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// pathID extracts the trailing numeric id from a path like /api/offers/42.
func pathID(path, prefix string) (int64, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path || rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseDay(s string) (time.Time, error) {
	return time.Parse(dayFormat, strings.TrimSpace(s))
}

// parseRange builds the candidate interval from request fields. Parse errors
// surface as 400 at the call site; range inversion is left to the guards so
// the InvalidRange message stays uniform.
func parseRange(from, to string) (interval.Interval, error) {
	f, err := parseDay(from)
	if err != nil {
		return interval.Interval{}, err
	}
	t, err := parseDay(to)
	if err != nil {
		return interval.Interval{}, err
	}
	return interval.Interval{From: f, To: t}, nil
}
