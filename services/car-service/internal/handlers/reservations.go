package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mrogowski01/rentacar/libs/auth"
	"github.com/mrogowski01/rentacar/services/car-service/internal/model"
	"github.com/mrogowski01/rentacar/services/car-service/internal/rental"
	"github.com/mrogowski01/rentacar/services/car-service/internal/storage"
)

type ReservationHandler struct {
	svc    *rental.ReservationService
	repo   *storage.Repository
	logger *slog.Logger
}

func NewReservationHandler(svc *rental.ReservationService, repo *storage.Repository, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{svc: svc, repo: repo, logger: logger}
}

type reservationRequest struct {
	OfferID  int64  `json:"offer_id"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

type reservationItem struct {
	ID         int64      `json:"id"`
	OfferID    int64      `json:"offer_id"`
	RenterID   string     `json:"renter_id"`
	DateFrom   string     `json:"date_from"`
	DateTo     string     `json:"date_to"`
	TotalPrice int64      `json:"total_price,omitempty"`
	Offer      *offerItem `json:"offer,omitempty"`
}

func (h *ReservationHandler) reservationToItem(r *http.Request, res model.Reservation, withOffer bool) reservationItem {
	item := reservationItem{
		ID:       res.ID,
		OfferID:  res.OfferID,
		RenterID: res.RenterID,
		DateFrom: res.From.Format(dayFormat),
		DateTo:   res.To.Format(dayFormat),
	}
	if !withOffer {
		return item
	}
	offer, err := h.repo.GetOffer(r.Context(), res.OfferID)
	if err != nil {
		return item
	}
	o := offerToItem(offer)
	item.Offer = &o
	item.TotalPrice = model.TotalPrice(offer.Price, res.From, res.To)
	return item
}

// Collection serves /api/reservations: create for any authenticated user,
// full listing for admins.
func (h *ReservationHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		ident, ok := identityFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		var req reservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		iv, err := parseRange(req.DateFrom, req.DateTo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date_from and date_to must be YYYY-MM-DD")
			return
		}
		id, err := h.svc.Create(r.Context(), ident, req.OfferID, iv)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int64{"reservation_id": id})
	case http.MethodGet:
		ident, ok := identityFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		if ident.Role != auth.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		reservations, err := h.repo.ListReservations(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list reservations")
			return
		}
		items := make([]reservationItem, 0, len(reservations))
		for _, res := range reservations {
			items = append(items, h.reservationToItem(r, res, false))
		}
		writeJSON(w, http.StatusOK, items)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Mine serves /api/reservations/user: the caller's reservations with offer
// and car details joined in.
func (h *ReservationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	reservations, err := h.repo.ListReservationsByRenter(r.Context(), ident.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reservations")
		return
	}
	items := make([]reservationItem, 0, len(reservations))
	for _, res := range reservations {
		items = append(items, h.reservationToItem(r, res, true))
	}
	writeJSON(w, http.StatusOK, items)
}

// Item serves /api/reservations/{id}.
func (h *ReservationHandler) Item(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/api/reservations/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}
	ident, identOK := identityFrom(r)
	if !identOK {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req reservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		iv, err := parseRange(req.DateFrom, req.DateTo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date_from and date_to must be YYYY-MM-DD")
			return
		}
		if err := h.svc.Update(r.Context(), ident, id, req.OfferID, iv); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if err := h.svc.Delete(r.Context(), ident, id); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
