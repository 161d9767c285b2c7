package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mrogowski01/rentacar/services/car-service/internal/model"
	"github.com/mrogowski01/rentacar/services/car-service/internal/rental"
	"github.com/mrogowski01/rentacar/services/car-service/internal/storage"
)

type OfferHandler struct {
	svc    *rental.OfferService
	repo   *storage.Repository
	logger *slog.Logger
}

func NewOfferHandler(svc *rental.OfferService, repo *storage.Repository, logger *slog.Logger) *OfferHandler {
	return &OfferHandler{svc: svc, repo: repo, logger: logger}
}

type offerRequest struct {
	CarID    int64  `json:"car_id"`
	Price    int64  `json:"price"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

type offerItem struct {
	ID       int64    `json:"id"`
	CarID    int64    `json:"car_id"`
	OwnerID  string   `json:"owner_id"`
	Price    int64    `json:"price"`
	DateFrom string   `json:"date_from"`
	DateTo   string   `json:"date_to"`
	Car      *carItem `json:"car,omitempty"`
}

type adjustedOfferItem struct {
	OfferID  int64    `json:"offer_id"`
	CarID    int64    `json:"car_id"`
	Price    int64    `json:"price"`
	DateFrom string   `json:"date_from"`
	DateTo   string   `json:"date_to"`
	Car      *carItem `json:"car,omitempty"`
}

func offerToItem(o model.Offer) offerItem {
	item := offerItem{
		ID:       o.ID,
		CarID:    o.CarID,
		OwnerID:  o.OwnerID,
		Price:    o.Price,
		DateFrom: o.From.Format(dayFormat),
		DateTo:   o.To.Format(dayFormat),
	}
	if o.Car != nil {
		c := carToItem(*o.Car)
		item.Car = &c
	}
	return item
}

// Collection serves /api/offers.
func (h *OfferHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		offers, err := h.repo.ListOffers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list offers")
			return
		}
		items := make([]offerItem, 0, len(offers))
		for _, o := range offers {
			items = append(items, offerToItem(o))
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		ident, ok := identityFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		var req offerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		iv, err := parseRange(req.DateFrom, req.DateTo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date_from and date_to must be YYYY-MM-DD")
			return
		}
		if req.Price <= 0 {
			writeError(w, http.StatusBadRequest, "price must be positive")
			return
		}
		id, err := h.svc.Create(r.Context(), ident, req.CarID, req.Price, iv)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int64{"offer_id": id})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Item serves /api/offers/{id}.
func (h *OfferHandler) Item(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/api/offers/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid offer id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		offer, err := h.repo.GetOffer(r.Context(), id)
		if err != nil {
			if errors.Is(err, rental.ErrRowNotFound) {
				writeError(w, http.StatusNotFound, "offer not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load offer")
			return
		}
		writeJSON(w, http.StatusOK, offerToItem(offer))
	case http.MethodPut:
		ident, ok := identityFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		var req offerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		iv, err := parseRange(req.DateFrom, req.DateTo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date_from and date_to must be YYYY-MM-DD")
			return
		}
		if req.Price <= 0 {
			writeError(w, http.StatusBadRequest, "price must be positive")
			return
		}
		if err := h.svc.Update(r.Context(), ident, id, req.CarID, req.Price, iv); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		ident, ok := identityFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		if err := h.svc.Delete(r.Context(), ident, id); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// ByCar serves /api/offers/car/{id}.
func (h *OfferHandler) ByCar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	carID, ok := pathID(r.URL.Path, "/api/offers/car/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid car id")
		return
	}
	offers, err := h.repo.ListOffersByCar(r.Context(), carID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list offers")
		return
	}
	items := make([]offerItem, 0, len(offers))
	for _, o := range offers {
		items = append(items, offerToItem(o))
	}
	writeJSON(w, http.StatusOK, items)
}

// Mine serves /api/offers/user, the caller's own offers.
func (h *OfferHandler) Mine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	offers, err := h.repo.ListOffersByOwner(r.Context(), ident.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list offers")
		return
	}
	items := make([]offerItem, 0, len(offers))
	for _, o := range offers {
		items = append(items, offerToItem(o))
	}
	writeJSON(w, http.StatusOK, items)
}

// Adjusted serves /api/offers/adjusted, the public availability listing:
// every upcoming offer reduced to its still-bookable spans.
func (h *OfferHandler) Adjusted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	adjusted, err := h.svc.Adjusted(r.Context(), today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute availability")
		return
	}
	items := make([]adjustedOfferItem, 0, len(adjusted))
	for _, a := range adjusted {
		item := adjustedOfferItem{
			OfferID:  a.OfferID,
			CarID:    a.CarID,
			Price:    a.Price,
			DateFrom: a.From.Format(dayFormat),
			DateTo:   a.To.Format(dayFormat),
		}
		if a.Car != nil {
			c := carToItem(*a.Car)
			item.Car = &c
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}
