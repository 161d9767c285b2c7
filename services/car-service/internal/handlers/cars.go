package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mrogowski01/rentacar/libs/auth"
	"github.com/mrogowski01/rentacar/services/car-service/internal/model"
	"github.com/mrogowski01/rentacar/services/car-service/internal/rental"
	"github.com/mrogowski01/rentacar/services/car-service/internal/storage"
)

type CarHandler struct {
	repo   *storage.Repository
	logger *slog.Logger
}

func NewCarHandler(repo *storage.Repository, logger *slog.Logger) *CarHandler {
	return &CarHandler{repo: repo, logger: logger}
}

type carRequest struct {
	Brand    string  `json:"brand"`
	Model    string  `json:"model"`
	ProdYear int     `json:"prod_year"`
	Engine   float64 `json:"engine"`
	FuelType string  `json:"fuel_type"`
	Color    string  `json:"color"`
	GearType string  `json:"gear_type"`
}

type carItem struct {
	ID       int64   `json:"id"`
	OwnerID  string  `json:"owner_id"`
	Brand    string  `json:"brand"`
	Model    string  `json:"model"`
	ProdYear int     `json:"prod_year"`
	Engine   float64 `json:"engine"`
	FuelType string  `json:"fuel_type"`
	Color    string  `json:"color"`
	GearType string  `json:"gear_type"`
}

func carToItem(c model.Car) carItem {
	return carItem{
		ID:       c.ID,
		OwnerID:  c.OwnerID,
		Brand:    c.Brand,
		Model:    c.Model,
		ProdYear: c.ProdYear,
		Engine:   c.Engine,
		FuelType: c.FuelType,
		Color:    c.Color,
		GearType: c.GearType,
	}
}

// Collection serves /api/cars.
func (h *CarHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cars, err := h.repo.ListCars(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list cars")
			return
		}
		items := make([]carItem, 0, len(cars))
		for _, c := range cars {
			items = append(items, carToItem(c))
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		ident, ok := identityFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		var req carRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if strings.TrimSpace(req.Brand) == "" || strings.TrimSpace(req.Model) == "" {
			writeError(w, http.StatusBadRequest, "brand and model are required")
			return
		}
		car := model.Car{
			OwnerID:  ident.ID,
			Brand:    strings.TrimSpace(req.Brand),
			Model:    strings.TrimSpace(req.Model),
			ProdYear: req.ProdYear,
			Engine:   req.Engine,
			FuelType: strings.TrimSpace(req.FuelType),
			Color:    strings.TrimSpace(req.Color),
			GearType: strings.TrimSpace(req.GearType),
		}
		id, err := h.repo.CreateCar(r.Context(), &car)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create car")
			return
		}
		h.logger.Info("car created", "car_id", id, "owner_id", ident.ID)
		writeJSON(w, http.StatusCreated, map[string]int64{"car_id": id})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Mine serves /api/cars/user, the caller's own cars.
func (h *CarHandler) Mine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	cars, err := h.repo.ListCarsByOwner(r.Context(), ident.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list cars")
		return
	}
	items := make([]carItem, 0, len(cars))
	for _, c := range cars {
		items = append(items, carToItem(c))
	}
	writeJSON(w, http.StatusOK, items)
}

// Item serves /api/cars/{id}.
func (h *CarHandler) Item(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/api/cars/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid car id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		car, err := h.repo.GetCar(r.Context(), id)
		if err != nil {
			if errors.Is(err, rental.ErrRowNotFound) {
				writeError(w, http.StatusNotFound, "car not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load car")
			return
		}
		writeJSON(w, http.StatusOK, carToItem(car))
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *CarHandler) update(w http.ResponseWriter, r *http.Request, id int64) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	car, err := h.repo.GetCar(r.Context(), id)
	if err != nil {
		if errors.Is(err, rental.ErrRowNotFound) {
			writeError(w, http.StatusNotFound, "car not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load car")
		return
	}
	if ident.Role != auth.RoleAdmin && car.OwnerID != ident.ID {
		writeError(w, http.StatusForbidden, "not the car owner")
		return
	}

	var req carRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	car.Brand = strings.TrimSpace(req.Brand)
	car.Model = strings.TrimSpace(req.Model)
	car.ProdYear = req.ProdYear
	car.Engine = req.Engine
	car.FuelType = strings.TrimSpace(req.FuelType)
	car.Color = strings.TrimSpace(req.Color)
	car.GearType = strings.TrimSpace(req.GearType)
	if car.Brand == "" || car.Model == "" {
		writeError(w, http.StatusBadRequest, "brand and model are required")
		return
	}

	if err := h.repo.UpdateCar(r.Context(), &car); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update car")
		return
	}
	writeJSON(w, http.StatusOK, carToItem(car))
}

// delete removes a car together with its offers and reservations. Admin only.
func (h *CarHandler) delete(w http.ResponseWriter, r *http.Request, id int64) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	if ident.Role != auth.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}
	if err := h.repo.DeleteCar(r.Context(), id); err != nil {
		if errors.Is(err, rental.ErrRowNotFound) {
			writeError(w, http.StatusNotFound, "car not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete car")
		return
	}
	h.logger.Info("car deleted", "car_id", id, "requester_id", ident.ID)
	w.WriteHeader(http.StatusNoContent)
}
