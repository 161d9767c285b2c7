package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mrogowski01/rentacar/services/car-service/internal/storage"
	"github.com/mrogowski01/rentacar/services/car-service/internal/weather"
)

type WeatherHandler struct {
	client *weather.Client
	repo   *storage.Repository
	res    *ReservationHandler
	logger *slog.Logger
}

func NewWeatherHandler(client *weather.Client, repo *storage.Repository, res *ReservationHandler, logger *slog.Logger) *WeatherHandler {
	return &WeatherHandler{client: client, repo: repo, res: res, logger: logger}
}

// Forecast serves /api/weather: the open-meteo hourly forecast for a
// coordinate pair.
func (h *WeatherHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	latitude, errLat := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("latitude")), 64)
	longitude, errLon := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("longitude")), 64)
	if errLat != nil || errLon != nil {
		writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}

	forecast, err := h.client.Hourly(r.Context(), latitude, longitude)
	if err != nil {
		h.logger.Warn("hourly forecast fetch failed", "err", err)
		writeError(w, http.StatusBadGateway, "weather upstream unavailable")
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}

type reservationForecastItem struct {
	Reservation   reservationItem      `json:"reservation"`
	StartForecast *weather.DayForecast `json:"start_forecast"`
	EndForecast   *weather.DayForecast `json:"end_forecast"`
}

// MineWithForecast serves /api/weather/user/reservations-with-forecast:
// the caller's reservations, each annotated with start/end date forecasts.
// Forecast failures degrade to null, they never fail the listing.
func (h *WeatherHandler) MineWithForecast(w http.ResponseWriter, r *http.Request) {
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

	items := make([]reservationForecastItem, 0, len(reservations))
	for _, res := range reservations {
		item := reservationForecastItem{
			Reservation: h.res.reservationToItem(r, res, true),
		}
		if forecast, err := h.client.ForDate(r.Context(), res.From); err == nil {
			item.StartForecast = forecast
		} else {
			h.logger.Warn("start date forecast failed", "reservation_id", res.ID, "err", err)
		}
		if forecast, err := h.client.ForDate(r.Context(), res.To); err == nil {
			item.EndForecast = forecast
		} else {
			h.logger.Warn("end date forecast failed", "reservation_id", res.ID, "err", err)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}
