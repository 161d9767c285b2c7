package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	openMeteoURL  = "https://api.open-meteo.com/v1/forecast"
	weatherAPIURL = "http://api.weatherapi.com/v1/future.json"
)

// Client wraps the two upstream weather providers: open-meteo for the
// hourly forecast passthrough and weatherapi.com for per-date forecasts
// attached to reservations.
type Client struct {
	httpClient *http.Client
	apiKey     string
	location   string
}

type Config struct {
	APIKey   string
	Location string
	Timeout  time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Location == "" {
		cfg.Location = "Cracow"
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		apiKey:   cfg.APIKey,
		location: cfg.Location,
	}
}

// HourlyForecast is the open-meteo response, passed through as-is.
type HourlyForecast struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Hourly    struct {
		Time             []string  `json:"time"`
		Temperature2m    []float64 `json:"temperature_2m"`
		RelativeHumidity []float64 `json:"relative_humidity_2m"`
		WindSpeed10m     []float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}

func (c *Client) Hourly(ctx context.Context, latitude, longitude float64) (*HourlyForecast, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%f", latitude))
	q.Set("longitude", fmt.Sprintf("%f", longitude))
	q.Set("hourly", "temperature_2m,relative_humidity_2m,wind_speed_10m")
	q.Set("timezone", "auto")

	var forecast HourlyForecast
	if err := c.getJSON(ctx, openMeteoURL+"?"+q.Encode(), &forecast); err != nil {
		return nil, err
	}
	return &forecast, nil
}

// DayForecast is the condensed weatherapi.com forecast for one date.
type DayForecast struct {
	MaxTempC  float64 `json:"max_temp_c"`
	MinTempC  float64 `json:"min_temp_c"`
	Condition string  `json:"condition"`
}

type futureResponse struct {
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC  float64 `json:"maxtemp_c"`
				MinTempC  float64 `json:"mintemp_c"`
				Condition struct {
					Text string `json:"text"`
				} `json:"condition"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func (c *Client) ForDate(ctx context.Context, date time.Time) (*DayForecast, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("weather api key not configured")
	}
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", c.location)
	q.Set("dt", date.Format("2006-01-02"))

	var resp futureResponse
	if err := c.getJSON(ctx, weatherAPIURL+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Forecast.ForecastDay) == 0 {
		return nil, fmt.Errorf("no forecast for %s", date.Format("2006-01-02"))
	}
	day := resp.Forecast.ForecastDay[0].Day
	return &DayForecast{
		MaxTempC:  day.MaxTempC,
		MinTempC:  day.MinTempC,
		Condition: day.Condition.Text,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weather upstream returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
