package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrUserNotFound = errors.New("user not found")

// httpProvider calls user-service's directory endpoint.
type httpProvider struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPProvider(baseURL string, timeout time.Duration, logger *slog.Logger) Provider {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &httpProvider{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

func (p *httpProvider) UserEmail(ctx context.Context, userID string) (string, error) {
	if p.baseURL == "" {
		return "", errors.New("user directory not configured")
	}

	endpoint := fmt.Sprintf("%s/api/auth/users/%s/email", p.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user directory returned status %d", resp.StatusCode)
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.Email == "" {
		return "", ErrUserNotFound
	}
	return body.Email, nil
}
