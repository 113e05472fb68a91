package client

import (
	"context"
	"net/http"

	apperrors "busline/pkg/errors"
)

// FareClient reads the configured per-kilometer rate from fare management.
type FareClient struct {
	httpClient *HttpClient
}

func NewFareClient(baseURL string) *FareClient {
	return &FareClient{
		httpClient: NewHttpClient(baseURL),
	}
}

// CurrentPerKm returns the first configured rate. A zero value with nil
// error means no rate is configured; callers apply the default.
func (c *FareClient) CurrentPerKm(ctx context.Context) (float64, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/fares/current")
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeUnavailable, "fare service unreachable", http.StatusServiceUnavailable)
	}

	if resp.StatusCode == http.StatusNotFound {
		// No fare table configured yet.
		return 0, nil
	}
	if resp.StatusCode != http.StatusOK {
		return 0, apperrors.Internal("fare service returned "+resp.Status, nil)
	}

	var wrapper struct {
		Data struct {
			FarePerKm float64 `json:"fare_per_km"`
		} `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return 0, apperrors.Internal("could not decode fare response", err)
	}

	return wrapper.Data.FarePerKm, nil
}
