package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	apperrors "busline/pkg/errors"
	"busline/pkg/model"
)

// TripClient reads scheduled departures from trip management. This service
// never writes trip data; capacity, layout and route facts are reference
// input only.
type TripClient struct {
	httpClient *HttpClient
}

func NewTripClient(baseURL string) *TripClient {
	return &TripClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *TripClient) GetByID(ctx context.Context, tripID string) (*model.TripInfo, error) {
	path := "/api/v1/trips/id/" + url.PathEscape(tripID)

	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "trip service unreachable", http.StatusServiceUnavailable)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperrors.NotFoundWithID("Trip", tripID)
	default:
		return nil, apperrors.Internal(
			fmt.Sprintf("trip service returned %d: %s", resp.StatusCode, GetErrorMessage(resp)), nil)
	}

	var wrapper struct {
		Data model.TripInfo `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, apperrors.Internal("could not decode trip response", err)
	}

	return &wrapper.Data, nil
}
