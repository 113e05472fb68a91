package payment

import (
	"context"
	"net/http"
	"strings"

	"busline/pkg/client"
	apperrors "busline/pkg/errors"
	"busline/pkg/logger"

	"github.com/google/uuid"
)

// AuthorizationRequest carries everything the gateway needs to charge a card.
// The CVV lives only in this struct for the duration of the call.
type AuthorizationRequest struct {
	CardHolderName string  `json:"card_holder_name"`
	CardNumber     string  `json:"card_number"`
	ExpiryDate     string  `json:"expiry_date"`
	CVV            string  `json:"cvv"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Description    string  `json:"description"`
}

// Authorization is the gateway's verdict. Reason is only set on decline.
type Authorization struct {
	Approved      bool   `json:"approved"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason,omitempty"`
}

// Authorizer charges a card before any booking state is written. A declined
// authorization must leave the system exactly as it was.
type Authorizer interface {
	Authorize(ctx context.Context, req AuthorizationRequest) (*Authorization, error)
}

// HTTPAuthorizer calls an external payment gateway.
type HTTPAuthorizer struct {
	http *client.HttpClient
	log  *logger.Logger
}

func NewHTTPAuthorizer(baseURL string, log *logger.Logger) *HTTPAuthorizer {
	return &HTTPAuthorizer{
		http: client.NewHttpClient(baseURL),
		log:  log,
	}
}

func (a *HTTPAuthorizer) Authorize(ctx context.Context, req AuthorizationRequest) (*Authorization, error) {
	resp, err := a.http.POST(ctx, "/api/v1/authorize", req)
	if err != nil {
		return nil, apperrors.Internal("Payment gateway unreachable", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusPaymentRequired:
		var auth Authorization
		if err := resp.DecodeJSON(&auth); err != nil {
			return nil, apperrors.Internal("Invalid payment gateway response", err)
		}
		return &auth, nil
	default:
		a.log.Error("Payment gateway returned unexpected status",
			"status", resp.StatusCode,
			"message", client.GetErrorMessage(resp),
		)
		return nil, apperrors.Internal("Payment gateway error", nil)
	}
}

// AutoApproveAuthorizer approves every charge with a fresh transaction id.
// Used when no gateway is configured, e.g. locally and in demos.
type AutoApproveAuthorizer struct{}

func (AutoApproveAuthorizer) Authorize(_ context.Context, _ AuthorizationRequest) (*Authorization, error) {
	return &Authorization{
		Approved:      true,
		TransactionID: uuid.New().String(),
	}, nil
}

// MaskCardNumber replaces all but the last four characters with '*', keeping
// the original length so receipts line up with what the customer typed.
func MaskCardNumber(cardNumber string) string {
	if len(cardNumber) <= 4 {
		return cardNumber
	}
	return strings.Repeat("*", len(cardNumber)-4) + cardNumber[len(cardNumber)-4:]
}
