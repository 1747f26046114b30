package billing

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidPlan     = errors.New("Invalid plan")
	ErrNoSubscription  = errors.New("No active subscription")
	ErrShopRequired    = errors.New("shop is required")
	errCreateFailedMsg = "Failed to create subscription"
	errCancelFailedMsg = "Failed to cancel subscription"
)

// ErrReplacedSubscription marks webhook deliveries for a charge that is
// neither the current nor the pending one of the shop.
var ErrReplacedSubscription = errors.New("subscription was replaced")

// Gateway is the narrow view of the Shopify Billing API used by the service.
type Gateway interface {
	CreateAppSubscription(ctx context.Context, req CreateSubscriptionRequest) (*CreateSubscriptionResult, error)
	GetAppSubscription(ctx context.Context, id string) (*AppSubscription, error)
	CancelAppSubscription(ctx context.Context, id string) (*CancelSubscriptionResult, error)
}

type CreateSubscriptionRequest struct {
	Name      string
	Price     float64
	Currency  string
	Interval  string
	TrialDays int
	ReturnURL string
	Test      bool
}

// AppSubscription is the remote subscription as reported by Shopify.
type AppSubscription struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
}

type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type CreateSubscriptionResult struct {
	Subscription    *AppSubscription
	ConfirmationURL string
	UserErrors      []UserError
}

type CancelSubscriptionResult struct {
	Subscription *AppSubscription
	UserErrors   []UserError
}

// ExternalError carries the messages returned by the remote system verbatim.
type ExternalError struct {
	Messages []string
}

func (e *ExternalError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// NewExternalError joins user error messages, falling back to fallback when
// the remote system returned none.
func NewExternalError(userErrors []UserError, fallback string) *ExternalError {
	msgs := make([]string, 0, len(userErrors))
	for _, ue := range userErrors {
		if m := strings.TrimSpace(ue.Message); m != "" {
			msgs = append(msgs, m)
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, fallback)
	}
	return &ExternalError{Messages: msgs}
}

// SubscriptionWebhook is the decoded app_subscriptions/update payload.
type SubscriptionWebhook struct {
	AdminGraphqlAPIID  string
	Name               string
	Status             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Shop           string
	Topic          string
	WebhookID      string
	PayloadJSON    string
	SignatureValid bool
}
