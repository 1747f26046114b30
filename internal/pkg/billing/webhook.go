package billing

import (
	"encoding/json"
	"strings"
	"time"
)

type rawSubscriptionPayload struct {
	AdminGraphqlAPIID  string  `json:"admin_graphql_api_id"`
	Name               string  `json:"name"`
	Status             string  `json:"status"`
	CurrentPeriodStart *string `json:"current_period_start"`
	CurrentPeriodEnd   *string `json:"current_period_end"`
}

// ParseSubscriptionWebhook decodes an app_subscriptions/update body. Shopify
// nests the fields under "app_subscription"; flat payloads are accepted too.
func ParseSubscriptionWebhook(payload []byte) (SubscriptionWebhook, error) {
	var envelope struct {
		AppSubscription *rawSubscriptionPayload `json:"app_subscription"`
		rawSubscriptionPayload
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return SubscriptionWebhook{}, err
	}

	raw := envelope.rawSubscriptionPayload
	if envelope.AppSubscription != nil {
		raw = *envelope.AppSubscription
	}

	return SubscriptionWebhook{
		AdminGraphqlAPIID:  strings.TrimSpace(raw.AdminGraphqlAPIID),
		Name:               strings.TrimSpace(raw.Name),
		Status:             strings.TrimSpace(raw.Status),
		CurrentPeriodStart: parseWebhookTime(raw.CurrentPeriodStart),
		CurrentPeriodEnd:   parseWebhookTime(raw.CurrentPeriodEnd),
	}, nil
}

func parseWebhookTime(v *string) *time.Time {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*v))
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
