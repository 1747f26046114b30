package shopify

import (
	"context"
	"time"

	"github.com/ManuelReschke/LingoFox/internal/pkg/billing"
)

const appSubscriptionCreateMutation = `mutation appSubscriptionCreate($name: String!, $lineItems: [AppSubscriptionLineItemInput!]!, $returnUrl: URL!, $trialDays: Int, $test: Boolean) {
  appSubscriptionCreate(name: $name, lineItems: $lineItems, returnUrl: $returnUrl, trialDays: $trialDays, test: $test) {
    appSubscription { id name status currentPeriodEnd }
    confirmationUrl
    userErrors { field message }
  }
}`

const appSubscriptionQuery = `query appSubscription($id: ID!) {
  node(id: $id) {
    ... on AppSubscription { id name status currentPeriodEnd }
  }
}`

const appSubscriptionCancelMutation = `mutation appSubscriptionCancel($id: ID!) {
  appSubscriptionCancel(id: $id) {
    appSubscription { id name status }
    userErrors { field message }
  }
}`

type appSubscriptionNode struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd"`
}

func (n *appSubscriptionNode) toBilling() *billing.AppSubscription {
	if n == nil || n.ID == "" {
		return nil
	}
	out := &billing.AppSubscription{ID: n.ID, Name: n.Name, Status: n.Status}
	if n.CurrentPeriodEnd != nil {
		end := n.CurrentPeriodEnd.UTC()
		out.CurrentPeriodEnd = &end
	}
	return out
}

func toBillingErrors(in []UserError) []billing.UserError {
	out := make([]billing.UserError, 0, len(in))
	for _, ue := range in {
		out = append(out, billing.UserError{Field: ue.Field, Message: ue.Message})
	}
	return out
}

func (c *Client) CreateAppSubscription(ctx context.Context, req billing.CreateSubscriptionRequest) (*billing.CreateSubscriptionResult, error) {
	vars := map[string]any{
		"name":      req.Name,
		"returnUrl": req.ReturnURL,
		"test":      req.Test,
		"lineItems": []map[string]any{{
			"plan": map[string]any{
				"appRecurringPricingDetails": map[string]any{
					"price":    map[string]any{"amount": req.Price, "currencyCode": req.Currency},
					"interval": req.Interval,
				},
			},
		}},
	}
	if req.TrialDays > 0 {
		vars["trialDays"] = req.TrialDays
	}

	var data struct {
		AppSubscriptionCreate *struct {
			AppSubscription *appSubscriptionNode `json:"appSubscription"`
			ConfirmationURL string               `json:"confirmationUrl"`
			UserErrors      []UserError          `json:"userErrors"`
		} `json:"appSubscriptionCreate"`
	}
	if err := c.Do(ctx, appSubscriptionCreateMutation, vars, &data); err != nil {
		return nil, err
	}
	res := &billing.CreateSubscriptionResult{}
	if p := data.AppSubscriptionCreate; p != nil {
		res.Subscription = p.AppSubscription.toBilling()
		res.ConfirmationURL = p.ConfirmationURL
		res.UserErrors = toBillingErrors(p.UserErrors)
	}
	return res, nil
}

func (c *Client) GetAppSubscription(ctx context.Context, id string) (*billing.AppSubscription, error) {
	var data struct {
		Node *appSubscriptionNode `json:"node"`
	}
	if err := c.Do(ctx, appSubscriptionQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	return data.Node.toBilling(), nil
}

func (c *Client) CancelAppSubscription(ctx context.Context, id string) (*billing.CancelSubscriptionResult, error) {
	var data struct {
		AppSubscriptionCancel *struct {
			AppSubscription *appSubscriptionNode `json:"appSubscription"`
			UserErrors      []UserError          `json:"userErrors"`
		} `json:"appSubscriptionCancel"`
	}
	if err := c.Do(ctx, appSubscriptionCancelMutation, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	res := &billing.CancelSubscriptionResult{}
	if p := data.AppSubscriptionCancel; p != nil {
		res.Subscription = p.AppSubscription.toBilling()
		res.UserErrors = toBillingErrors(p.UserErrors)
	}
	return res, nil
}

var _ billing.Gateway = (*Client)(nil)
