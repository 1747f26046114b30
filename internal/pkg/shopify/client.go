package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManuelReschke/LingoFox/internal/pkg/env"
)

const defaultAPIVersion = "2025-07"

var ErrNotConfigured = errors.New("shopify client is not configured")

// GraphQLError carries the top-level errors of a GraphQL response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, ", ")
}

// UserError is a validation error reported inside a mutation payload.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func messages(userErrors []UserError) []string {
	if len(userErrors) == 0 {
		return nil
	}
	out := make([]string, 0, len(userErrors))
	for _, ue := range userErrors {
		out = append(out, ue.Message)
	}
	return out
}

// Client talks to the Admin GraphQL API of one shop.
type Client struct {
	Shop        string
	AccessToken string
	APIVersion  string

	// BaseURL overrides https://{shop} and is used by tests.
	BaseURL string

	HTTPClient *http.Client
}

func NewClient(shop, accessToken string) *Client {
	return &Client{
		Shop:        strings.TrimSpace(shop),
		AccessToken: strings.TrimSpace(accessToken),
		APIVersion:  strings.TrimSpace(env.GetEnv("SHOPIFY_API_VERSION", defaultAPIVersion)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) endpoint() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = "https://" + c.Shop
	}
	return fmt.Sprintf("%s/admin/api/%s/graphql.json", base, c.APIVersion)
}

// Do runs one GraphQL operation and decodes its data object into out.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	if c.Shop == "" || c.AccessToken == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shopify graphql request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("invalid graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		ge := &GraphQLError{}
		for _, e := range envelope.Errors {
			ge.Messages = append(ge.Messages, e.Message)
		}
		return ge
	}
	if out == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}
