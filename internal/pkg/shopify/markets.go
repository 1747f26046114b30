package shopify

import "context"

// Market is a Shopify market as returned by the Admin API.
type Market struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

const marketsQuery = `query getMarkets {
  markets(first: 50) {
    edges { node { id name enabled } }
  }
}`

const marketQuery = `query getMarket($id: ID!) {
  market(id: $id) { id name enabled }
}`

func (c *Client) FetchMarkets(ctx context.Context) ([]Market, error) {
	var data struct {
		Markets *struct {
			Edges []struct {
				Node Market `json:"node"`
			} `json:"edges"`
		} `json:"markets"`
	}
	if err := c.Do(ctx, marketsQuery, nil, &data); err != nil {
		return nil, err
	}
	if data.Markets == nil {
		return []Market{}, nil
	}
	out := make([]Market, 0, len(data.Markets.Edges))
	for _, e := range data.Markets.Edges {
		out = append(out, e.Node)
	}
	return out, nil
}

// GetMarket returns nil without error when the market does not exist.
func (c *Client) GetMarket(ctx context.Context, id string) (*Market, error) {
	var data struct {
		Market *Market `json:"market"`
	}
	if err := c.Do(ctx, marketQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	return data.Market, nil
}
