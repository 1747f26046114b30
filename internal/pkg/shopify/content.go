package shopify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuelReschke/LingoFox/app/models"
)

var (
	ErrResourceNotFound    = errors.New("resource not found")
	ErrUnsupportedResource = errors.New("Unsupported resource type")
)

const DefaultListLimit = 50

// Field is one translatable value of a resource.
type Field struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

// Resource is a translatable store object with its source texts.
type Resource struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// FieldValue returns the source text of field, or "".
func (r *Resource) FieldValue(field string) string {
	for _, f := range r.Fields {
		if f.Field == field {
			return f.Value
		}
	}
	return ""
}

type metafieldNode struct {
	Key       string `json:"key"`
	Namespace string `json:"namespace"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

type contentNode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Body        string `json:"body"`
	Handle      string `json:"handle"`
	Metafields  *struct {
		Edges []struct {
			Node metafieldNode `json:"node"`
		} `json:"edges"`
	} `json:"metafields"`
}

func (n contentNode) resource(resourceType string) Resource {
	r := Resource{ID: n.ID, Type: resourceType, Title: n.Title}
	switch resourceType {
	case models.ResourceTypePage:
		r.Fields = []Field{
			{Field: "title", Value: n.Title, Type: "text"},
			{Field: "body", Value: n.Body, Type: "html"},
			{Field: "handle", Value: n.Handle, Type: "text"},
		}
	default:
		r.Fields = []Field{
			{Field: "title", Value: n.Title, Type: "text"},
			{Field: "description", Value: n.Description, Type: "html"},
			{Field: "handle", Value: n.Handle, Type: "text"},
		}
	}
	if n.Metafields != nil {
		for _, e := range n.Metafields.Edges {
			typ := "html"
			if e.Node.Type == "single_line_text_field" {
				typ = "text"
			}
			r.Fields = append(r.Fields, Field{
				Field: fmt.Sprintf("metafield.%s.%s", e.Node.Namespace, e.Node.Key),
				Value: e.Node.Value,
				Type:  typ,
			})
		}
	}
	return r
}

const productQuery = `query getProduct($id: ID!) {
  product(id: $id) {
    id
    title
    description
    handle
    metafields(first: 50) {
      edges { node { id key namespace value type } }
    }
  }
}`

const productsQuery = `query getProducts($first: Int!) {
  products(first: $first) {
    edges { node { id title description handle } }
  }
}`

const collectionQuery = `query getCollection($id: ID!) {
  collection(id: $id) { id title description handle }
}`

const collectionsQuery = `query getCollections($first: Int!) {
  collections(first: $first) {
    edges { node { id title description handle } }
  }
}`

const pageQuery = `query getPage($id: ID!) {
  page(id: $id) { id title body handle }
}`

const pagesQuery = `query getPages($first: Int!) {
  pages(first: $first) {
    edges { node { id title body handle } }
  }
}`

func (c *Client) fetchOne(ctx context.Context, query, root, resourceType, id string) (*Resource, error) {
	var data map[string]*contentNode
	if err := c.Do(ctx, query, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	node := data[root]
	if node == nil {
		return nil, ErrResourceNotFound
	}
	r := node.resource(resourceType)
	return &r, nil
}

func (c *Client) fetchList(ctx context.Context, query, root, resourceType string, limit int) ([]Resource, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var data map[string]*struct {
		Edges []struct {
			Node contentNode `json:"node"`
		} `json:"edges"`
	}
	if err := c.Do(ctx, query, map[string]any{"first": limit}, &data); err != nil {
		return nil, err
	}
	conn := data[root]
	if conn == nil {
		return []Resource{}, nil
	}
	out := make([]Resource, 0, len(conn.Edges))
	for _, e := range conn.Edges {
		out = append(out, e.Node.resource(resourceType))
	}
	return out, nil
}

func (c *Client) FetchProduct(ctx context.Context, id string) (*Resource, error) {
	return c.fetchOne(ctx, productQuery, "product", models.ResourceTypeProduct, id)
}

func (c *Client) FetchProducts(ctx context.Context, limit int) ([]Resource, error) {
	return c.fetchList(ctx, productsQuery, "products", models.ResourceTypeProduct, limit)
}

func (c *Client) FetchCollection(ctx context.Context, id string) (*Resource, error) {
	return c.fetchOne(ctx, collectionQuery, "collection", models.ResourceTypeCollection, id)
}

func (c *Client) FetchCollections(ctx context.Context, limit int) ([]Resource, error) {
	return c.fetchList(ctx, collectionsQuery, "collections", models.ResourceTypeCollection, limit)
}

func (c *Client) FetchPage(ctx context.Context, id string) (*Resource, error) {
	return c.fetchOne(ctx, pageQuery, "page", models.ResourceTypePage, id)
}

func (c *Client) FetchPages(ctx context.Context, limit int) ([]Resource, error) {
	return c.fetchList(ctx, pagesQuery, "pages", models.ResourceTypePage, limit)
}

// FetchResource dispatches on resource type.
func (c *Client) FetchResource(ctx context.Context, resourceType, id string) (*Resource, error) {
	switch resourceType {
	case models.ResourceTypeProduct:
		return c.FetchProduct(ctx, id)
	case models.ResourceTypeCollection:
		return c.FetchCollection(ctx, id)
	case models.ResourceTypePage:
		return c.FetchPage(ctx, id)
	default:
		return nil, ErrUnsupportedResource
	}
}

// ListResources returns the first limit resources of a type.
func (c *Client) ListResources(ctx context.Context, resourceType string, limit int) ([]Resource, error) {
	switch resourceType {
	case models.ResourceTypeProduct:
		return c.FetchProducts(ctx, limit)
	case models.ResourceTypeCollection:
		return c.FetchCollections(ctx, limit)
	case models.ResourceTypePage:
		return c.FetchPages(ctx, limit)
	default:
		return nil, ErrUnsupportedResource
	}
}

const productUpdateMutation = `mutation productUpdate($input: ProductInput!) {
  productUpdate(input: $input) {
    product { id title }
    userErrors { field message }
  }
}`

const collectionUpdateMutation = `mutation collectionUpdate($input: CollectionInput!) {
  collectionUpdate(input: $input) {
    collection { id title }
    userErrors { field message }
  }
}`

const pageUpdateMutation = `mutation pageUpdate($id: ID!, $page: PageInput!) {
  pageUpdate(id: $id, page: $page) {
    page { id title }
    userErrors { field message }
  }
}`

func withID(id string, fields map[string]string) map[string]any {
	input := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		input[k] = v
	}
	input["id"] = id
	return input
}

func (c *Client) runUpdate(ctx context.Context, mutation, root string, vars map[string]any) ([]string, error) {
	var data map[string]*struct {
		UserErrors []UserError `json:"userErrors"`
	}
	if err := c.Do(ctx, mutation, vars, &data); err != nil {
		return nil, err
	}
	if payload := data[root]; payload != nil {
		return messages(payload.UserErrors), nil
	}
	return nil, nil
}

// UpdateProduct writes translated fields to a product.
func (c *Client) UpdateProduct(ctx context.Context, id string, fields map[string]string) ([]string, error) {
	return c.runUpdate(ctx, productUpdateMutation, "productUpdate", map[string]any{"input": withID(id, fields)})
}

func (c *Client) UpdateCollection(ctx context.Context, id string, fields map[string]string) ([]string, error) {
	return c.runUpdate(ctx, collectionUpdateMutation, "collectionUpdate", map[string]any{"input": withID(id, fields)})
}

func (c *Client) UpdatePage(ctx context.Context, id string, fields map[string]string) ([]string, error) {
	page := make(map[string]any, len(fields))
	for k, v := range fields {
		page[k] = v
	}
	return c.runUpdate(ctx, pageUpdateMutation, "pageUpdate", map[string]any{"id": id, "page": page})
}
