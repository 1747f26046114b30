// Package apidocs embeds the OpenAPI document of the v1 JSON API.
package apidocs

import (
	"context"
	_ "embed"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yml
var Spec []byte

// Load parses the embedded document.
func Load() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	return loader.LoadFromData(Spec)
}

// Validate parses the embedded document and checks it against OpenAPI 3.
func Validate(ctx context.Context) (*openapi3.T, error) {
	doc, err := Load()
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	return doc, nil
}
