package apiv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apidocs "github.com/ManuelReschke/LingoFox/public/docs/v1"
)

func TestRoutesAreDocumented(t *testing.T) {
	doc, err := apidocs.Load()
	require.NoError(t, err)

	for _, r := range Routes {
		item := doc.Paths.Find(r.Path)
		if !assert.NotNil(t, item, "path %s", r.Path) {
			continue
		}
		assert.NotNil(t, item.GetOperation(r.Method), "%s %s", r.Method, r.Path)
	}
	assert.Equal(t, len(Routes), doc.Paths.Len())
}
