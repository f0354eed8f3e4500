package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestReadDoc(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	var doc struct {
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.Equal(t, "/api", doc.BasePath)
	assert.Contains(t, doc.Paths, "/transactions")
	assert.Contains(t, doc.Paths["/admin/users/{id}/role"], "put")
}
