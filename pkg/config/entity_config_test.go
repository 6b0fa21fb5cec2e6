package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/pulse/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "entities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadEntityConfig_RegistersCustomEntity(t *testing.T) {
	path := writeConfig(t, `
entities:
  - name: Subscription
    fields:
      - plan
      - seats
      - renewal_date
`)

	registry := models.DefaultEntityRegistry()

	err := LoadEntityConfig(path, registry)
	require.NoError(t, err)

	schema, err := registry.Schema("Subscription")
	require.NoError(t, err)
	assert.True(t, schema.HasField("plan"))
	assert.True(t, schema.HasField("renewal_date"))
}

func TestLoadEntityConfig_ExtendsBuiltinEntity(t *testing.T) {
	path := writeConfig(t, `
entities:
  - name: Opportunity
    fields:
      - discount_percent
`)

	registry := models.DefaultEntityRegistry()

	err := LoadEntityConfig(path, registry)
	require.NoError(t, err)

	schema, err := registry.Schema(models.EntityOpportunity)
	require.NoError(t, err)
	assert.True(t, schema.HasField("discount_percent"))
	assert.True(t, schema.HasField("amount"))
}

func TestLoadEntityConfig_RejectsEmptyFieldList(t *testing.T) {
	path := writeConfig(t, `
entities:
  - name: Subscription
    fields: []
`)

	err := LoadEntityConfig(path, models.DefaultEntityRegistry())
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
}

func TestLoadEntityConfig_MissingFile(t *testing.T) {
	err := LoadEntityConfig(filepath.Join(t.TempDir(), "nope.yaml"), models.DefaultEntityRegistry())
	assert.Error(t, err)
}
