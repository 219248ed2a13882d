package client

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSchema(t *testing.T) {
	schema, err := CreateSchema()
	require.NoError(t, err)

	for _, name := range []string{
		"report_request",
		"report_result",
		"progress",
		"chart",
		"analysis_envelope",
	} {
		assert.Contains(t, schema.MapOfSchemaOrRefValues, name)
	}

	chartType := schema.MapOfSchemaOrRefValues["chart"].Schema.Properties["type"]
	require.Len(t, chartType.Schema.OneOf, 1)
	assert.Len(t, chartType.Schema.OneOf[0].Schema.Enum, 11)

	status := schema.MapOfSchemaOrRefValues["progress"].Schema.Properties["status"]
	require.Len(t, status.Schema.OneOf, 1)
	assert.Equal(t, []interface{}{"starting", "running", "completed", "error"},
		status.Schema.OneOf[0].Schema.Enum)

	charts := schema.MapOfSchemaOrRefValues["analysis_envelope"].Schema.Properties["charts"]
	assert.Equal(t, "#/components/schemas/chart", charts.Schema.Items.SchemaReference.Ref)
}

func TestBuildSpec(t *testing.T) {
	spec, err := BuildSpec()
	require.NoError(t, err)

	assert.Equal(t, "3.0.0", spec.Openapi)
	assert.Equal(t, "Opportuna Analysis API", spec.Info.Title)
	assert.Equal(t, "1.0.0", spec.Info.Version)

	b, err := json.Marshal(spec)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"analysis_envelope"`)
	assert.Contains(t, string(b), `"#/components/schemas/chart"`)
}
