package client

import (
	"github.com/swaggest/openapi-go/openapi3"
)

// We need to make these Vars, because you can not take a pointer of the constant.
var (
	SchemaTypeString openapi3.SchemaType = openapi3.SchemaTypeString
	SchemaTypeArray  openapi3.SchemaType = openapi3.SchemaTypeArray
	SchemaTypeObject openapi3.SchemaType = openapi3.SchemaTypeObject
	SchemaTypeNumber openapi3.SchemaType = openapi3.SchemaTypeNumber
	SchemaTypeInt    openapi3.SchemaType = openapi3.SchemaTypeInteger
	SchemaTypeBool   openapi3.SchemaType = openapi3.SchemaTypeBoolean
)

// CreateSchema returns the component schemas for every payload exchanged
// with the analysis backend.
func CreateSchema() (openapi3.ComponentsSchemas, error) {
	schema := openapi3.ComponentsSchemas{
		MapOfSchemaOrRefValues: map[string]openapi3.SchemaOrRef{},
	}

	schema.MapOfSchemaOrRefValues["report_request"] = openapi3.SchemaOrRef{
		Schema: &openapi3.Schema{
			Type: &SchemaTypeObject,
			Properties: map[string]openapi3.SchemaOrRef{
				"company": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"sector": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"service": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
			},
		},
	}

	schema.MapOfSchemaOrRefValues["report_result"] = openapi3.SchemaOrRef{
		Schema: &openapi3.Schema{
			Type: &SchemaTypeObject,
			Properties: map[string]openapi3.SchemaOrRef{
				"status": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"pdf_path": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"session_id": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
			},
		},
	}

	schema.MapOfSchemaOrRefValues["progress"] = openapi3.SchemaOrRef{
		Schema: &openapi3.Schema{
			Type: &SchemaTypeObject,
			Properties: map[string]openapi3.SchemaOrRef{
				"session_id": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"status": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
						OneOf: []openapi3.SchemaOrRef{
							{
								Schema: &openapi3.Schema{
									Enum: []interface{}{
										"starting",
										"running",
										"completed",
										"error",
									},
								},
							},
						},
					},
				},
				"progress": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeInt,
					},
				},
				"step": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"message": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"phase": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"elapsed_time": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"eta_seconds": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeInt,
					},
				},
				"eta_formatted": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"error": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeBool,
					},
				},
				"warning": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeBool,
					},
				},
				"last_updated": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"company": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"sector": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"service": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
			},
		},
	}

	schema.MapOfSchemaOrRefValues["chart"] = openapi3.SchemaOrRef{
		Schema: &openapi3.Schema{
			Type: &SchemaTypeObject,
			Properties: map[string]openapi3.SchemaOrRef{
				"id": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"title": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"type": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
						OneOf: []openapi3.SchemaOrRef{
							{
								Schema: &openapi3.Schema{
									Enum: []interface{}{
										"line",
										"bar",
										"pie",
										"doughnut",
										"area",
										"scatter",
										"bubble",
										"radar",
										"polarArea",
										"horizontalBar",
										"mixed",
									},
								},
							},
						},
					},
				},
				"labels": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeArray,
						Items: &openapi3.SchemaOrRef{
							Schema: &openapi3.Schema{
								Type: &SchemaTypeString,
							},
						},
					},
				},
				"data": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeArray,
						Items: &openapi3.SchemaOrRef{
							Schema: &openapi3.Schema{
								Type: &SchemaTypeNumber,
							},
						},
					},
				},
				"description": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"insights": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeArray,
						Items: &openapi3.SchemaOrRef{
							Schema: &openapi3.Schema{
								Type: &SchemaTypeString,
							},
						},
					},
				},
			},
		},
	}

	schema.MapOfSchemaOrRefValues["analysis_envelope"] = openapi3.SchemaOrRef{
		Schema: &openapi3.Schema{
			Type: &SchemaTypeObject,
			Properties: map[string]openapi3.SchemaOrRef{
				"success": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeBool,
					},
				},
				"charts": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeArray,
						Items: &openapi3.SchemaOrRef{
							SchemaReference: &openapi3.SchemaReference{
								Ref: "#/components/schemas/chart",
							},
						},
					},
				},
				"analysis_summary": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"raw_data_size": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeInt,
					},
				},
				"processing_time": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeNumber,
					},
				},
				"error": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"error_code": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
				"details": {
					Schema: &openapi3.Schema{
						Type: &SchemaTypeString,
					},
				},
			},
		},
	}

	return schema, nil
}

// BuildSpec assembles the OpenAPI document describing the backend surface
// this client consumes.
func BuildSpec() (openapi3.Spec, error) {
	schemas, err := CreateSchema()
	if err != nil {
		return openapi3.Spec{}, err
	}
	sc := openapi3.Spec{
		Components: &openapi3.Components{
			Schemas: &schemas,
		},
		Openapi: "3.0.0",
		Info: openapi3.Info{
			Title:   "Opportuna Analysis API",
			Version: "1.0.0",
		},
	}
	return sc, nil
}
