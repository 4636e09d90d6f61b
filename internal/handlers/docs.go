package handlers

import (
	"encoding/json"
	"net/http"
)

func schemaRef(name string) map[string]string {
	return map[string]string{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{"schema": schema},
	}
}

func errorResponse(description string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content":     jsonContent(schemaRef("Error")),
	}
}

func numberArray() map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": map[string]string{"type": "number"}}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the battery platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       apiTitle,
			"description": "Cycle life simulation and electrode process impact estimation for battery materials",
			"version":     apiVersion,
			"contact": map[string]string{
				"name": "Battery Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/profiles": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List degradation profiles",
					"description": "Named test samples with their fixed decay rates",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": jsonContent(map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"data":  map[string]interface{}{"type": "array", "items": schemaRef("Profile")},
									"total": map[string]string{"type": "integer"},
								},
							}),
						},
					},
				},
			},
			"/api/cycle-life": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Simulate a cycle life curve",
					"description": "Generates capacity retention and coulombic efficiency per cycle and derives end of life at 80% of initial capacity. Pass the returned seed to reproduce a curve.",
					"requestBody": map[string]interface{}{
						"required": false,
						"content":  jsonContent(schemaRef("CycleLifeRequest")),
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Simulated curve",
							"content":     jsonContent(schemaRef("CycleLifeReport")),
						},
						"400": errorResponse("Invalid profile, decay rate, capacity or cycle count"),
					},
				},
			},
			"/api/impact": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Estimate process impact",
					"description": "CO2, drying energy and VOC per square metre of electrode, compared against the NMP baseline",
					"parameters": []map[string]interface{}{
						{
							"name":        "method",
							"in":          "query",
							"description": "Estimator to use (default: rules)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "string", "enum": []string{"rules", "surrogate"}, "default": "rules"},
						},
					},
					"requestBody": map[string]interface{}{
						"required": true,
						"content":  jsonContent(schemaRef("ImpactRequest")),
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Estimate with baseline comparison",
							"content":     jsonContent(schemaRef("ImpactReport")),
						},
						"400": errorResponse("Invalid solvent, method or numeric input"),
						"422": errorResponse("Binder and solvent cannot form a slurry"),
						"503": errorResponse("Surrogate estimator not available"),
					},
				},
			},
			"/api/validation/samples": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List validation samples",
					"description": "Samples with ingested experimental comparison data",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": jsonContent(map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"data": map[string]interface{}{
										"type": "array",
										"items": map[string]interface{}{
											"type": "object",
											"properties": map[string]interface{}{
												"sample_id":         map[string]string{"type": "string"},
												"history_points":    map[string]string{"type": "integer"},
												"prediction_points": map[string]string{"type": "integer"},
												"max_cycle":         map[string]string{"type": "integer"},
											},
										},
									},
									"total": map[string]string{"type": "integer"},
								},
							}),
						},
						"404": errorResponse("No data available"),
					},
				},
			},
			"/api/validation/samples/{sample_id}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Compare history and prediction for a sample",
					"description": "Measured and predicted capacity aligned by cycle, with RMSE over matched cycles",
					"parameters": []map[string]interface{}{
						{
							"name":     "sample_id",
							"in":       "path",
							"required": true,
							"schema":   map[string]string{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Sample comparison",
							"content": jsonContent(map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"sample_id":      map[string]string{"type": "string"},
									"history":        map[string]string{"type": "array"},
									"prediction":     map[string]string{"type": "array"},
									"points":         map[string]string{"type": "array"},
									"matched_cycles": map[string]string{"type": "integer"},
									"rmse":           map[string]interface{}{"type": "number", "nullable": true},
									"max_abs_error":  map[string]interface{}{"type": "number", "nullable": true},
								},
							}),
						},
						"404": errorResponse("No data available"),
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API and its database are usable",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "API is healthy",
							"content": jsonContent(map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"status":    map[string]string{"type": "string"},
									"surrogate": map[string]string{"type": "boolean"},
									"baseline":  map[string]string{"type": "string"},
								},
							}),
						},
						"503": map[string]string{"description": "Database unreachable"},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
						"field":   map[string]string{"type": "string"},
						"reason":  map[string]string{"type": "string"},
					},
				},
				"Profile": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"name":       map[string]string{"type": "string"},
						"label":      map[string]string{"type": "string"},
						"sample":     map[string]string{"type": "string"},
						"binder":     map[string]string{"type": "string"},
						"stability":  map[string]string{"type": "string"},
						"decay_rate": map[string]string{"type": "number"},
					},
				},
				"CycleLifeRequest": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"profile":          map[string]interface{}{"type": "string", "example": "normal"},
						"decay_rate":       map[string]string{"type": "number"},
						"initial_capacity": map[string]interface{}{"type": "number", "default": 1.0},
						"cycles":           map[string]interface{}{"type": "integer", "default": 1000},
						"seed":             map[string]string{"type": "integer"},
					},
				},
				"CycleLifeReport": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"profile":         map[string]string{"type": "string"},
						"seed":            map[string]string{"type": "integer"},
						"efficiency_rule": map[string]string{"type": "string"},
						"input_cycles":    map[string]string{"type": "integer"},
						"prediction": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"cycle_index":          map[string]interface{}{"type": "array", "items": map[string]string{"type": "integer"}},
								"capacity":             numberArray(),
								"coulombic_efficiency": numberArray(),
								"decay_rate":           map[string]string{"type": "number"},
								"initial_capacity":     map[string]string{"type": "number"},
							},
						},
						"end_of_life": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"threshold": map[string]string{"type": "number"},
								"reached":   map[string]string{"type": "boolean"},
								"cycle":     map[string]string{"type": "integer"},
								"index":     map[string]string{"type": "integer"},
							},
						},
						"message": map[string]string{"type": "string"},
						"summary": map[string]string{"type": "object"},
					},
				},
				"ImpactRequest": map[string]interface{}{
					"type":     "object",
					"required": []string{"binder_type", "solvent_type"},
					"properties": map[string]interface{}{
						"binder_type":     map[string]interface{}{"type": "string", "example": "CMGG"},
						"solvent_type":    map[string]interface{}{"type": "string", "enum": []string{"NMP", "Water"}},
						"drying_temp_c":   map[string]interface{}{"type": "number", "example": 100},
						"drying_time_min": map[string]interface{}{"type": "number", "example": 60},
						"loading_mass":    map[string]interface{}{"type": "number", "example": 20},
					},
				},
				"ImpactReport": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"condition": schemaRef("ImpactRequest"),
						"estimate": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"co2_kg_per_m2":     map[string]string{"type": "number"},
								"energy_kwh_per_m2": map[string]string{"type": "number"},
								"voc_g_per_m2":      map[string]string{"type": "number"},
								"co2_level":         map[string]string{"type": "string"},
								"voc_level":         map[string]string{"type": "string"},
								"method":            map[string]string{"type": "string"},
							},
						},
						"baseline": map[string]string{"type": "object"},
						"delta": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"co2_pct":    map[string]interface{}{"type": "number", "nullable": true},
								"energy_pct": map[string]interface{}{"type": "number", "nullable": true},
								"voc_pct":    map[string]interface{}{"type": "number", "nullable": true},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
