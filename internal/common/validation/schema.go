package validation

import (
	"github.com/xeipuuv/gojsonschema"
)

// ValidationResult carries the outcome of a schema check.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// classifierReplySchema constrains the JSON object a remote classifier may
// return. Scalar fields may arrive as strings or numbers (they are coerced
// later); arrays and nested objects are rejected outright. Unknown keys are
// ignored, matching the tolerant parse of the deterministic path.
var classifierReplySchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"intent"},
	"properties": map[string]interface{}{
		"intent": map[string]interface{}{
			"type": "string",
		},
		"date": map[string]interface{}{
			"type": []interface{}{"string", "number", "null"},
		},
		"section": map[string]interface{}{
			"type": []interface{}{"string", "number", "null"},
		},
		"session": map[string]interface{}{
			"type": []interface{}{"string", "null"},
		},
		"status": map[string]interface{}{
			"type": []interface{}{"string", "null"},
		},
		"roll_no": map[string]interface{}{
			"type": []interface{}{"string", "number", "null"},
		},
		"student_name": map[string]interface{}{
			"type": []interface{}{"string", "number", "null"},
		},
		"days": map[string]interface{}{
			"type": []interface{}{"integer", "number", "string", "null"},
		},
	},
	"additionalProperties": true,
}

// ClassifierReplySchema returns the schema document for the remote
// classifier's JSON reply.
func ClassifierReplySchema() map[string]interface{} {
	return classifierReplySchema
}

// ValidateClassifierReply checks a decoded remote reply against the
// ParameterSet schema.
func ValidateClassifierReply(doc map[string]interface{}) *ValidationResult {
	schemaLoader := gojsonschema.NewGoLoader(classifierReplySchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "", Message: err.Error()}},
		}
	}

	if !result.Valid() {
		errs := make([]ValidationError, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			errs = append(errs, ValidationError{
				Field:   desc.Field(),
				Message: desc.Description(),
			})
		}
		return &ValidationResult{Valid: false, Errors: errs}
	}

	return &ValidationResult{Valid: true}
}
