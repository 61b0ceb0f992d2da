// Package taskspec validates and decodes incoming task specifications at the
// trigger boundary. Raw JSON is checked against a schema before decoding;
// decoded structs are checked with struct validation.
package taskspec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/renderstack/maestro/pkg/models"
)

// ErrInvalidSpec wraps every validation failure of an incoming spec.
var ErrInvalidSpec = errors.New("invalid task specification")

const schema = `{
	"type": "object",
	"required": ["engine", "description"],
	"properties": {
		"engine": {"type": "string", "minLength": 1},
		"description": {"type": "string", "minLength": 1},
		"style": {"type": "string"},
		"quality": {"type": "string"},
		"resolution": {"type": "string"},
		"fps": {"type": "integer", "minimum": 1},
		"duration": {"type": "integer", "minimum": 1},
		"assets": {"type": "array", "items": {"type": "string"}},
		"templates": {"type": "array", "items": {"type": "string"}},
		"parameters": {"type": "object"}
	},
	"additionalProperties": false
}`

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse validates raw JSON against the task specification schema and decodes
// it. Schema violations are collected into one error.
func Parse(raw []byte) (*models.TaskSpecification, error) {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	dataLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidSpec, strings.Join(details, "; "))
	}

	var spec models.TaskSpecification
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}

	if err := Check(&spec); err != nil {
		return nil, err
	}

	return &spec, nil
}

// Check runs struct validation on an already-decoded specification.
func Check(spec *models.TaskSpecification) error {
	if err := validate.Struct(spec); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}

	return nil
}

// FromText wraps a free-text description into a minimal specification for
// the given engine.
func FromText(engine, text string) *models.TaskSpecification {
	return &models.TaskSpecification{
		Engine:      engine,
		Description: text,
	}
}
