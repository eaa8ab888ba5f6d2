package session

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// stateSchema describes the structure every state.json must satisfy.
const stateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["schema_version", "id", "task", "phase", "iteration", "status",
               "created_at", "updated_at", "history", "phase_outputs", "metadata", "transitions"],
  "properties": {
    "schema_version": {"type": "integer", "minimum": 1},
    "id": {"type": "string", "minLength": 1},
    "task": {"type": "string", "minLength": 1},
    "project_root": {"type": "string"},
    "phase": {"type": "string", "minLength": 1},
    "iteration": {"type": "integer", "minimum": 0},
    "status": {"enum": ["active", "completed", "interrupted", "failed"]},
    "status_reason": {"type": "string"},
    "pending_input": {"type": "string"},
    "created_at": {"type": "string", "format": "date-time"},
    "updated_at": {"type": "string", "format": "date-time"},
    "history": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["role", "content", "phase", "timestamp"],
        "properties": {
          "role": {"enum": ["system", "user", "assistant"]},
          "content": {"type": "string"},
          "phase": {"type": "string"},
          "skill": {"type": "string"},
          "iteration": {"type": "integer", "minimum": 0},
          "timestamp": {"type": "string", "format": "date-time"}
        }
      }
    },
    "phase_outputs": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["skill", "content"],
        "properties": {
          "skill": {"type": "string"},
          "content": {"type": "string"},
          "iteration": {"type": "integer"}
        }
      }
    },
    "metadata": {"type": "object", "additionalProperties": {"type": "string"}},
    "transitions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from", "to", "at"],
        "properties": {
          "from": {"type": "string"},
          "to": {"type": "string"},
          "reason": {"type": "string"},
          "manual": {"type": "boolean"}
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(stateSchema))
})

// validateStructure checks raw state bytes against stateSchema and returns
// the violations, if any.
func validateStructure(data []byte) ([]string, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile session schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return []string{err.Error()}, nil
	}
	if result.Valid() {
		return nil, nil
	}

	var errs []string
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return errs, nil
}
