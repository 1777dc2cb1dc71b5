package core

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// indexSchema is the JSON schema the prebuilt index payload must satisfy
// before it is trusted enough to unmarshal. It intentionally validates only
// the structural contract: everything beyond path/title/yaml is optional.
const indexSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["count", "rules"],
  "properties": {
    "count": {"type": "integer", "minimum": 0},
    "build_time": {"type": "string"},
    "git_last_commit": {"type": "string"},
    "git_last_commit_date": {"type": "string"},
    "generated_from": {"type": "string"},
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "title", "yaml"],
        "properties": {
          "path": {"type": "string", "minLength": 1},
          "id": {"type": "string"},
          "title": {"type": "string"},
          "yaml": {"type": "string"},
          "status": {"type": "string"},
          "level": {"type": "string"},
          "date": {"type": "string"},
          "modified": {"type": "string"},
          "logsource": {
            "type": "object",
            "properties": {
              "raw": {"type": "string"},
              "product": {"type": "string"},
              "category": {"type": "string"},
              "service": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

// ValidateIndexPayload checks raw index bytes against the payload schema.
func ValidateIndexPayload(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(indexSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate index payload: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("index payload validation failed: %v", result.Errors())
	}
	return nil
}
