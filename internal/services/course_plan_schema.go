package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const coursePlanSchemaURL = "course-plan.json"

// coursePlanSchema accepts the curriculum shape the toJson step asks for. Unknown keys
// are allowed; levels and lessons must at least carry a title.
const coursePlanSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["levels"],
  "properties": {
    "levels": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "lessons"],
        "properties": {
          "title": {"type": "string"},
          "description": {"type": "string"},
          "lessons": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["title"],
              "properties": {
                "title": {"type": "string"},
                "synopsis": {"type": "string"},
                "instructions": {"type": "string"},
                "graduationRequirements": {"type": "array", "items": {"type": "string"}}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	planSchemaOnce sync.Once
	planSchema     *jsonschema.Schema
	planSchemaErr  error
)

func compiledPlanSchema() (*jsonschema.Schema, error) {
	planSchemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(coursePlanSchema), &doc); err != nil {
			planSchemaErr = fmt.Errorf("unmarshal schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(coursePlanSchemaURL, doc); err != nil {
			planSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		planSchema, planSchemaErr = c.Compile(coursePlanSchemaURL)
	})
	return planSchema, planSchemaErr
}

// validatePlanJSON parses text as a course-plan document and returns its compact form.
func validatePlanJSON(text string) ([]byte, error) {
	var doc any
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON returned by model: %w", err)
	}
	if dec.More() {
		return nil, errors.New("invalid JSON returned by model: trailing data")
	}

	sch, err := compiledPlanSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, fmt.Errorf("course plan does not match schema: %s", describeValidation(ve))
		}
		return nil, fmt.Errorf("course plan does not match schema: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(strings.TrimSpace(text))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// describeValidation flattens leaf causes into "path: kind" pairs.
func describeValidation(ve *jsonschema.ValidationError) string {
	var leaves []string
	var walk func(*jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if len(v.Causes) == 0 {
			leaves = append(leaves, fmt.Sprintf("/%s: %v", strings.Join(v.InstanceLocation, "/"), v.ErrorKind))
			return
		}
		for _, c := range v.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(leaves, "; ")
}
