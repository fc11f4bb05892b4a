package rules

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaBase = "https://counterpick.local/schemas/"

const tagListDef = `"tags": {"type": "array", "items": {"type": "string", "minLength": 1}}`

var heroTagsSchema = `{
  "type": "object",
  "required": ["hero_tags"],
  "additionalProperties": false,
  "properties": {
    "hero_tags": {"type": ["object", "null"], "additionalProperties": {"$ref": "#/$defs/tags"}}
  },
  "$defs": {` + tagListDef + `}
}`

var tagRulesSchema = `{
  "type": "object",
  "required": ["rules"],
  "additionalProperties": false,
  "properties": {
    "rules": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "roles_to_tags":    {"type": ["object", "null"], "additionalProperties": {"$ref": "#/$defs/tags"}},
        "ability_keywords": {"type": ["object", "null"], "additionalProperties": {"$ref": "#/$defs/tags"}},
        "patches":          {"type": ["object", "null"], "additionalProperties": {"$ref": "#/$defs/tags"}}
      }
    }
  },
  "$defs": {` + tagListDef + `}
}`

var boostsSchema = `{
  "type": "object",
  "required": ["tag_boosts"],
  "additionalProperties": false,
  "properties": {
    "tag_boosts": {
      "type": ["object", "null"],
      "additionalProperties": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "start": {"$ref": "#/$defs/weights"},
          "early": {"$ref": "#/$defs/weights"},
          "mid":   {"$ref": "#/$defs/weights"},
          "late":  {"$ref": "#/$defs/weights"}
        }
      }
    }
  },
  "$defs": {
    "weights": {"type": "object", "additionalProperties": {"type": "number", "minimum": 0}}
  }
}`

var (
	schemaOnce sync.Once
	schemas    map[string]*jsonschema.Schema
	schemaErr  error
)

func compiledSchemas() (map[string]*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		src := map[string]string{
			docHeroTags: heroTagsSchema,
			docTagRules: tagRulesSchema,
			docBoosts:   boostsSchema,
		}
		schemas = make(map[string]*jsonschema.Schema, len(src))
		for name, s := range src {
			compiled, err := jsonschema.CompileString(schemaBase+name+".json", s)
			if err != nil {
				schemaErr = fmt.Errorf("compile %s schema: %w", name, err)
				return
			}
			schemas[name] = compiled
		}
	})
	return schemas, schemaErr
}

// validate checks a decoded YAML document against the named schema.
func validate(doc string, v any) error {
	all, err := compiledSchemas()
	if err != nil {
		return err
	}
	return all[doc].Validate(jsonValue(v))
}

// jsonValue rewrites YAML-decoded values into the shapes the validator
// understands: non-string map keys become strings.
func jsonValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = jsonValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = jsonValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = jsonValue(val)
		}
		return out
	default:
		return v
	}
}
