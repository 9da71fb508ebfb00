package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// ValidateArguments checks raw JSON arguments against a tool's parameter
// schema. It covers the subset of JSON Schema tool definitions use: an object
// with required fields, typed properties, enums and additionalProperties.
func ValidateArguments(schema map[string]any, raw json.RawMessage) error {
	var decoded any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	arguments, ok := decoded.(map[string]any)
	if !ok {
		return errors.New("arguments must be a JSON object")
	}
	if len(schema) == 0 {
		return nil
	}

	required, err := parseRequiredFields(schema["required"])
	if err != nil {
		return err
	}
	for _, field := range required {
		if _, ok := arguments[field]; !ok {
			return fmt.Errorf("missing required argument %q", field)
		}
	}

	properties, hasProperties := asStringAnyMap(schema["properties"])
	additionalAllowed, err := parseAdditionalProperties(schema["additionalProperties"])
	if err != nil {
		return err
	}

	for _, key := range sortedArgumentKeys(arguments) {
		value := arguments[key]
		propertySchema, hasProperty := properties[key]
		if !hasProperty {
			if hasProperties && !additionalAllowed {
				return fmt.Errorf("unknown argument %q", key)
			}
			continue
		}

		propertyMap, ok := asStringAnyMap(propertySchema)
		if !ok {
			return errors.New(`input schema "properties" entries must be objects`)
		}
		if rawType, ok := propertyMap["type"]; ok {
			expectedType, ok := rawType.(string)
			if !ok {
				return errors.New(`input schema property "type" must be a string`)
			}
			if !matchesArgumentType(expectedType, value) {
				return fmt.Errorf("argument %q must be %s", key, expectedType)
			}
		}
		if rawEnum, ok := propertyMap["enum"]; ok && !matchesEnum(rawEnum, value) {
			return fmt.Errorf("argument %q must be one of %v", key, rawEnum)
		}
	}

	return nil
}

func matchesArgumentType(expected string, value any) bool {
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		_, ok := value.(json.Number)
		return ok
	case "integer":
		n, ok := value.(json.Number)
		if !ok {
			return false
		}
		if _, err := n.Int64(); err == nil {
			return true
		}
		f, err := n.Float64()
		return err == nil && f == math.Trunc(f)
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "null":
		return value == nil
	default:
		return true
	}
}

func matchesEnum(rawEnum any, value any) bool {
	rv := reflect.ValueOf(rawEnum)
	if rv.Kind() != reflect.Slice {
		return true
	}
	for i := 0; i < rv.Len(); i++ {
		candidate := rv.Index(i).Interface()
		if n, ok := value.(json.Number); ok {
			if f, err := n.Float64(); err == nil && numericEqual(candidate, f) {
				return true
			}
			continue
		}
		if reflect.DeepEqual(candidate, value) {
			return true
		}
	}
	return false
}

func numericEqual(candidate any, f float64) bool {
	switch c := candidate.(type) {
	case int:
		return float64(c) == f
	case int64:
		return float64(c) == f
	case float64:
		return c == f
	default:
		return false
	}
}

func parseRequiredFields(raw any) ([]string, error) {
	switch value := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return value, nil
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			field, ok := item.(string)
			if !ok {
				return nil, errors.New(`input schema "required" entries must be strings`)
			}
			out = append(out, field)
		}
		return out, nil
	default:
		return nil, errors.New(`input schema "required" must be an array`)
	}
}

func parseAdditionalProperties(raw any) (bool, error) {
	switch value := raw.(type) {
	case nil:
		return true, nil
	case bool:
		return value, nil
	default:
		// a nested schema allows extra keys
		return true, nil
	}
}

func asStringAnyMap(raw any) (map[string]any, bool) {
	value, ok := raw.(map[string]any)
	return value, ok
}

func sortedArgumentKeys(arguments map[string]any) []string {
	keys := make([]string, 0, len(arguments))
	for key := range arguments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
