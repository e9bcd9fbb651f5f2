package assertions

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/yalp/jsonpath"
)

// JSONValid asserts that output parses as JSON and, when schema is non-nil,
// conforms to a shallow schema: a top-level "type" check plus, for objects,
// "required"/"properties" with one level of recursion into declared
// properties. Required keys missing from "properties" are not checked.
func JSONValid(output string, schema map[string]any) error {
	var data any
	if err := sonic.Unmarshal([]byte(output), &data); err != nil {
		return failf("Output is not valid JSON: %s", err)
	}
	if schema != nil {
		return validateShallow(data, schema)
	}
	return nil
}

func validateShallow(data any, schema map[string]any) error {
	if want, ok := schema["type"].(string); ok {
		got := jsonTypeName(data)
		if got != want && !(want == "integer" && isIntegral(data)) {
			return failf("Expected type %s, got %s", want, got)
		}
	}

	obj, isObj := data.(map[string]any)
	props, hasProps := schema["properties"].(map[string]any)
	if !isObj || !hasProps {
		return nil
	}

	required := map[string]bool{}
	switch req := schema["required"].(type) {
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	case []string:
		for _, s := range req {
			required[s] = true
		}
	}

	for key, sub := range props {
		val, present := obj[key]
		if required[key] && !present {
			return failf("Required property '%s' missing", key)
		}
		subSchema, ok := sub.(map[string]any)
		if present && ok {
			if err := validateShallow(val, subSchema); err != nil {
				return err
			}
		}
	}
	return nil
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func isIntegral(v any) bool {
	switch n := v.(type) {
	case int, int64:
		return true
	case float64:
		return n == float64(int64(n))
	default:
		return false
	}
}

// JSONSchema asserts that output conforms to a full JSON Schema document.
// An uncompilable schema is a caller bug, not an assertion failure.
func JSONSchema(output string, schemaJSON []byte) error {
	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(schemaJSON)))
	if err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", schemaDoc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	data, err := jsonschema.UnmarshalJSON(strings.NewReader(output))
	if err != nil {
		return failf("Output is not valid JSON: %s", err)
	}
	if err := schema.Validate(data); err != nil {
		return failf("Schema validation failed: %s", err)
	}
	return nil
}

// JSONPath asserts that evaluating path against the JSON output yields
// expected. Numbers compare loosely, so 7 matches 7.0.
func JSONPath(output, path string, expected any) error {
	var data any
	if err := sonic.Unmarshal([]byte(output), &data); err != nil {
		return failf("Failed to parse JSON: %s", err)
	}

	res, err := jsonpath.Read(data, path)
	if err != nil {
		return fmt.Errorf("invalid JSONPath pattern %q: %w", path, err)
	}

	if !looseEqual(res, expected) {
		return failf("Value at %s: expected %v, got %v", path, expected, res)
	}
	return nil
}

// looseEqual compares two decoded values by normalized string form, so
// numeric values agree across int and float decodings.
func looseEqual(a, b any) bool {
	return normalize(a) == normalize(b)
}

func normalize(v any) string {
	if v == nil {
		return "null"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var parts []string
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, normalize(rv.Index(i).Interface()))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%g", f)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", rv.Int())
	case reflect.String:
		return rv.String()
	default:
		return fmt.Sprint(v)
	}
}
