package codec

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ToolDescriptor is implemented by a pointer to any record type used as a
// tool-call payload. Declared once per type, alongside per-field
// description tags (`desc:"..."`) and an optional `required:"false"` tag for
// optional fields.
type ToolDescriptor interface {
	ToolName() string
	ToolDescription() string
}

// Schema generates the JSON Schema for R's fields per spec §4.1: primitive
// fields become {type}, nested records recurse, optional fields are
// excluded from "required", slices become {type:"array", items: schema(T)},
// and TextEnum fields degrade to a string enum.
func Schema(v any) *jsonschema.Schema {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return schemaForStruct(t)
}

func schemaForStruct(t reflect.Type) *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	required := make([]string, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := jsonFieldName(f)
		if name == "" {
			continue
		}
		fieldType := f.Type
		optional := f.Tag.Get("required") == "false" || fieldType.Kind() == reflect.Ptr
		if fieldType.Kind() == reflect.Ptr {
			fieldType = fieldType.Elem()
		}

		fs := schemaForType(fieldType, name)
		if desc := f.Tag.Get("desc"); desc != "" {
			fs.Description = desc
		}
		props.Set(name, fs)
		if !optional {
			required = append(required, name)
		}
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func schemaForType(t reflect.Type, fieldName string) *jsonschema.Schema {
	// TextEnum fields degrade to a string enum (spec §4.1 "enum field" rule).
	if enumVal, ok := reflect.New(t).Interface().(TextEnum); ok {
		return &jsonschema.Schema{Type: "string", Enum: toAnySlice(enumVal.Options())}
	}
	// PayloadTextEnum fields specialize per spec §4.1's schema(lang) rule:
	// all-unit variants degrade to a string enum, all-payload variants
	// become the {type,content} object shape, and a mixed set degrades to
	// a string enum listing every declared tag.
	if payloadVal, ok := reflect.New(t).Interface().(PayloadTextEnum); ok {
		return payloadTextEnumSchema(payloadVal.Variants())
	}

	switch t.Kind() {
	case reflect.String:
		if strings.EqualFold(fieldName, "id") || strings.HasSuffix(strings.ToLower(fieldName), "_id") {
			return &jsonschema.Schema{Type: "string", Format: "uuid"}
		}
		return &jsonschema.Schema{Type: "string"}
	case reflect.Int, reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64:
		return &jsonschema.Schema{Type: "number"}
	case reflect.Bool:
		return &jsonschema.Schema{Type: "boolean"}
	case reflect.Slice, reflect.Array:
		return &jsonschema.Schema{Type: "array", Items: schemaForType(t.Elem(), fieldName)}
	case reflect.Struct:
		return schemaForStruct(t)
	default:
		return &jsonschema.Schema{Type: "string"}
	}
}

// payloadTextEnumSchema implements spec §4.1's schema(lang) rule for a
// PayloadTextEnum's declared variant set.
func payloadTextEnumSchema(variants []PayloadVariant) *jsonschema.Schema {
	allPayload := true
	tags := make([]any, 0, len(variants))
	for _, v := range variants {
		if !v.IncludePrefix {
			allPayload = false
		}
		tags = append(tags, v.wireTag())
	}
	if allPayload {
		props := orderedmap.New[string, *jsonschema.Schema]()
		props.Set("type", &jsonschema.Schema{Type: "string", Enum: tags})
		props.Set("content", &jsonschema.Schema{Type: "string"})
		return &jsonschema.Schema{Type: "object", Properties: props, Required: []string{"type", "content"}}
	}
	// All-unit or a mixed set both degrade to a string enum of every
	// declared tag (spec §4.1).
	return &jsonschema.Schema{Type: "string", Enum: tags}
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	if tag == "" {
		return f.Name
	}
	return strings.Split(tag, ",")[0]
}

// FunctionObject renders the {name, description, parameters, strict} shape
// the LLM gateway attaches to a chat-completion request (spec §4.1
// to_function_object).
type FunctionObject struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
	Strict      bool               `json:"strict"`
}

// ToFunctionObject builds the function-calling descriptor for v, which must
// implement ToolDescriptor.
func ToFunctionObject(v ToolDescriptor) FunctionObject {
	return FunctionObject{
		Name:        v.ToolName(),
		Description: v.ToolDescription(),
		Parameters:  Schema(v),
		Strict:      true,
	}
}

// ErrMissingField is returned by TryFromToolCall when a required field is
// absent from the model's arguments.
type ErrMissingField struct {
	Field string
}

func (e *ErrMissingField) Error() string {
	return fmt.Sprintf("tool call missing required field %q", e.Field)
}

// ErrToolNameMismatch is returned when the model calls a different tool
// than the one the caller expected.
type ErrToolNameMismatch struct {
	Expected, Got string
}

func (e *ErrToolNameMismatch) Error() string {
	return fmt.Sprintf("expected tool call %q, got %q", e.Expected, e.Got)
}

// TryFromToolCall validates name == expected.ToolName(), parses argsJSON
// into dst (a pointer to the record type), and reports the first required
// field left as the zero value as a missing-field error. dst must also
// implement ToolDescriptor.
func TryFromToolCall(expected ToolDescriptor, name, argsJSON string, dst any) error {
	if name != expected.ToolName() {
		return &ErrToolNameMismatch{Expected: expected.ToolName(), Got: name}
	}
	if err := json.Unmarshal([]byte(argsJSON), dst); err != nil {
		return fmt.Errorf("codec: parsing tool call arguments: %w", err)
	}

	t := reflect.TypeOf(dst).Elem()
	v := reflect.ValueOf(dst).Elem()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := jsonFieldName(f)
		if name == "" {
			continue
		}
		optional := f.Tag.Get("required") == "false" || f.Type.Kind() == reflect.Ptr
		if optional {
			continue
		}
		if v.Field(i).IsZero() {
			return &ErrMissingField{Field: name}
		}
	}
	return nil
}

// IntoToolCall renders v (a pointer to a record type implementing
// ToolDescriptor) back into {name, arguments} for persistence or replay.
// Fields are rendered exactly as their json tags say: a nil pointer or nil
// slice without omitempty appears as null rather than being omitted.
func IntoToolCall(v ToolDescriptor) (name string, argumentsJSON string, err error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("codec: rendering tool call arguments: %w", err)
	}
	return v.ToolName(), string(b), nil
}
