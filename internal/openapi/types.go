package openapi

import (
	"reflect"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// TypeMapping is an OpenAPI type/format pair.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, number, boolean, object, array
	Format string // OpenAPI format: int32, int64, float, double, date-time, etc.
}

var timeType = reflect.TypeOf(time.Time{})

// kindToOpenAPI maps Go kinds to OpenAPI types.
var kindToOpenAPI = map[reflect.Kind]TypeMapping{
	reflect.Bool:    {"boolean", ""},
	reflect.Int:     {"integer", "int64"},
	reflect.Int8:    {"integer", "int32"},
	reflect.Int16:   {"integer", "int32"},
	reflect.Int32:   {"integer", "int32"},
	reflect.Int64:   {"integer", "int64"},
	reflect.Uint:    {"integer", "int64"},
	reflect.Uint8:   {"integer", "int32"},
	reflect.Uint16:  {"integer", "int32"},
	reflect.Uint32:  {"integer", "int64"},
	reflect.Uint64:  {"integer", "int64"},
	reflect.Float32: {"number", "float"},
	reflect.Float64: {"number", "double"},
	reflect.String:  {"string", ""},
	reflect.Map:     {"object", ""},
	reflect.Slice:   {"array", ""},
	reflect.Array:   {"array", ""},
	reflect.Struct:  {"object", ""},
}

// MapGoType returns the OpenAPI mapping for t. Pointers map like their
// element; unknown kinds fall back to {"string", ""}.
func MapGoType(t reflect.Type) TypeMapping {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return TypeMapping{"string", "date-time"}
	}
	if m, ok := kindToOpenAPI[t.Kind()]; ok {
		return m
	}
	return TypeMapping{"string", ""}
}

// SchemaOf builds an inline schema for v's type from its json tags. Fields
// tagged "-" are skipped; pointer fields are nullable.
func SchemaOf(v any) *openapi3.SchemaRef {
	return schemaFor(reflect.TypeOf(v))
}

func schemaFor(t reflect.Type) *openapi3.SchemaRef {
	nullable := false
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
		nullable = true
	}

	m := MapGoType(t)
	s := &openapi3.Schema{Type: &openapi3.Types{m.Type}, Format: m.Format, Nullable: nullable}

	switch {
	case t == timeType:
	case t.Kind() == reflect.Struct:
		s.Properties = openapi3.Schemas{}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, omitempty := jsonName(f)
			if name == "" {
				continue
			}
			s.Properties[name] = schemaFor(f.Type)
			if !omitempty && f.Type.Kind() != reflect.Pointer {
				s.Required = append(s.Required, name)
			}
		}
	case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
		s.Items = schemaFor(t.Elem())
	case t.Kind() == reflect.Map:
		s.AdditionalProperties = openapi3.AdditionalProperties{Schema: schemaFor(t.Elem())}
	}
	return &openapi3.SchemaRef{Value: s}
}

// jsonName returns the wire name of f, or "" when it is not serialized.
func jsonName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, strings.Contains(opts, "omitempty")
}
