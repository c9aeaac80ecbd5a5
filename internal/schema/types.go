package schema

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Structural kinds. Every other accepted type name is a primitive.
const (
	KindStruct = "struct"
	KindList   = "list"
)

// TypeMapping pairs a declared type name with its Arrow runtime type.
type TypeMapping struct {
	Name string
	Type arrow.DataType
}

// primitiveTypes is ordered so error messages and `types` output are stable.
var primitiveTypes = []TypeMapping{
	{"int8", arrow.PrimitiveTypes.Int8},
	{"int16", arrow.PrimitiveTypes.Int16},
	{"int32", arrow.PrimitiveTypes.Int32},
	{"int64", arrow.PrimitiveTypes.Int64},
	{"uint8", arrow.PrimitiveTypes.Uint8},
	{"uint16", arrow.PrimitiveTypes.Uint16},
	{"uint32", arrow.PrimitiveTypes.Uint32},
	{"uint64", arrow.PrimitiveTypes.Uint64},
	{"float32", arrow.PrimitiveTypes.Float32},
	{"float64", arrow.PrimitiveTypes.Float64},
	{"boolean", arrow.FixedWidthTypes.Boolean},
	{"string", arrow.BinaryTypes.String},
	{"utf8", arrow.BinaryTypes.String},
	{"binary", arrow.BinaryTypes.Binary},
	{"date", arrow.FixedWidthTypes.Date32},
	{"datetime", arrow.FixedWidthTypes.Timestamp_us},
	{"time", arrow.FixedWidthTypes.Time64us},
	{"duration", arrow.FixedWidthTypes.Duration_us},
	{"categorical", &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Uint32, ValueType: arrow.BinaryTypes.String}},
	{"null", arrow.Null},
}

// Shorthands accepted in definitions, resolved to their canonical names.
var typeAliases = map[string]string{
	"bool":    "boolean",
	"integer": "int64",
	"float":   "float64",
	"str":     "string",
}

var primitiveIndex = func() map[string]arrow.DataType {
	m := make(map[string]arrow.DataType, len(primitiveTypes)+len(typeAliases))
	for _, t := range primitiveTypes {
		m[t.Name] = t.Type
	}
	for alias, canonical := range typeAliases {
		m[alias] = m[canonical]
	}
	return m
}()

// PrimitiveTypes returns the canonical primitive type names and their Arrow
// types, in declaration order.
func PrimitiveTypes() []TypeMapping {
	out := make([]TypeMapping, len(primitiveTypes))
	copy(out, primitiveTypes)
	return out
}

// TypeAliases returns a copy of the accepted alias → canonical name table.
func TypeAliases() map[string]string {
	out := make(map[string]string, len(typeAliases))
	for k, v := range typeAliases {
		out[k] = v
	}
	return out
}

// TypeNames lists every accepted type name: primitives, then struct and list.
// Aliases are accepted but not listed.
func TypeNames() []string {
	names := make([]string, 0, len(primitiveTypes)+2)
	for _, t := range primitiveTypes {
		names = append(names, t.Name)
	}
	return append(names, KindStruct, KindList)
}

// NormalizeTypeName lowercases and trims a declared type name.
func NormalizeTypeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsPrimitiveType reports whether name (case-insensitive) is a primitive type.
func IsPrimitiveType(name string) bool {
	_, ok := primitiveIndex[NormalizeTypeName(name)]
	return ok
}

// IsKnownType reports whether name is a primitive or structural type name.
func IsKnownType(name string) bool {
	n := NormalizeTypeName(name)
	return n == KindStruct || n == KindList || IsPrimitiveType(n)
}

// LookupPrimitive resolves a primitive type name to its Arrow type.
func LookupPrimitive(name string) (arrow.DataType, error) {
	dt, ok := primitiveIndex[NormalizeTypeName(name)]
	if !ok {
		return nil, &UnknownTypeError{Name: name}
	}
	return dt, nil
}
