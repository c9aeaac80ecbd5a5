package validate

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// Category groups runtime types whose variants are treated as equivalent
// when checking primitive columns.
type Category int

const (
	CategoryOther Category = iota
	CategoryInt
	CategoryFloat
	CategoryDateTime
	CategoryBool
	CategoryString
	CategoryBinary
)

func (c Category) String() string {
	switch c {
	case CategoryInt:
		return "int"
	case CategoryFloat:
		return "float"
	case CategoryDateTime:
		return "datetime"
	case CategoryBool:
		return "bool"
	case CategoryString:
		return "string"
	case CategoryBinary:
		return "binary"
	default:
		return "other"
	}
}

// CategoryOf returns the type family of dt. Integer widths and signedness,
// float precisions, and timestamp units/timezones collapse into one family
// each.
func CategoryOf(dt arrow.DataType) Category {
	if dt == nil {
		return CategoryOther
	}
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return CategoryInt
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return CategoryFloat
	case arrow.TIMESTAMP:
		return CategoryDateTime
	case arrow.BOOL:
		return CategoryBool
	case arrow.STRING, arrow.LARGE_STRING, arrow.STRING_VIEW:
		return CategoryString
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.BINARY_VIEW:
		return CategoryBinary
	default:
		return CategoryOther
	}
}

// Compatible reports whether actual satisfies expected for a primitive
// column: same non-Other family, or exact type equality. Within Other,
// time-of-day types match across units and dictionaries match across index
// widths when their value types are compatible.
func Compatible(expected, actual arrow.DataType) bool {
	if expected == nil || actual == nil {
		return false
	}
	if c := CategoryOf(expected); c != CategoryOther && c == CategoryOf(actual) {
		return true
	}
	if isTimeOfDay(expected) && isTimeOfDay(actual) {
		return true
	}
	if ed, ok := expected.(*arrow.DictionaryType); ok {
		if ad, ok := actual.(*arrow.DictionaryType); ok {
			return Compatible(ed.ValueType, ad.ValueType)
		}
		return false
	}
	return arrow.TypeEqual(expected, actual)
}

func isTimeOfDay(dt arrow.DataType) bool {
	id := dt.ID()
	return id == arrow.TIME32 || id == arrow.TIME64
}

func isStructLike(dt arrow.DataType) bool {
	return dt != nil && dt.ID() == arrow.STRUCT
}

func isListLike(dt arrow.DataType) bool {
	if dt == nil {
		return false
	}
	switch dt.ID() {
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST, arrow.LIST_VIEW, arrow.LARGE_LIST_VIEW:
		return true
	default:
		return false
	}
}

// fieldLister is the struct-field introspection capability.
type fieldLister interface {
	Fields() []arrow.Field
}

// structFieldNames returns the immediate member names of a struct-like type.
// ok is false when the type does not expose field introspection.
func structFieldNames(dt arrow.DataType) (names []string, ok bool) {
	fl, ok := dt.(fieldLister)
	if !ok {
		return nil, false
	}
	fields := fl.Fields()
	names = make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names, true
}
