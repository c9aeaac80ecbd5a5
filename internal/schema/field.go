package schema

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// listElementName is the element field name Arrow uses for list children.
const listElementName = "item"

// Field describes one column, struct member or list element.
//
// It is a tagged variant keyed by Kind: a primitive Kind carries no children,
// KindStruct carries a non-empty Fields, KindList carries Elem. Fields built
// through NewField always satisfy this; a hand-assembled Field that does not
// fails in RuntimeType.
type Field struct {
	Name        string
	Kind        string
	Nullable    bool
	Description string
	Fields      []Field
	Elem        *Field
}

// NewField validates a field definition and builds the Field it describes.
func NewField(def FieldDefinition) (Field, error) {
	return newField(def, def.Name)
}

func newField(def FieldDefinition, path string) (Field, error) {
	if strings.TrimSpace(def.Name) == "" {
		return Field{}, errDefinition(path, "name is required")
	}

	kind, err := canonicalKind(def.Type, path)
	if err != nil {
		return Field{}, err
	}

	f := Field{
		Name:        def.Name,
		Kind:        kind,
		Nullable:    def.Nullable,
		Description: def.Description,
	}

	switch kind {
	case KindStruct:
		if def.ElementType != "" {
			return Field{}, errDefinition(path, "element_type is only valid for list types")
		}
		if len(def.Fields) == 0 {
			return Field{}, errDefinition(path, "struct type requires fields")
		}
		if f.Fields, err = newFields(def.Fields, path); err != nil {
			return Field{}, err
		}

	case KindList:
		elem, err := newListElement(def, path)
		if err != nil {
			return Field{}, err
		}
		f.Elem = &elem

	default:
		if len(def.Fields) > 0 {
			return Field{}, errDefinition(path, "fields are only valid for struct types or lists of structs, got type %q", kind)
		}
		if def.ElementType != "" {
			return Field{}, errDefinition(path, "element_type is only valid for list types, got type %q", kind)
		}
	}
	return f, nil
}

// newListElement builds the element descriptor of a list field.
func newListElement(def FieldDefinition, path string) (Field, error) {
	if strings.TrimSpace(def.ElementType) == "" {
		return Field{}, errDefinition(path, "list type requires element_type")
	}
	elemKind := NormalizeTypeName(def.ElementType)
	elemPath := path + "[]"

	if elemKind == KindStruct {
		if len(def.Fields) == 0 {
			return Field{}, errDefinition(path, "list of struct requires fields")
		}
		fields, err := newFields(def.Fields, elemPath)
		if err != nil {
			return Field{}, err
		}
		return Field{Name: listElementName, Kind: KindStruct, Nullable: true, Fields: fields}, nil
	}

	if len(def.Fields) > 0 {
		return Field{}, errDefinition(path, "fields are only valid when element_type is struct, got %q", elemKind)
	}
	if !IsPrimitiveType(elemKind) {
		return Field{}, errDefinition(path, "invalid element type for list: %q. Valid element types are: %s",
			def.ElementType, strings.Join(elementTypeNames(), ", "))
	}
	return Field{Name: listElementName, Kind: resolveAlias(elemKind), Nullable: true}, nil
}

func newFields(defs []FieldDefinition, parent string) ([]Field, error) {
	fields := make([]Field, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		path := d.Name
		if parent != "" {
			path = parent + "." + d.Name
		}
		if seen[d.Name] {
			return nil, errDefinition(path, "duplicate field name %q", d.Name)
		}
		seen[d.Name] = true

		f, err := newField(d, path)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// canonicalKind lowercases a declared type name, resolves aliases and rejects
// unknown names.
func canonicalKind(raw, path string) (string, error) {
	kind := NormalizeTypeName(raw)
	if !IsKnownType(kind) {
		return "", errDefinition(path, "invalid data type: %q. Valid types are: %s",
			raw, strings.Join(TypeNames(), ", "))
	}
	return resolveAlias(kind), nil
}

func resolveAlias(kind string) string {
	if canonical, ok := typeAliases[kind]; ok {
		return canonical
	}
	return kind
}

func elementTypeNames() []string {
	names := TypeNames()
	return names[:len(names)-1] // lists of lists are not supported
}

// IsStruct reports whether the field is a struct.
func (f Field) IsStruct() bool { return f.Kind == KindStruct }

// IsList reports whether the field is a list.
func (f Field) IsList() bool { return f.Kind == KindList }

// ElementType returns the kind of the list element, or "" for non-lists.
func (f Field) ElementType() string {
	if f.Elem == nil {
		return ""
	}
	return f.Elem.Kind
}

// RuntimeType resolves the field to its Arrow type. Struct members keep their
// declared order and nullability.
func (f Field) RuntimeType() (arrow.DataType, error) {
	switch f.Kind {
	case KindStruct:
		if len(f.Fields) == 0 {
			return nil, errDefinition(f.Name, "struct type requires fields")
		}
		members := make([]arrow.Field, 0, len(f.Fields))
		for _, child := range f.Fields {
			dt, err := child.RuntimeType()
			if err != nil {
				return nil, fmt.Errorf("struct field %s: %w", f.Name, err)
			}
			members = append(members, arrow.Field{Name: child.Name, Type: dt, Nullable: child.Nullable})
		}
		return arrow.StructOf(members...), nil

	case KindList:
		if f.Elem == nil {
			return nil, errDefinition(f.Name, "list type requires element_type")
		}
		elem, err := f.Elem.RuntimeType()
		if err != nil {
			return nil, fmt.Errorf("list element of %s: %w", f.Name, err)
		}
		return arrow.ListOf(elem), nil

	default:
		return LookupPrimitive(f.Kind)
	}
}

// ArrowField returns the field as an arrow.Field.
func (f Field) ArrowField() (arrow.Field, error) {
	dt, err := f.RuntimeType()
	if err != nil {
		return arrow.Field{}, err
	}
	return arrow.Field{Name: f.Name, Type: dt, Nullable: f.Nullable}, nil
}

// Definition converts the field back into its declarative form.
func (f Field) Definition() FieldDefinition {
	def := FieldDefinition{
		Name:        f.Name,
		Type:        f.Kind,
		Nullable:    f.Nullable,
		Description: f.Description,
	}
	children := f.Fields
	if f.Elem != nil {
		def.ElementType = f.Elem.Kind
		children = f.Elem.Fields
	}
	for _, child := range children {
		def.Fields = append(def.Fields, child.Definition())
	}
	return def
}
