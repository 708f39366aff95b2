package model

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

// TextCodeInvalidSchema marks schema declaration errors.
const TextCodeInvalidSchema = "INVALID_SCHEMA"

// DefaultIndex is the identity property used when none is given.
const DefaultIndex = "id"

// Field declares how one property maps to its storage column.
type Field struct {
	// Name is the property name records bind their struct fields to.
	Name string `json:"name"`
	// Column defaults to the snake_case form of Name.
	Column string `json:"column"`
	// Storage is the type the store holds. Defaults to Value.
	Storage ValueType `json:"storage"`
	// Value is the in-memory type.
	Value ValueType `json:"value"`
	// Default is applied to new records and to columns missing from a row.
	Default any `json:"default,omitempty"`
}

// Validate implements validation.Validatable.
func (f Field) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Column, validation.Required),
		validation.Field(&f.Value, validation.Required),
	)
}

// Schema is the immutable property to column mapping of one entity type.
type Schema struct {
	typeName   string
	table      string
	index      string
	fields     []Field
	byName     map[string]int
	byColumn   map[string]int
	tableIndex string
}

// SchemaOption customises NewSchema.
type SchemaOption func(*schemaDef)

type schemaDef struct {
	Type   string  `json:"type"`
	Table  string  `json:"table"`
	Index  string  `json:"index"`
	Fields []Field `json:"fields"`
}

// WithTable overrides the default table name.
func WithTable(table string) SchemaOption {
	return func(d *schemaDef) { d.Table = table }
}

// WithIndex selects the identity property. Defaults to DefaultIndex.
func WithIndex(property string) SchemaOption {
	return func(d *schemaDef) { d.Index = property }
}

// NewSchema builds and validates the schema of typeName. Field order is kept.
func NewSchema(typeName string, fields []Field, opts ...SchemaOption) (*Schema, error) {
	def := schemaDef{
		Type:   typeName,
		Table:  tableName(typeName),
		Index:  DefaultIndex,
		Fields: make([]Field, len(fields)),
	}
	for _, opt := range opts {
		opt(&def)
	}

	for i, f := range fields {
		if f.Column == "" {
			f.Column = toSnake(f.Name)
		}
		if f.Storage == "" {
			f.Storage = f.Value
		}
		def.Fields[i] = f
	}

	err := validation.ValidateStruct(&def,
		validation.Field(&def.Type, validation.Required),
		validation.Field(&def.Table, validation.Required),
		validation.Field(&def.Index, validation.Required),
		validation.Field(&def.Fields, validation.Required),
	)
	if err != nil {
		return nil, goerrors.FromOzzoValidation(err, fmt.Sprintf("invalid schema for %s", typeName)).
			WithTextCode(TextCodeInvalidSchema)
	}

	s := &Schema{
		typeName: def.Type,
		table:    def.Table,
		index:    def.Index,
		fields:   def.Fields,
		byName:   make(map[string]int, len(def.Fields)),
		byColumn: make(map[string]int, len(def.Fields)),
	}

	var problems []goerrors.FieldError
	for i, f := range def.Fields {
		if _, dup := s.byName[f.Name]; dup {
			problems = append(problems, goerrors.FieldError{Field: f.Name, Message: "duplicate property"})
		}
		if _, dup := s.byColumn[f.Column]; dup {
			problems = append(problems, goerrors.FieldError{Field: f.Name, Message: "duplicate column " + f.Column})
		}
		s.byName[f.Name] = i
		s.byColumn[f.Column] = i
	}

	idx, ok := s.byName[s.index]
	if !ok {
		problems = append(problems, goerrors.FieldError{Field: "index", Message: "unknown property " + s.index})
	} else {
		s.tableIndex = def.Fields[idx].Column
	}

	if len(problems) > 0 {
		return nil, goerrors.NewValidation(fmt.Sprintf("invalid schema for %s", typeName), problems...).
			WithTextCode(TextCodeInvalidSchema)
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error, for package level schemas.
func MustSchema(typeName string, fields []Field, opts ...SchemaOption) *Schema {
	s, err := NewSchema(typeName, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Type returns the entity type name.
func (s *Schema) Type() string { return s.typeName }

// Table returns the storage table.
func (s *Schema) Table() string { return s.table }

// Index returns the identity property.
func (s *Schema) Index() string { return s.index }

// TableIndex returns the identity column.
func (s *Schema) TableIndex() string { return s.tableIndex }

// Fields returns a copy of the field declarations in order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by property name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// IndexField returns the identity field declaration.
func (s *Schema) IndexField() Field {
	return s.fields[s.byName[s.index]]
}

// HasColumn reports whether column belongs to a declared field.
func (s *Schema) HasColumn(column string) bool {
	_, ok := s.byColumn[column]
	return ok
}
