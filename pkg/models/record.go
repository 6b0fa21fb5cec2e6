package models

import (
	"fmt"
	"sort"
)

// FieldRecord is the capability interface the automation engine works
// against. It never depends on concrete entity schemas beyond "read field
// by name", so rules and approval processes apply to any registered entity
// type.
type FieldRecord interface {
	EntityType() string
	RecordID() int64
	OwnerID() string

	// Field returns the named field value and whether the field is set.
	Field(name string) (any, bool)

	// SetField assigns a field value. It fails with ErrField when the
	// entity type does not declare the field.
	SetField(name string, value any) error

	// Fields returns a copy of the current field values.
	Fields() map[string]any
}

// EntitySchema declares the field set of one entity type.
type EntitySchema struct {
	Name   string
	Fields map[string]struct{}
}

// HasField reports whether the schema declares the named field.
func (s *EntitySchema) HasField(name string) bool {
	_, ok := s.Fields[name]
	return ok
}

// FieldNames returns the declared field names in stable order.
func (s *EntitySchema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// EntityRegistry maps entity type tags to their schemas. Rules, approval
// processes, and custom fields are keyed by the type tag; the registry is
// what lets one engine serve several unrelated record schemas.
type EntityRegistry struct {
	schemas map[string]*EntitySchema
}

func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{schemas: make(map[string]*EntitySchema)}
}

// Register adds an entity schema. Later registrations replace earlier ones,
// which is how custom fields extend a built-in type.
func (r *EntityRegistry) Register(schema *EntitySchema) {
	r.schemas[schema.Name] = schema
}

// Schema returns the schema for the given entity type tag.
func (r *EntityRegistry) Schema(entityType string) (*EntitySchema, error) {
	schema, ok := r.schemas[entityType]
	if !ok {
		return nil, fmt.Errorf("entity type %q not registered: %w", entityType, ErrConfiguration)
	}

	return schema, nil
}

// EntityTypes returns all registered type tags in stable order.
func (r *EntityRegistry) EntityTypes() []string {
	types := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		types = append(types, name)
	}

	sort.Strings(types)

	return types
}

// NewRecord builds a FieldRecord of the given type, validating the initial
// field values against the schema.
func (r *EntityRegistry) NewRecord(entityType string, id int64, owner string, fields map[string]any) (FieldRecord, error) {
	schema, err := r.Schema(entityType)
	if err != nil {
		return nil, err
	}

	record := &Record{
		schema: schema,
		id:     id,
		owner:  owner,
		fields: make(map[string]any, len(fields)),
	}

	for name, value := range fields {
		if err := record.SetField(name, value); err != nil {
			return nil, err
		}
	}

	return record, nil
}

// Record is the generic FieldRecord implementation backed by a schema and a
// field-value map.
type Record struct {
	schema *EntitySchema
	id     int64
	owner  string
	fields map[string]any
}

func (r *Record) EntityType() string { return r.schema.Name }

func (r *Record) RecordID() int64 { return r.id }

func (r *Record) OwnerID() string { return r.owner }

func (r *Record) Field(name string) (any, bool) {
	value, ok := r.fields[name]
	return value, ok
}

func (r *Record) SetField(name string, value any) error {
	if !r.schema.HasField(name) {
		return fmt.Errorf("field %q does not exist on %s: %w", name, r.schema.Name, ErrField)
	}

	r.fields[name] = value

	return nil
}

func (r *Record) Fields() map[string]any {
	fields := make(map[string]any, len(r.fields))
	for name, value := range r.fields {
		fields[name] = value
	}

	return fields
}
