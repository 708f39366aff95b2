// Package model maps schema-described records to table rows and publishes
// their mutations.
//
// # Schemas
//
// A Schema names an entity type and lists its properties. Each Field maps a
// property to a column and declares the type it has in the store and in
// memory:
//
//	var widgetSchema = model.MustSchema("Widget", []model.Field{
//		{Name: "id", Value: model.TypeInt},
//		{Name: "name", Value: model.TypeString, Default: ""},
//		{Name: "tags", Storage: model.TypeJSON, Value: model.TypeArray, Default: []any{}},
//	})
//
// Columns default to the snake_case property name and the table to the plural
// of the snake_case type name ("widgets").
//
// # Records
//
// A record exposes its properties through Bind, a map from property name to
// a pointer at the struct field holding it. Records embedding Extras keep
// columns the schema does not declare.
//
// # Repository
//
// Repository[T] converts between rows and records with Convert, reads single
// records and filtered sets straight from the Gateway, serves the full
// collection through cache.Collection and writes with UpdateOrInsert and
// Delete. Expected failures, such as an empty identity, a missing row or a
// write the store rejects, return false and no error. Gateway failures are
// returned.
//
// Every successful write is published on the repository's Bus after it
// completes. Observers implement any of CreatedObserver, UpdatedObserver and
// DeletedObserver; OnCreated, OnUpdated and OnDeleted adapt plain functions.
// An observer that fails or panics is logged and does not stop the others.
package model
