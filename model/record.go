package model

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/google/uuid"
)

// Record is implemented by entity types. Bind returns, for every schema
// property, a pointer to the struct field that holds it. Nullable columns
// bind pointer fields so a null survives hydration.
//
//	func (w *Widget) Bind() map[string]any {
//		return map[string]any{"id": &w.ID, "name": &w.Name}
//	}
type Record interface {
	Bind() map[string]any
}

// ExtraSetter receives columns a row carries that the schema does not
// declare. Embed Extras to implement it.
type ExtraSetter interface {
	SetExtra(column string, value any)
}

// Extras stores undeclared columns next to the typed fields of a record.
type Extras struct {
	extras map[string]any
}

// SetExtra implements ExtraSetter.
func (e *Extras) SetExtra(column string, value any) {
	if e.extras == nil {
		e.extras = make(map[string]any)
	}
	e.extras[column] = value
}

// Extra returns an undeclared column value.
func (e *Extras) Extra(column string) (any, bool) {
	v, ok := e.extras[column]
	return v, ok
}

// ExtraFields returns a copy of every undeclared column.
func (e *Extras) ExtraFields() map[string]any {
	return maps.Clone(e.extras)
}

// assign stores value into the variable ptr points to, converting between
// compatible numeric kinds and element-wise between slice types. A nil value
// resets the variable to its zero value.
func assign(ptr any, value any) error {
	dst := reflect.ValueOf(ptr)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		return fmt.Errorf("binding must be a non-nil pointer, got %T", ptr)
	}
	return assignValue(dst.Elem(), value)
}

func assignValue(target reflect.Value, value any) error {
	if value == nil {
		target.SetZero()
		return nil
	}

	v := reflect.ValueOf(value)
	tt := target.Type()

	if v.Type().AssignableTo(tt) {
		target.Set(v)
		return nil
	}

	if tt.Kind() == reflect.Pointer {
		elem := reflect.New(tt.Elem())
		if err := assignValue(elem.Elem(), value); err != nil {
			return err
		}
		target.Set(elem)
		return nil
	}

	if convertible(v.Type(), tt) {
		target.Set(v.Convert(tt))
		return nil
	}

	if tt.Kind() == reflect.Slice && (v.Kind() == reflect.Slice || v.Kind() == reflect.Array) {
		out := reflect.MakeSlice(tt, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			if err := assignValue(out.Index(i), v.Index(i).Interface()); err != nil {
				return err
			}
		}
		target.Set(out)
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, tt)
}

// convertible limits reflect conversion to same-family kinds, so that an
// int never becomes a one-rune string.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	switch {
	case isNumber(from.Kind()) && isNumber(to.Kind()):
		return true
	case from.Kind() == reflect.String && to.Kind() == reflect.String:
		return true
	case from.Kind() == reflect.Bool && to.Kind() == reflect.Bool:
		return true
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// read returns the value ptr points to, dereferencing pointer fields.
// A nil pointer field reads as nil.
func read(ptr any) any {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return nil
	}
	v = v.Elem()
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}

// cloneValue deep copies slices and maps so records never share mutable
// state. Other values are returned as is.
func cloneValue(value any) any {
	if value == nil {
		return nil
	}
	return cloneReflect(reflect.ValueOf(value)).Interface()
}

func cloneReflect(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneReflect(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneReflect(iter.Value()))
		}
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		inner := cloneReflect(v.Elem())
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out
	}
	return v
}

// isEmpty reports whether an identity value counts as absent: nil, zero
// numbers, "", "0", false, the nil UUID and empty collections.
func isEmpty(v any) bool {
	switch id := v.(type) {
	case nil:
		return true
	case string:
		return id == "" || id == "0"
	case bool:
		return !id
	case uuid.UUID:
		return id == uuid.Nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
