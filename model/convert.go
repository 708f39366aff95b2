package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ValueType names the representation of a field either in storage or in
// memory.
type ValueType string

// Known value types.
const (
	TypeInt    ValueType = "int"
	TypeFloat  ValueType = "float"
	TypeString ValueType = "string"
	TypeBool   ValueType = "bool"
	TypeArray  ValueType = "array"
	TypeJSON   ValueType = "json"
	TypeEnum   ValueType = "enum"
	TypeUUID   ValueType = "uuid"
)

// ErrUnsupportedValue is wrapped by ConversionError when the source value has
// no meaningful representation in the target type.
var ErrUnsupportedValue = errors.New("unsupported value")

// ConversionError reports a failed primitive coercion.
type ConversionError struct {
	Value any
	From  ValueType
	To    ValueType
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("model: convert %T from %s to %s: %v", e.Value, e.From, e.To, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Convert coerces value from one value type to another.
//
//   - nil and identical types pass through unchanged
//   - enum targets are stringified, json targets are encoded to text
//   - json or string sources decode into an array target; undecodable text
//     yields an empty array and never fails
//   - int, float, string, bool, array and uuid targets use primitive coercion
//   - any other target returns value unchanged
//
// The last rule is deliberate: schemas may declare types this package does not
// know, and their values are carried as is.
func Convert(value any, from, to ValueType) (any, error) {
	if value == nil || from == to {
		return value, nil
	}

	switch to {
	case TypeEnum:
		return stringify(value), nil

	case TypeJSON:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, &ConversionError{Value: value, From: from, To: to, Err: err}
		}
		return string(b), nil

	case TypeArray:
		if from == TypeJSON || from == TypeString {
			if text, ok := asText(value); ok {
				return decodeArray(text), nil
			}
		}
		return toArray(value), nil

	case TypeInt:
		n, err := toInt(value)
		return coerced(n, err, value, from, to)
	case TypeFloat:
		f, err := toFloat(value)
		return coerced(f, err, value, from, to)
	case TypeString:
		str, err := toString(value)
		return coerced(str, err, value, from, to)
	case TypeBool:
		return toBool(value), nil
	case TypeUUID:
		u, err := toUUID(value)
		return coerced(u, err, value, from, to)

	default:
		return value, nil
	}
}

func coerced(result any, err error, value any, from, to ValueType) (any, error) {
	if err != nil {
		return nil, &ConversionError{Value: value, From: from, To: to, Err: err}
	}
	return result, nil
}

func asText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

func decodeArray(text string) any {
	var out any
	if err := json.Unmarshal([]byte(text), &out); err != nil || out == nil {
		return []any{}
	}
	switch out.(type) {
	case []any, map[string]any:
		return out
	}
	return []any{out}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	}
	if str, err := toString(v); err == nil {
		return str
	}
	return fmt.Sprint(v)
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		return parseInt(n)
	case []byte:
		return parseInt(string(n))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, strconv.ErrRange
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), nil
	}
	return 0, ErrUnsupportedValue
}

func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		return parseFloat(n)
	case []byte:
		return parseFloat(string(n))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return 0, ErrUnsupportedValue
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case bool:
		if s {
			return "1", nil
		}
		return "", nil
	case uuid.UUID:
		return s.String(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	case reflect.String:
		return rv.String(), nil
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return "", ErrUnsupportedValue
}

// toBool follows loose truthiness: zero numbers, "", "0" and empty
// collections are false.
func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != "" && b != "0"
	case []byte:
		return len(b) > 0 && string(b) != "0"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// toArray returns maps and []any unchanged, copies other slices into []any
// and wraps scalars.
func toArray(v any) any {
	switch a := v.(type) {
	case []any, map[string]any:
		return a
	case []byte:
		return []any{string(a)}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

func toUUID(v any) (uuid.UUID, error) {
	switch u := v.(type) {
	case uuid.UUID:
		return u, nil
	case [16]byte:
		return uuid.UUID(u), nil
	case string:
		return uuid.Parse(u)
	case []byte:
		if len(u) == 16 {
			return uuid.FromBytes(u)
		}
		return uuid.ParseBytes(u)
	}
	return uuid.Nil, ErrUnsupportedValue
}
