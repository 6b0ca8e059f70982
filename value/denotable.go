package value

import (
	"fmt"

	"github.com/lyzr/notf/errs"
)

// Object is ordered denotable input for a named record: unlike a Go map,
// key order is preserved, which matters because it becomes the Dictionary's
// declaration order and the as_json encoding order.
type Object []KV

// KV is one named-record entry of an Object.
type KV struct {
	Key   string
	Value any
}

// Tuple is denotable input for an unnamed (fixed-length, heterogeneous)
// record. A plain Go slice is always treated as a List (homogeneous); Tuple
// is the explicit marker for the unnamed-record shape.
type Tuple []any

// dNumber, dString, dList and dRecord are the normalized denotable shapes
// produced by createDenotable; every Schema/Data/Dictionary builder walks
// one of these instead of re-validating raw Go values.
type dNumber float64
type dString string
type dList []any
type dRecord struct {
	keys   []string // nil for an unnamed record
	values []any
}

// createDenotable validates and normalizes obj into one of dNumber, dString,
// dList or dRecord. obj must not be None (nil) at this level; None may only
// ever be the value of the whole Value, never nested inside a container.
func createDenotable(obj any, allowEmptyList bool, listCanBeRecord bool) (any, error) {
	switch v := obj.(type) {
	case *Value:
		return v.asDenotable(), nil
	case Value:
		return v.asDenotable(), nil
	case dNumber, dString, dList, dRecord:
		return v, nil
	case float64:
		return dNumber(v), nil
	case float32:
		return dNumber(v), nil
	case int:
		return dNumber(v), nil
	case int64:
		return dNumber(v), nil
	case string:
		return dString(v), nil
	case nil:
		return nil, errs.NewSchemaMismatch("if present, None must be the only data in a Value")
	case []any:
		return createListDenotable(v, allowEmptyList, listCanBeRecord)
	case Tuple:
		return createTupleDenotable(v, allowEmptyList, listCanBeRecord)
	case Object:
		return createObjectDenotable(v, allowEmptyList, listCanBeRecord)
	default:
		return nil, errs.NewSchemaMismatch("cannot construct a Value from a %T", obj)
	}
}

func createListDenotable(items []any, allowEmptyList, listCanBeRecord bool) (any, error) {
	// JSON decodes unnamed records and lists identically; a list whose first
	// element is literal null is reinterpreted as an unnamed record.
	if listCanBeRecord && len(items) > 0 && items[0] == nil {
		return createTupleDenotable(Tuple(items[1:]), allowEmptyList, listCanBeRecord)
	}

	denoted := make([]any, 0, len(items))
	for _, item := range items {
		d, err := createDenotable(item, allowEmptyList, listCanBeRecord)
		if err != nil {
			return nil, err
		}
		denoted = append(denoted, d)
	}

	if len(denoted) == 0 {
		if allowEmptyList {
			return dList(nil), nil
		}
		return nil, errs.NewSchemaMismatch("lists cannot be empty during Value construction")
	}

	refSchema, err := schemaOfDenotable(denoted[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(denoted); i++ {
		s, err := schemaOfDenotable(denoted[i])
		if err != nil {
			return nil, err
		}
		if !schemaEqual(s, refSchema) {
			return nil, errs.NewSchemaMismatch("all items in a list must have the same Schema")
		}
	}
	if rec, ok := denoted[0].(dRecord); ok {
		for i := 1; i < len(denoted); i++ {
			other := denoted[i].(dRecord)
			if !sameKeys(rec.keys, other.keys) {
				return nil, errs.NewSchemaMismatch("all records in a list must have the same Dictionary")
			}
		}
	}
	return dList(denoted), nil
}

func createTupleDenotable(items Tuple, allowEmptyList, listCanBeRecord bool) (any, error) {
	if len(items) == 0 {
		return nil, errs.NewSchemaMismatch("records cannot be empty")
	}
	values := make([]any, 0, len(items))
	for _, item := range items {
		d, err := createDenotable(item, allowEmptyList, listCanBeRecord)
		if err != nil {
			return nil, err
		}
		values = append(values, d)
	}
	return dRecord{keys: nil, values: values}, nil
}

func createObjectDenotable(obj Object, allowEmptyList, listCanBeRecord bool) (any, error) {
	if len(obj) == 0 {
		return nil, errs.NewSchemaMismatch("records cannot be empty")
	}
	seen := make(map[string]bool, len(obj))
	keys := make([]string, 0, len(obj))
	values := make([]any, 0, len(obj))
	for _, kv := range obj {
		if seen[kv.Key] {
			return nil, errs.NewSchemaMismatch("duplicate record key %q", kv.Key)
		}
		seen[kv.Key] = true
		d, err := createDenotable(kv.Value, allowEmptyList, listCanBeRecord)
		if err != nil {
			return nil, err
		}
		keys = append(keys, kv.Key)
		values = append(values, d)
	}
	return dRecord{keys: keys, values: values}, nil
}

func sameKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func kindOfDenotable(d any) Kind {
	switch d.(type) {
	case dNumber:
		return KindNumber
	case dString:
		return KindString
	case dList:
		return KindList
	case dRecord:
		return KindRecord
	default:
		panic(fmt.Sprintf("unreachable: %T is not a normalized denotable", d))
	}
}
