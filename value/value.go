package value

import (
	"math"

	"github.com/lyzr/notf/errs"
)

// Value is the immutable, persistent, schema-typed data container described
// by the runtime's data model: a (Schema, Data, optional Dictionary)
// triple. The zero Value is the None Value.
type Value struct {
	schema Schema
	data   *Data
	dict   *Dictionary
}

// None is the singleton None Value; None may not be nested inside a list or
// record.
var None = Value{schema: noneSchema}

// FromDenotable builds a Value from native Go structural data: nil,
// float64/int/int64, string, []any (homogeneous list), Object (named
// record) or Tuple (unnamed record), or an already-built Value for nesting.
//
// It fails on empty lists at the top level, empty records, non-string
// record keys, mixed schemas or keysets inside a list, and nested None —
// exactly the construction restrictions of the source data model.
func FromDenotable(obj any) (Value, error) {
	if obj == nil {
		return None, nil
	}
	denoted, err := createDenotable(obj, false, false)
	if err != nil {
		return Value{}, err
	}
	schema, err := schemaOfDenotable(denoted)
	if err != nil {
		return Value{}, err
	}
	return Value{schema: schema, data: buildData(denoted), dict: buildDictionary(denoted)}, nil
}

// MustFromDenotable is FromDenotable for call sites constructing a Value
// from data known at compile time to be constructible (e.g. wrapping a Go
// error's message as a failure payload). It panics on error.
func MustFromDenotable(obj any) Value {
	v, err := FromDenotable(obj)
	if err != nil {
		panic(err)
	}
	return v
}

// FromSchema zero-initializes a Value of the given Schema.
func FromSchema(schema Schema) Value {
	if schema.IsNone() {
		return None
	}
	return Value{schema: schema, data: buildZeroData(schema)}
}

// Schema returns this Value's Schema.
func (v Value) Schema() Schema { return v.schema }

// Kind returns this Value's top-level Kind.
func (v Value) Kind() Kind {
	if len(v.schema) == 0 {
		return KindNone
	}
	return v.schema.Kind()
}

func (v Value) IsNone() bool   { return v.Kind() == KindNone }
func (v Value) IsNumber() bool { return v.Kind() == KindNumber }
func (v Value) IsString() bool { return v.Kind() == KindString }
func (v Value) IsList() bool   { return v.Kind() == KindList }
func (v Value) IsRecord() bool { return v.Kind() == KindRecord }

// Keys returns the known record keys in declaration order, or nil if this
// is not a named record.
func (v Value) Keys() []string { return v.dict.Keys() }

// Number returns the underlying float64. Panics if not called on a Number
// Value; callers must check Kind first, mirroring the source's __float__.
func (v Value) Number() float64 {
	if !v.IsNumber() {
		panic("value: Number() called on a non-Number Value")
	}
	return v.data.num
}

// String returns the underlying string. Panics if not called on a String
// Value.
func (v Value) String() string {
	if !v.IsString() {
		panic("value: String() called on a non-String Value")
	}
	return v.data.str
}

// Len returns the number of child elements for a List or Record Value, or
// zero otherwise.
func (v Value) Len() int {
	switch v.Kind() {
	case KindList:
		return v.data.length
	case KindRecord:
		return int(v.schema[1])
	default:
		return 0
	}
}

// MustIndex is Index for call sites that already know key resolves (e.g.
// reading a named constructor argument whose presence the kind's Create
// callback validated). It panics on error.
func (v Value) MustIndex(key any) Value {
	result, err := v.Index(key)
	if err != nil {
		panic(err)
	}
	return result
}

// Index addresses a child of a List or Record Value. key must be an int
// (list, unnamed record, or named record by position; negative indices
// count from the end) or a string (named record only).
func (v Value) Index(key any) (Value, error) {
	switch v.Kind() {
	case KindList:
		idx, ok := key.(int)
		if !ok {
			return Value{}, errs.NewKeyError("lists must be accessed using an integer index, not %T", key)
		}
		return v.indexByPosition(idx)
	case KindRecord:
		switch k := key.(type) {
		case int:
			return v.indexByPosition(k)
		case string:
			return v.indexByName(k)
		default:
			return Value{}, errs.NewKeyError("records must be accessed using an index or a string, not %T", key)
		}
	default:
		return Value{}, errs.NewKeyError("cannot index a %s Value", v.Kind())
	}
}

func (v Value) indexByPosition(index int) (Value, error) {
	size := v.Len()
	if index < 0 {
		index = size + index
	}
	if index < 0 || index >= size {
		return Value{}, errs.NewIndexError("index %d out of range for a %s of size %d", index, v.Kind(), size)
	}

	if v.Kind() == KindList {
		start := 1
		end := subschemaEnd(v.schema, start)
		return Value{
			schema: append(Schema(nil), v.schema[start:end]...),
			data:   v.data.children[index],
			dict:   v.dict,
		}, nil
	}

	start := subschemaStart(v.schema, 0, index)
	end := subschemaEnd(v.schema, start)
	return Value{
		schema: append(Schema(nil), v.schema[start:end]...),
		data:   v.data.children[index],
		dict:   v.dict.child(index),
	}, nil
}

func (v Value) indexByName(name string) (Value, error) {
	if v.dict.isEmpty() {
		return Value{}, errs.NewKeyError("this record has only unnamed entries, use an index to access them")
	}
	idx, ok := v.dict.slotFor(name)
	if !ok {
		return Value{}, errs.NewKeyError("unknown key %q in record, available keys: %v", name, v.dict.Keys())
	}
	return v.indexByPosition(idx)
}

// Equal compares Schema and Data; Dictionary is ignored, so a named record
// is equal to a differently-named record of the same shape iff the data
// compares equal.
func (v Value) Equal(other Value) bool {
	return schemaEqual(v.schema, other.schema) && equalData(v.data, other.data)
}

// EqualNumber reports whether this Value is a Number equal to n.
func (v Value) EqualNumber(n float64) bool { return v.IsNumber() && v.data.num == n }

// EqualString reports whether this Value is a String equal to s.
func (v Value) EqualString(s string) bool { return v.IsString() && v.data.str == s }

func (v Value) withNumber(n float64) Value {
	return Value{schema: v.schema, data: numberData(n), dict: v.dict}
}

// Arithmetic. All operate on, and return, Number Values.
func (v Value) Neg() Value   { return v.withNumber(-v.Number()) }
func (v Value) Pos() Value   { return v.withNumber(+v.Number()) }
func (v Value) Abs() Value   { return v.withNumber(math.Abs(v.Number())) }
func (v Value) Floor() Value { return v.withNumber(math.Floor(v.Number())) }
func (v Value) Ceil() Value  { return v.withNumber(math.Ceil(v.Number())) }
func (v Value) Round() Value { return v.withNumber(math.Round(v.Number())) }
func (v Value) Trunc() Value { return v.withNumber(math.Trunc(v.Number())) }

func Add(a, b Value) Value { return a.withNumber(a.Number() + b.Number()) }
func Sub(a, b Value) Value { return a.withNumber(a.Number() - b.Number()) }
func Mul(a, b Value) Value { return a.withNumber(a.Number() * b.Number()) }
func Div(a, b Value) Value { return a.withNumber(a.Number() / b.Number()) }
func IDiv(a, b Value) Value {
	return a.withNumber(math.Floor(a.Number() / b.Number()))
}
func Mod(a, b Value) Value { return a.withNumber(math.Mod(a.Number(), b.Number())) }
func Pow(a, b Value) Value { return a.withNumber(math.Pow(a.Number(), b.Number())) }

// Comparisons: numbers compare numerically.
func Less(a, b Value) bool      { return a.Number() < b.Number() }
func LessEqual(a, b Value) bool { return a.Number() <= b.Number() }
func Greater(a, b Value) bool   { return a.Number() > b.Number() }
func GreaterEq(a, b Value) bool { return a.Number() >= b.Number() }
