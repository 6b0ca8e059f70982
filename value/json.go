package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/lyzr/notf/errs"
	"github.com/tidwall/gjson"
)

// AsJSON serializes v per the persisted-state encoding: integral numbers as
// JSON integers, non-integral as floats, lists as JSON arrays, named
// records as JSON objects, and unnamed records as JSON arrays whose first
// element is the JSON null sentinel.
func AsJSON(v Value) (string, error) {
	if v.IsNone() {
		return "null", nil
	}
	var b strings.Builder
	writeJSON(&b, v.schema, 0, v.data, v.dict)
	return b.String(), nil
}

func writeJSON(b *strings.Builder, schema Schema, idx int, data *Data, dict *Dictionary) {
	switch schema[idx] {
	case int64(KindNumber):
		writeNumber(b, data.num)
	case int64(KindString):
		writeJSONString(b, data.str)
	case int64(KindList):
		b.WriteByte('[')
		childIdx := idx + 1
		for i, c := range data.children {
			if i > 0 {
				b.WriteString(", ")
			}
			writeJSON(b, schema, childIdx, c, dict)
		}
		b.WriteByte(']')
	default: // Record
		count := int(schema[idx+1])
		if dict.isEmpty() {
			b.WriteString("[null")
			for i := 0; i < count; i++ {
				b.WriteString(", ")
				start := subschemaStart(schema, idx, i)
				var childDict *Dictionary
				if dict != nil {
					childDict = dict.child(i)
				}
				writeJSON(b, schema, start, data.children[i], childDict)
			}
			b.WriteByte(']')
			return
		}
		b.WriteByte('{')
		for i, key := range dict.order {
			if i > 0 {
				b.WriteString(", ")
			}
			writeJSONString(b, key)
			b.WriteString(": ")
			slot, _ := dict.slotFor(key)
			start := subschemaStart(schema, idx, slot)
			writeJSON(b, schema, start, data.children[slot], dict.child(slot))
		}
		b.WriteByte('}')
	}
}

func writeNumber(b *strings.Builder, n float64) {
	if math.Trunc(n) == n && !math.IsInf(n, 0) {
		b.WriteString(strconv.FormatInt(int64(n), 10))
	} else {
		b.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
	}
}

func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

// FromJSON deserializes a Value from JSON text. If reference is non-nil,
// the decoded Value adopts reference's Schema at matching paths so empty
// JSON arrays (which otherwise cannot denote a List) are accepted; without
// a reference, an empty array is a construction error like any other empty
// list.
func FromJSON(text string, reference *Value) (Value, error) {
	parsed := gjson.Parse(text)
	if !parsed.Exists() && text != "null" {
		return Value{}, errs.NewSchemaMismatch("invalid JSON: %s", text)
	}
	if parsed.Type == gjson.Null {
		return None, nil
	}

	raw := decodeGJSON(parsed)
	allowEmpty := reference != nil
	denoted, err := createDenotable(raw, allowEmpty, true)
	if err != nil {
		return Value{}, err
	}

	var schema Schema
	var dict *Dictionary
	if reference != nil {
		schema = reference.schema
		dict = reference.dict
	} else {
		schema, err = schemaOfDenotable(denoted)
		if err != nil {
			return Value{}, err
		}
		dict = buildDictionary(denoted)
	}
	return Value{schema: schema, data: buildData(denoted), dict: dict}, nil
}

// decodeGJSON walks a parsed gjson.Result into the plain-Go shapes
// createDenotable accepts ([]any for arrays, Object for objects, float64,
// string, nil), preserving
// source key order for objects — the reason FromJSON uses gjson rather
// than encoding/json's order-losing map[string]interface{}.
func decodeGJSON(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.Number:
		return r.Num
	case gjson.String:
		return r.Str
	case gjson.True:
		return float64(1)
	case gjson.False:
		return float64(0)
	default:
		if r.IsArray() {
			items := make([]any, 0)
			r.ForEach(func(_, value gjson.Result) bool {
				items = append(items, decodeGJSON(value))
				return true
			})
			return items
		}
		if r.IsObject() {
			var obj Object
			r.ForEach(func(key, value gjson.Result) bool {
				obj = append(obj, KV{Key: key.String(), Value: decodeGJSON(value)})
				return true
			})
			return objectToDenotableList(obj)
		}
		return nil
	}
}

// objectToDenotableList defers object handling to createObjectDenotable by
// passing the Object straight through createDenotable.
func objectToDenotableList(obj Object) any { return obj }
