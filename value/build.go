package value

// buildData constructs the immutable Data tree for a normalized denotable.
func buildData(d any) *Data {
	switch v := d.(type) {
	case dNumber:
		return numberData(float64(v))
	case dString:
		return stringData(string(v))
	case dList:
		children := make([]*Data, len(v))
		for i, item := range v {
			children[i] = buildData(item)
		}
		return listData(children)
	case dRecord:
		children := make([]*Data, len(v.values))
		for i, item := range v.values {
			children[i] = buildData(item)
		}
		return recordData(children)
	default:
		return nil
	}
}

// buildZeroData constructs a default-initialized Data tree for a Schema:
// Number -> 0, String -> "", List -> empty, Record -> recursively zeroed.
func buildZeroData(schema Schema) *Data {
	if schema.IsNone() {
		return nil
	}
	var build func(idx int) *Data
	build = func(idx int) *Data {
		switch schema[idx] {
		case int64(KindNumber):
			return numberData(0)
		case int64(KindString):
			return stringData("")
		case int64(KindList):
			return listData(nil)
		default: // Record
			count := int(schema[idx+1])
			children := make([]*Data, count)
			for i := 0; i < count; i++ {
				children[i] = build(subschemaStart(schema, idx, i))
			}
			return recordData(children)
		}
	}
	return build(0)
}

// buildDictionary constructs the Dictionary for a normalized denotable, or
// nil if the denotable contains no record anywhere in its tree; an unnamed
// record gets a Dictionary without keys.
func buildDictionary(d any) *Dictionary {
	switch v := d.(type) {
	case dNumber, dString:
		return nil
	case dList:
		if len(v) == 0 {
			return nil
		}
		return buildDictionary(v[0])
	case dRecord:
		children := make([]*Dictionary, len(v.values))
		for i, item := range v.values {
			children[i] = buildDictionary(item)
		}
		if v.keys == nil {
			return newUnnamedDictionary(children)
		}
		return newNamedDictionary(append([]string(nil), v.keys...), children)
	default:
		return nil
	}
}

// asDenotable reconstructs the normalized denotable tree for this Value so
// it can be embedded, compared or re-validated like any other input — e.g.
// when a Value is nested inside a list or record passed to FromDenotable.
func (v Value) asDenotable() any {
	if v.schema.IsNone() {
		return nil
	}
	var walk func(schema Schema, idx int, data *Data, dict *Dictionary) any
	walk = func(schema Schema, idx int, data *Data, dict *Dictionary) any {
		switch schema[idx] {
		case int64(KindNumber):
			return dNumber(data.num)
		case int64(KindString):
			return dString(data.str)
		case int64(KindList):
			childSchemaIdx := idx + 1
			items := make([]any, len(data.children))
			for i, c := range data.children {
				items[i] = walk(schema, childSchemaIdx, c, dict)
			}
			return dList(items)
		default: // Record
			count := int(schema[idx+1])
			values := make([]any, count)
			for i := 0; i < count; i++ {
				start := subschemaStart(schema, idx, i)
				values[i] = walk(schema, start, data.children[i], dict.child(i))
			}
			var keys []string
			if dict != nil && !dict.isEmpty() {
				keys = dict.order
			}
			return dRecord{keys: keys, values: values}
		}
	}
	return walk(v.schema, 0, v.data, v.dict)
}
