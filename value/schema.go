package value

// Schema is the integer-encoded type layout of a Value: a non-empty
// sequence of words where each word is either a ground-kind tag (None,
// Number, String), a container-kind tag (List, Record), a record child
// count, or a forward offset to a non-ground child's subschema.
type Schema []int64

var noneSchema = Schema{int64(KindNone)}

func (s Schema) IsNone() bool {
	return len(s) > 0 && s[0] == int64(KindNone)
}

// Kind returns the top-level Kind of the Schema.
func (s Schema) Kind() Kind { return Kind(s[0]) }

func schemaEqual(a, b Schema) bool {
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

// SchemaEqual reports whether a and b describe the same layout. Used by
// the operator runtime to enforce subscribe/emit schema compatibility.
func SchemaEqual(a, b Schema) bool { return schemaEqual(a, b) }

// schemaOfDenotable builds the Schema that would describe a Value
// containing the given normalized denotable.
func schemaOfDenotable(d any) (Schema, error) {
	switch v := d.(type) {
	case dNumber:
		return Schema{int64(KindNumber)}, nil
	case dString:
		return Schema{int64(KindString)}, nil
	case dList:
		if len(v) == 0 {
			// An empty list has no element to derive a child Schema from;
			// callers must supply a reference Schema in this case (see
			// FromJSON), so this path is only reached for a standalone
			// empty list, which is itself a construction error elsewhere.
			return Schema{int64(KindList), int64(KindNone)}, nil
		}
		child, err := schemaOfDenotable(v[0])
		if err != nil {
			return nil, err
		}
		out := make(Schema, 0, 1+len(child))
		out = append(out, int64(KindList))
		out = append(out, child...)
		return out, nil
	case dRecord:
		return schemaOfRecord(v)
	default:
		return nil, nil
	}
}

func schemaOfRecord(rec dRecord) (Schema, error) {
	n := len(rec.values)
	out := make(Schema, 2+n, 2+n*2)
	out[0] = int64(KindRecord)
	out[1] = int64(n)
	bodyStart := 2

	for i, child := range rec.values {
		k := kindOfDenotable(child)
		if kindIsGround(int64(k)) {
			out[bodyStart+i] = int64(k)
			continue
		}
		childSchema, err := schemaOfDenotable(child)
		if err != nil {
			return nil, err
		}
		offset := int64(len(out) - (bodyStart + i))
		if offset == 1 {
			// The single non-ground child is the last body slot: drop the
			// slot and splice its subschema in directly, saving a word.
			out = out[:len(out)-1]
			out = append(out, childSchema...)
		} else {
			out[bodyStart+i] = offset
			out = append(out, childSchema...)
		}
	}
	return out, nil
}

// subschemaStart returns the index of a Record child's subschema, resolving
// a body-slot forward offset if the child is non-ground.
func subschemaStart(schema Schema, recordStart, childIndex int) int {
	slot := recordStart + 2 + childIndex
	word := schema[slot]
	if kindIsOffset(word) {
		return slot + int(word)
	}
	return slot
}

// subschemaEnd returns the index one past the subschema starting at start.
func subschemaEnd(schema Schema, start int) int {
	word := schema[start]
	if kindIsGround(word) {
		return start + 1
	}
	if Kind(word) == KindList {
		return subschemaEnd(schema, start+1)
	}
	// Record: walk backwards over the body to find the end of the
	// rightmost non-ground child, since that child's subschema is appended
	// last.
	count := int(schema[start+1])
	for i := count - 1; i >= 0; i-- {
		slot := start + 2 + i
		word := schema[slot]
		if kindIsGround(word) {
			continue
		}
		if kindIsOffset(word) {
			return subschemaEnd(schema, slot+int(word))
		}
		return subschemaEnd(schema, slot)
	}
	return start + 2 + count
}
