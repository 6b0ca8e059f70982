package value

import "github.com/lyzr/notf/errs"

// Change is one (path, new data) pair for MultiMutate.
type Change struct {
	Path    []any
	NewData any
}

// Mutate returns a new Value with the data at path replaced by newData.
// newData's Schema must equal the Schema at the terminus (an empty list may
// replace or be replaced by a List slot). If the mutation does not change
// any leaf, Mutate returns the original Value unchanged (same identity) —
// callers may rely on this for cheap no-op detection.
func Mutate(v Value, path []any, newData any) (Value, error) {
	if v.IsNone() {
		return Value{}, errs.NewSchemaMismatch("cannot mutate the None Value")
	}
	newRoot, changed, err := mutateRecursive(v.data, newData, v.schema, 0, v.dict, path)
	if err != nil {
		return Value{}, err
	}
	if !changed {
		return v, nil
	}
	return Value{schema: v.schema, data: newRoot, dict: v.dict}, nil
}

// MultiMutate applies a batch of (path, new data) changes in order on top
// of a transient copy of v's Data, returning the original Value's identity
// iff no change in the batch altered anything.
func MultiMutate(v Value, changes []Change) (Value, error) {
	if v.IsNone() {
		return Value{}, errs.NewSchemaMismatch("cannot mutate the None Value")
	}
	data := v.data
	anyChanged := false
	for _, ch := range changes {
		next, changed, err := mutateRecursive(data, ch.NewData, v.schema, 0, v.dict, ch.Path)
		if err != nil {
			return Value{}, err
		}
		if changed {
			data = next
			anyChanged = true
		}
	}
	if !anyChanged {
		return v, nil
	}
	return Value{schema: v.schema, data: data, dict: v.dict}, nil
}

// mutateData is the terminal step of a mutation: current points at the
// Data to be replaced, schema/schemaIdx describe its expected Schema.
func mutateData(current *Data, newData any, schema Schema, schemaIdx int) (*Data, bool, error) {
	kind := schema[schemaIdx]

	denoted, err := createDenotable(newData, true, false)
	if err != nil {
		return nil, false, err
	}

	if list, ok := denoted.(dList); ok && len(list) == 0 {
		if Kind(kind) != KindList {
			return nil, false, errs.NewSchemaMismatch("cannot set a %s Value to the empty list", Kind(kind))
		}
		if current.length == 0 {
			return current, false, nil
		}
		return buildData(denoted), true, nil
	}

	dataSchema, err := schemaOfDenotable(denoted)
	if err != nil {
		return nil, false, err
	}
	end := subschemaEnd(schema, schemaIdx)
	currentSchema := schema[schemaIdx:end]
	if !schemaEqual(dataSchema, currentSchema) {
		return nil, false, errs.NewSchemaMismatch("cannot mutate a %s Value with incompatible data", Kind(kind))
	}

	result := buildData(denoted)
	if equalData(result, current) {
		return current, false, nil
	}
	return result, true, nil
}

// mutateRecursive walks path into current, applying newData at the
// terminus and rebuilding only the Data nodes on the path (structural
// sharing everywhere else).
func mutateRecursive(current *Data, newData any, schema Schema, schemaIdx int, dict *Dictionary, path []any) (*Data, bool, error) {
	if len(path) == 0 {
		return mutateData(current, newData, schema, schemaIdx)
	}

	kind := schema[schemaIdx]
	if kindIsGround(kind) {
		return nil, false, errs.NewIndexError("cannot descend into a %s Value", Kind(kind))
	}

	step := path[0]
	var index int
	switch s := step.(type) {
	case string:
		if Kind(kind) == KindList {
			return nil, false, errs.NewKeyError("cannot access a list by name %q", s)
		}
		if dict.isEmpty() {
			return nil, false, errs.NewKeyError("cannot access an unnamed record by name %q", s)
		}
		idx, ok := dict.slotFor(s)
		if !ok {
			return nil, false, errs.NewKeyError("unknown key %q in record, available keys: %v", s, dict.Keys())
		}
		index = idx
	case int:
		index = s
		size := len(current.children)
		if Kind(kind) == KindList && index < 0 {
			index = size + index
		} else if Kind(kind) == KindRecord && index < 0 {
			index = int(schema[schemaIdx+1]) + index
		}
	default:
		return nil, false, errs.NewIndexError("path step must be an int or string, not %T", step)
	}

	if index < 0 || index >= len(current.children) {
		return nil, false, errs.NewIndexError("path index %d out of range", index)
	}

	var nextSchemaIdx int
	var nextDict *Dictionary
	if Kind(kind) == KindList {
		nextSchemaIdx = schemaIdx + 1
		nextDict = dict
	} else {
		nextSchemaIdx = subschemaStart(schema, schemaIdx, index)
		nextDict = dict.child(index)
	}

	childResult, changed, err := mutateRecursive(current.children[index], newData, schema, nextSchemaIdx, nextDict, path[1:])
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return current, false, nil
	}
	return current.cloneWithChild(index, childResult), true, nil
}
