package value

// Dictionary is the side-table giving named-record slots a name -> index
// mapping. It mirrors the Schema's record structure: every List and Record
// subschema has a corresponding Dictionary node (lists carry their single
// element's dictionary), ground subschemas have none. Unnamed records still
// carry a Dictionary, just with an empty name map.
//
// A Dictionary is immutable and freely shared between Values, exactly like
// Schema and Data.
type Dictionary struct {
	order    []string      // key order, empty for unnamed records and non-records
	names    map[string]int // name -> slot index, nil for unnamed records
	children []*Dictionary  // one per record slot (or the single list element)
}

// Keys returns this Dictionary's known keys in declaration order, or nil if
// this is not a named record.
func (d *Dictionary) Keys() []string {
	if d == nil {
		return nil
	}
	return d.order
}

func (d *Dictionary) isEmpty() bool {
	return d == nil || len(d.names) == 0
}

func (d *Dictionary) slotFor(name string) (int, bool) {
	if d == nil || d.names == nil {
		return 0, false
	}
	idx, ok := d.names[name]
	return idx, ok
}

func (d *Dictionary) child(i int) *Dictionary {
	if d == nil || i < 0 || i >= len(d.children) {
		return nil
	}
	return d.children[i]
}

func newNamedDictionary(order []string, children []*Dictionary) *Dictionary {
	names := make(map[string]int, len(order))
	for i, n := range order {
		names[n] = i
	}
	return &Dictionary{order: order, names: names, children: children}
}

func newUnnamedDictionary(children []*Dictionary) *Dictionary {
	return &Dictionary{children: children}
}
