// Package value implements the self-describing, structurally-typed,
// persistent Value documented in the runtime's data model: a triple of
// Schema (integer layout), Data (immutable tree) and an optional Dictionary
// (name -> slot index side table for records).
package value

import "math"

// Kind is a Schema word. Only five values are ever valid Kinds; every other
// word in a Schema is a forward offset to a non-ground child subschema. None
// and Number sit at the bottom of the int64 range and String, List and
// Record sit at the top, so validity is a single range check: a word is a
// Kind iff it is <= Number or >= String. The ground Kinds are Number and
// String; List and Record are the containers.
type Kind int64

const (
	KindNone   Kind = 0
	KindNumber Kind = 1
	KindString Kind = Kind(math.MaxInt64 - 2)
	KindList   Kind = Kind(math.MaxInt64 - 1)
	KindRecord Kind = Kind(math.MaxInt64)
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindList:
		return "List"
	case KindRecord:
		return "Record"
	default:
		return "offset"
	}
}

// kindIsValid reports whether word denotes one of the five Kinds rather
// than a forward offset into the Schema.
func kindIsValid(word int64) bool {
	return !(int64(KindNumber) < word && word < int64(KindString))
}

func kindIsOffset(word int64) bool { return !kindIsValid(word) }

func kindIsGround(word int64) bool {
	return word == int64(KindNumber) || word == int64(KindString)
}

func kindIsNone(word int64) bool { return word == int64(KindNone) }
