package operator

import (
	"github.com/lyzr/notf/table"
	"github.com/lyzr/notf/value"
)

// Row is one operator: the hot-path unit the runtime keeps cache-local in a
// single table. Every cross-operator reference is a table.Handle, never a
// pointer, so a removed operator's stale handle fails cleanly.
type Row struct {
	Kind         string
	External     bool // bit 0: survives its own completion instead of being removed
	Multicast    bool // bit 1: may have more than one downstream
	Status       Status
	InputSchema  value.Schema // schema incoming Next values must match; nil accepts any
	Value        value.Value  // last emitted value, or the failure/completion payload
	Args         value.Value  // constructor arguments, immutable after creation
	Data         value.Value  // mutable per-operator state
	Upstream     []table.Handle
	Downstream   []table.Handle
}

// Descriptor is what a registry factory returns to seed a new Row.
type Descriptor struct {
	InitialValue value.Value
	InputSchema  value.Schema
	Args         value.Value
	Data         value.Value
	External     bool
	Multicast    bool
}

// Callbacks is the per-kind vtable: (create, on_next, on_fail, on_complete,
// on_subscribe).
type Callbacks struct {
	Create func(rt *Runtime, args value.Value) (Descriptor, error)

	// OnNext receives the incoming value (or an empty Value if
	// InputSchema is None) and returns the Row's new Data. Only called
	// for downstream rows during fan-out, never for the emitting row
	// itself.
	OnNext func(rt *Runtime, self table.Handle, source table.Handle, v value.Value) (value.Value, error)

	// OnFail and OnComplete run for side effects only; they may emit
	// further through rt.
	OnFail     func(rt *Runtime, self table.Handle, source table.Handle, v value.Value)
	OnComplete func(rt *Runtime, self table.Handle, source table.Handle, v value.Value)

	// OnSubscribe lets generator-style operators (Countdown, Sine, ...)
	// start producing once they gain their first subscriber.
	OnSubscribe func(rt *Runtime, self table.Handle, downstream table.Handle)
}

func appendHandleIfAbsent(list []table.Handle, h table.Handle) []table.Handle {
	for _, existing := range list {
		if existing == h {
			return list
		}
	}
	return append(list, h)
}

func removeHandle(list *[]table.Handle, h table.Handle) bool {
	for i, existing := range *list {
		if existing == h {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}
