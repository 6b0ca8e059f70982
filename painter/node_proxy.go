package painter

import "github.com/lyzr/notf/value"

// NodeProxy is the minimal view of a scene Node a Design needs at sketch
// time: every interface operator's current value (for Interop ValueNodes
// and the `node` proxy available inside Expression scopes) and the
// node's current layout grant.
type NodeProxy interface {
	Interops() map[string]value.Value
	Grant() (width, height float64)
}
