package scene

import "github.com/lyzr/notf/value"

// Grant is the width/height a layout hands a child node.
type Grant struct {
	Width, Height float64
}

// Layout computes a Grant per child from a node's own Grant. Concrete
// layouts are out of scope for the core's detailed algorithm (spec.md
// covers only the relayout propagation rule), so this package supplies a
// small closed registry rather than a general flexbox engine.
type Layout interface {
	// Compute returns one Grant per entry in children, in order.
	Compute(self Grant, children []Grant) []Grant
}

// LayoutFactory builds a Layout from its constructor arguments.
type LayoutFactory func(args value.Value) (Layout, error)

var layoutRegistry = map[string]LayoutFactory{
	"Stack":  newStackLayout,
	"Fixed":  newFixedLayout,
}

// RegisterLayout adds a layout kind to the registry used by
// transition_into's "create the layout by index and args" step.
func RegisterLayout(kind string, factory LayoutFactory) {
	layoutRegistry[kind] = factory
}

func createLayout(kind string, args value.Value) (Layout, error) {
	factory, ok := layoutRegistry[kind]
	if !ok {
		return noLayout{}, nil
	}
	return factory(args)
}

// noLayout grants every child the parent's full size, for node
// descriptions with no children or no layout of interest.
type noLayout struct{}

func (noLayout) Compute(self Grant, children []Grant) []Grant {
	out := make([]Grant, len(children))
	for i := range out {
		out[i] = self
	}
	return out
}

// stackLayout divides self evenly among children along one axis.
type stackLayout struct{ horizontal bool }

func newStackLayout(args value.Value) (Layout, error) {
	horizontal := false
	if v, err := args.Index("horizontal"); err == nil {
		horizontal = v.Number() != 0
	}
	return &stackLayout{horizontal: horizontal}, nil
}

func (l *stackLayout) Compute(self Grant, children []Grant) []Grant {
	out := make([]Grant, len(children))
	if len(children) == 0 {
		return out
	}
	if l.horizontal {
		share := self.Width / float64(len(children))
		for i := range out {
			out[i] = Grant{Width: share, Height: self.Height}
		}
		return out
	}
	share := self.Height / float64(len(children))
	for i := range out {
		out[i] = Grant{Width: self.Width, Height: share}
	}
	return out
}

// fixedLayout grants every child the same caller-supplied size
// regardless of self, for nodes whose children are not meant to fill
// their parent.
type fixedLayout struct{ width, height float64 }

func newFixedLayout(args value.Value) (Layout, error) {
	l := &fixedLayout{}
	if v, err := args.Index("width"); err == nil {
		l.width = v.Number()
	}
	if v, err := args.Index("height"); err == nil {
		l.height = v.Number()
	}
	return l, nil
}

func (l *fixedLayout) Compute(self Grant, children []Grant) []Grant {
	out := make([]Grant, len(children))
	for i := range out {
		out[i] = Grant{Width: l.width, Height: l.height}
	}
	return out
}
