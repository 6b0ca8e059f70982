package painter

// RGBA is a paint color in the 0..1 linear range per channel.
type RGBA struct{ R, G, B, A float64 }

// PaintNode produces a paint (color/brush) for a given evaluation
// generation.
type PaintNode interface {
	Evaluate(gen uint64, proxy NodeProxy) (RGBA, error)
}

type constantColorNode struct{ color RGBA }

// ConstantColor wraps a fixed RGBA as a PaintNode.
func ConstantColor(c RGBA) PaintNode { return &constantColorNode{color: c} }

func (n *constantColorNode) Evaluate(uint64, NodeProxy) (RGBA, error) { return n.color, nil }
