package painter

import "fmt"

// DrawCall is one fill or stroke operation in sketch order.
type DrawCall struct {
	Shapes    []Shape
	Paint     RGBA
	Opacity   float64
	Stroke    bool
	LineWidth float64
	Cap       string
	Join      string
}

// Hitbox binds a drawn shape back to the interface operator a `mark` call
// registered it under, for reverse-order hit testing.
type Hitbox struct {
	Shapes       []Shape
	InteropName  string
}

// Sketch is a Design's evaluated output: an ordered draw list plus the
// hitboxes marked within it.
type Sketch struct {
	Calls    []DrawCall
	Hitboxes []Hitbox
}

type designCall struct {
	kind        string // "fill", "stroke", "mark"
	shape       ShapeNode
	paint       PaintNode
	opacity     ValueNode
	lineWidth   ValueNode
	cap, join   string
	interopName string
}

// Design is an immutable list of fill/stroke/mark calls. Sketch re-
// evaluates every DAG node reachable from those calls once per call,
// bumping the shared evaluation generation first so each node's cache
// correctly distinguishes this sketch from the last.
type Design struct {
	calls      []designCall
	generation uint64
}

// NewDesign creates an empty Design ready for Fill/Stroke/Mark calls.
func NewDesign() *Design { return &Design{} }

// Fill appends a fill call.
func (d *Design) Fill(shape ShapeNode, paint PaintNode, opacity ValueNode) {
	d.calls = append(d.calls, designCall{kind: "fill", shape: shape, paint: paint, opacity: opacity})
}

// Stroke appends a stroke call.
func (d *Design) Stroke(shape ShapeNode, paint PaintNode, opacity ValueNode, lineWidth ValueNode, cap, join string) {
	d.calls = append(d.calls, designCall{
		kind: "stroke", shape: shape, paint: paint, opacity: opacity,
		lineWidth: lineWidth, cap: cap, join: join,
	})
}

// Mark registers shape as a hitbox bound to the named interface operator.
func (d *Design) Mark(shape ShapeNode, interopName string) {
	d.calls = append(d.calls, designCall{kind: "mark", shape: shape, interopName: interopName})
}

// Sketch increments the evaluation generation and evaluates every DAG
// node the Design's calls reach, producing a hit-testable draw list.
func (d *Design) Sketch(proxy NodeProxy) (Sketch, error) {
	d.generation++
	gen := d.generation

	var out Sketch
	for _, c := range d.calls {
		shapes, err := c.shape.Evaluate(gen, proxy)
		if err != nil {
			return Sketch{}, fmt.Errorf("painter: sketch failed evaluating shape: %w", err)
		}
		switch c.kind {
		case "fill":
			paint, err := c.paint.Evaluate(gen, proxy)
			if err != nil {
				return Sketch{}, fmt.Errorf("painter: sketch failed evaluating fill paint: %w", err)
			}
			opacity, err := evalOpacity(c.opacity, gen, proxy)
			if err != nil {
				return Sketch{}, err
			}
			out.Calls = append(out.Calls, DrawCall{Shapes: shapes, Paint: paint, Opacity: opacity})
		case "stroke":
			paint, err := c.paint.Evaluate(gen, proxy)
			if err != nil {
				return Sketch{}, fmt.Errorf("painter: sketch failed evaluating stroke paint: %w", err)
			}
			opacity, err := evalOpacity(c.opacity, gen, proxy)
			if err != nil {
				return Sketch{}, err
			}
			lineWidth := 1.0
			if c.lineWidth != nil {
				lw, err := c.lineWidth.Evaluate(gen, proxy)
				if err != nil {
					return Sketch{}, err
				}
				lineWidth = lw.Number()
			}
			out.Calls = append(out.Calls, DrawCall{
				Shapes: shapes, Paint: paint, Opacity: opacity, Stroke: true,
				LineWidth: lineWidth, Cap: c.cap, Join: c.join,
			})
		case "mark":
			out.Hitboxes = append(out.Hitboxes, Hitbox{Shapes: shapes, InteropName: c.interopName})
		}
	}

	// Hit testing walks hitboxes in reverse draw order: topmost-drawn
	// shape hit first.
	for i, j := 0, len(out.Hitboxes)-1; i < j; i, j = i+1, j-1 {
		out.Hitboxes[i], out.Hitboxes[j] = out.Hitboxes[j], out.Hitboxes[i]
	}
	return out, nil
}

func evalOpacity(node ValueNode, gen uint64, proxy NodeProxy) (float64, error) {
	if node == nil {
		return 1, nil
	}
	v, err := node.Evaluate(gen, proxy)
	if err != nil {
		return 0, fmt.Errorf("painter: sketch failed evaluating opacity: %w", err)
	}
	return v.Number(), nil
}
