// Package painter implements the Design -> Sketch pipeline: an immutable
// DAG of ValueNode/ShapeNode/PaintNode evaluated once per generation into
// a list of draw calls and hitboxes. Interop and Expression value nodes
// cache their Value for the current generation, so a node shared by
// several calls is evaluated once per Sketch; every Sketch starts a new
// generation, so nothing is reused across sketches, and shape and paint
// nodes do not cache.
package painter

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/lyzr/notf/errs"
	"github.com/lyzr/notf/value"
)

// ValueNode produces a Value for a given evaluation generation, caching
// its last result so repeated Evaluate calls within the same sketch are
// free.
type ValueNode interface {
	Evaluate(gen uint64, proxy NodeProxy) (value.Value, error)
}

// constantValueNode always evaluates to the same Value.
type constantValueNode struct{ v value.Value }

// Constant wraps a fixed Value as a ValueNode.
func Constant(v value.Value) ValueNode { return &constantValueNode{v: v} }

func (c *constantValueNode) Evaluate(uint64, NodeProxy) (value.Value, error) { return c.v, nil }

// interopValueNode fetches a node's named interface operator value,
// caching it per generation.
type interopValueNode struct {
	name     string
	cacheGen uint64
	cached   value.Value
	hasCache bool
}

// Interop builds a ValueNode that reads the current value of the node's
// named interface operator.
func Interop(name string) ValueNode { return &interopValueNode{name: name} }

func (n *interopValueNode) Evaluate(gen uint64, proxy NodeProxy) (value.Value, error) {
	if n.hasCache && n.cacheGen == gen {
		return n.cached, nil
	}
	v, ok := proxy.Interops()[n.name]
	if !ok {
		return value.Value{}, errs.NewKeyError("no interface operator named %q", n.name)
	}
	n.cacheGen, n.cached, n.hasCache = gen, v, true
	return v, nil
}

// expressionValueNode evaluates a textual CEL expression with its scope's
// sub-values plus `node` (the proxy's current interops) and `grant` (the
// node's current layout dimensions) in scope. Compiled once at
// construction and cached per generation at evaluation time — the same
// compile-once-cache-by-key discipline the condition evaluator uses for
// its CEL programs, specialized here to one program per DAG node instead
// of one per distinct expression string.
type expressionValueNode struct {
	source  string
	scope   map[string]ValueNode
	program cel.Program

	mu       sync.Mutex
	cacheGen uint64
	cached   value.Value
	hasCache bool
}

// Expression compiles source once against a variable for every name in
// scope plus `node` and `grant`, and returns a ValueNode that evaluates
// it with those variables bound to the scope's current values.
func Expression(source string, scope map[string]ValueNode) (ValueNode, error) {
	opts := []cel.EnvOption{
		cel.Variable("node", cel.DynType),
		cel.Variable("grant", cel.DynType),
	}
	for name := range scope {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("painter: failed to build expression environment: %w", err)
	}
	ast, issues := env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("painter: failed to compile expression %q: %w", source, issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("painter: failed to build expression program for %q: %w", source, err)
	}
	return &expressionValueNode{source: source, scope: scope, program: program}, nil
}

func (n *expressionValueNode) Evaluate(gen uint64, proxy NodeProxy) (value.Value, error) {
	n.mu.Lock()
	if n.hasCache && n.cacheGen == gen {
		defer n.mu.Unlock()
		return n.cached, nil
	}
	n.mu.Unlock()

	vars := make(map[string]any, len(n.scope)+2)
	for name, node := range n.scope {
		v, err := node.Evaluate(gen, proxy)
		if err != nil {
			return value.Value{}, err
		}
		vars[name] = denotableOf(v)
	}
	nodeVars := make(map[string]any)
	for k, v := range proxy.Interops() {
		nodeVars[k] = denotableOf(v)
	}
	vars["node"] = nodeVars
	w, h := proxy.Grant()
	vars["grant"] = map[string]any{"width": w, "height": h}

	out, _, err := n.program.Eval(vars)
	if err != nil {
		return value.Value{}, fmt.Errorf("painter: expression %q failed: %w", n.source, err)
	}
	result, err := value.FromDenotable(out.Value())
	if err != nil {
		return value.Value{}, fmt.Errorf("painter: expression %q produced a non-Value result: %w", n.source, err)
	}

	n.mu.Lock()
	n.cacheGen, n.cached, n.hasCache = gen, result, true
	n.mu.Unlock()
	return result, nil
}

// denotableOf unwraps a Value to the plain Go shape CEL's DynType can
// reason about (numbers and strings pass straight through; containers
// fall back to their JSON text since CEL doesn't need to address inside
// them for the expressions this DAG evaluates).
func denotableOf(v value.Value) any {
	switch {
	case v.IsNumber():
		return v.Number()
	case v.IsString():
		return v.String()
	case v.IsNone():
		return nil
	default:
		text, _ := value.AsJSON(v)
		return text
	}
}
