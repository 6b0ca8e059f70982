// Package operator implements the table-backed operator graph: the
// subscribe/unsubscribe/emit/run machinery described for the dataflow
// core, with at-most-one-concurrent-emission-per-operator, cyclic-emission
// detection, auto-completion, and schema-compatibility enforcement.
package operator

import (
	"context"
	"fmt"

	"github.com/lyzr/notf/errs"
	"github.com/lyzr/notf/table"
	"github.com/lyzr/notf/value"
)

// Scheduler enqueues a callable onto the owning event loop. operator.Runtime
// depends only on this narrow interface, not on the eventloop package
// itself, so the two can be wired together without an import cycle.
type Scheduler interface {
	Schedule(fn func())
}

// Runtime owns the operator table and the per-kind registry, and is the
// single entry point every graph mutation goes through.
type Runtime struct {
	ctx       context.Context
	scheduler Scheduler
	rows      *table.Table[Row]
	registry  map[string]Callbacks
}

// NewRuntime creates an empty Runtime. ctx bounds every async Schedule
// callback; scheduler is where their completions are re-applied.
func NewRuntime(ctx context.Context, scheduler Scheduler) *Runtime {
	return &Runtime{
		ctx:       ctx,
		scheduler: scheduler,
		rows:      table.New[Row](),
		registry:  make(map[string]Callbacks),
	}
}

// Register adds kind to the registry. Adding a kind is purely this call;
// nothing else in the runtime needs to change.
func (rt *Runtime) Register(kind string, cb Callbacks) {
	rt.registry[kind] = cb
}

// Row returns a read view of the row addressed by h, or false if stale.
func (rt *Runtime) Row(h table.Handle) (Row, bool) {
	return rt.rows.Get(h)
}

// Create calls kind's registry factory and inserts the resulting row with
// status Idle.
func (rt *Runtime) Create(kind string, args value.Value) (table.Handle, error) {
	cb, ok := rt.registry[kind]
	if !ok {
		return table.Handle{}, errs.NewKeyError("unknown operator kind %q", kind)
	}
	desc, err := cb.Create(rt, args)
	if err != nil {
		return table.Handle{}, err
	}
	row := Row{
		Kind:        kind,
		External:    desc.External,
		Multicast:   desc.Multicast,
		Status:      Idle,
		InputSchema: desc.InputSchema,
		Value:       desc.InitialValue,
		Args:        desc.Args,
		Data:        desc.Data,
	}
	return rt.rows.Insert(row), nil
}

// Subscribe links downstream to upstream per the runtime's subscription
// rules, synthesizing a single replay callback if upstream already
// completed.
func (rt *Runtime) Subscribe(upstream, downstream table.Handle) error {
	uRow := rt.rows.GetPtr(upstream)
	dRow := rt.rows.GetPtr(downstream)
	if uRow == nil {
		return errs.NewIndexError("subscribe: upstream %s is not a live handle", upstream)
	}
	if dRow == nil {
		return errs.NewIndexError("subscribe: downstream %s is not a live handle", downstream)
	}
	if dRow.InputSchema != nil && !value.SchemaEqual(dRow.InputSchema, uRow.Value.Schema()) {
		return errs.NewSchemaMismatch("subscribe: downstream input schema does not match upstream value schema")
	}

	if uRow.Status.IsTerminal() {
		kind := Next
		switch uRow.Status {
		case Failed:
			kind = Fail
		case Completed:
			kind = Complete
		}
		rt.run(downstream, upstream, kind, uRow.Value)
		return nil
	}

	if !uRow.Multicast && len(uRow.Downstream) > 0 {
		return errs.NewSchemaMismatch("subscribe: non-multicast upstream %s already has a downstream", upstream)
	}

	uRow.Downstream = appendHandleIfAbsent(uRow.Downstream, downstream)
	dRow.Upstream = appendHandleIfAbsent(dRow.Upstream, upstream)

	if cb, ok := rt.registry[uRow.Kind]; ok && cb.OnSubscribe != nil {
		cb.OnSubscribe(rt, upstream, downstream)
	}
	return nil
}

// unlink removes the mutual (upstream, downstream) edge with no further
// side effects. Returns false if the edge was already absent.
func (rt *Runtime) unlink(upstream, downstream table.Handle) bool {
	uRow := rt.rows.GetPtr(upstream)
	dRow := rt.rows.GetPtr(downstream)
	if uRow == nil || dRow == nil {
		return false
	}
	if !removeHandle(&uRow.Downstream, downstream) {
		return false
	}
	removeHandle(&dRow.Upstream, upstream)
	return true
}

// Unsubscribe detaches downstream from upstream. If upstream is internal
// and now has no downstream left, it is removed (recursively). If
// downstream now has no upstream left and is not already terminal, it
// auto-completes — the leaf-ward propagation the auto-completion rule
// describes.
func (rt *Runtime) Unsubscribe(upstream, downstream table.Handle) {
	if !rt.unlink(upstream, downstream) {
		return
	}
	if uRow := rt.rows.GetPtr(upstream); uRow != nil && !uRow.External && len(uRow.Downstream) == 0 {
		rt.removeOperator(upstream)
	}
	if dRow := rt.rows.GetPtr(downstream); dRow != nil && len(dRow.Upstream) == 0 && !dRow.Status.IsTerminal() {
		_ = rt.Emit(downstream, Complete, value.None)
	}
}

// removeOperator tears op fully out of the graph: detaches it from every
// upstream (cascading the same removal check upward) and every downstream
// (cascading auto-completion downward), then drops its row.
func (rt *Runtime) removeOperator(op table.Handle) {
	row := rt.rows.GetPtr(op)
	if row == nil {
		return
	}
	upstreamCopy := append([]table.Handle(nil), row.Upstream...)
	downstreamCopy := append([]table.Handle(nil), row.Downstream...)

	for _, u := range upstreamCopy {
		rt.unlink(u, op)
		if uRow := rt.rows.GetPtr(u); uRow != nil && !uRow.External && len(uRow.Downstream) == 0 {
			rt.removeOperator(u)
		}
	}
	for _, d := range downstreamCopy {
		rt.unlink(op, d)
		if dRow := rt.rows.GetPtr(d); dRow != nil && len(dRow.Upstream) == 0 && !dRow.Status.IsTerminal() {
			_ = rt.Emit(d, Complete, value.None)
		}
	}
	rt.rows.Remove(op)
}

// Emit is the single entry point for all three emission channels.
func (rt *Runtime) Emit(op table.Handle, kind EmitKind, v value.Value) error {
	row := rt.rows.GetPtr(op)
	if row == nil {
		return errs.NewIndexError("emit: %s is not a live handle", op)
	}
	if row.Status.IsTerminal() {
		return nil
	}
	if row.Status.IsActive() {
		return rt.forceFail(op, errs.NewCyclicEmission(fmt.Sprintf("%s (status=%s)", op, row.Status)))
	}
	return rt.emitLocked(op, kind, v)
}

// forceFail routes a cyclic-emission violation straight to the failure
// sink without recursing through Emit's active-status guard again.
func (rt *Runtime) forceFail(op table.Handle, cause error) error {
	return rt.emitLocked(op, Fail, value.MustFromDenotable(cause.Error()))
}

func (rt *Runtime) emitLocked(op table.Handle, kind EmitKind, v value.Value) error {
	row := rt.rows.GetPtr(op)

	switch kind {
	case Next:
		if !value.SchemaEqual(v.Schema(), row.Value.Schema()) {
			return rt.forceFail(op, errs.NewSchemaMismatch("emit: Next value schema does not match operator %s's value schema", op))
		}
		row.Status = Emitting
		row.Value = v
	case Fail:
		row.Status = Failing
		row.Value = v
	case Complete:
		row.Status = Completing
		row.Value = v
	}

	downstream := append([]table.Handle(nil), row.Downstream...)
	for _, d := range downstream {
		if !rt.rows.Valid(d) {
			continue
		}
		rt.run(d, op, kind, v)
	}

	row = rt.rows.GetPtr(op)
	if row == nil || row.Status.IsTerminal() {
		return nil
	}
	switch kind {
	case Next:
		row.Status = Idle
	case Fail:
		row.Status = Failed
		rt.completeTerminal(op)
	case Complete:
		row.Status = Completed
		rt.completeTerminal(op)
	}
	return nil
}

// completeTerminal unsubscribes every downstream of a just-terminated
// operator, then removes it unless it is external.
func (rt *Runtime) completeTerminal(op table.Handle) {
	row := rt.rows.GetPtr(op)
	if row == nil {
		return
	}
	downstreamCopy := append([]table.Handle(nil), row.Downstream...)
	for _, d := range downstreamCopy {
		rt.Unsubscribe(op, d)
	}
	if !row.External {
		rt.removeOperator(op)
	}
}

// run dispatches one callback invocation for downstream in response to an
// emission by source.
func (rt *Runtime) run(downstream, source table.Handle, kind EmitKind, v value.Value) {
	dRow := rt.rows.GetPtr(downstream)
	if dRow == nil {
		return
	}
	cb, ok := rt.registry[dRow.Kind]
	if !ok {
		return
	}
	switch kind {
	case Next:
		if cb.OnNext == nil {
			return
		}
		arg := v
		if dRow.InputSchema == nil {
			arg = value.None
		}
		newData, err := cb.OnNext(rt, downstream, source, arg)
		if err != nil {
			_ = rt.Emit(downstream, Fail, value.MustFromDenotable(err.Error()))
			return
		}
		if dRow = rt.rows.GetPtr(downstream); dRow != nil {
			dRow.Data = newData
		}
	case Fail:
		if cb.OnFail != nil {
			cb.OnFail(rt, downstream, source, v)
		}
	case Complete:
		if cb.OnComplete != nil {
			cb.OnComplete(rt, downstream, source, v)
		}
	}
}

// Destroy forcibly tears op out of the graph regardless of status or
// external flag — used by node removal, which must drop interface and
// dynamic operators unconditionally rather than waiting for them to
// complete on their own.
func (rt *Runtime) Destroy(op table.Handle) {
	rt.removeOperator(op)
}

// AsyncFunc is the awaited body of a Schedule call.
type AsyncFunc func(ctx context.Context) (value.Value, error)

// Schedule runs fn on its own goroutine; when it finishes, an event is
// enqueued on the scheduler that applies the result there (stored as op's
// data, or emitted as a Fail if fn returned an error) — and only if op is
// still alive, since removal can race a long-running callback.
func (rt *Runtime) Schedule(op table.Handle, fn AsyncFunc) {
	go func() {
		result, err := fn(rt.ctx)
		rt.scheduler.Schedule(func() {
			if !rt.rows.Valid(op) {
				return
			}
			if err != nil {
				_ = rt.Emit(op, Fail, value.MustFromDenotable(err.Error()))
				return
			}
			row := rt.rows.GetPtr(op)
			row.Data = result
		})
	}()
}
