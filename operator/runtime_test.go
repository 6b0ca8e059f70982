package operator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/notf/errs"
	"github.com/lyzr/notf/operator"
	"github.com/lyzr/notf/table"
	"github.com/lyzr/notf/value"
)

// syncScheduler runs every scheduled callback immediately on the calling
// goroutine — good enough for tests that never touch Runtime.Schedule's
// async path, and avoids pulling in the real event loop.
type syncScheduler struct{}

func (syncScheduler) Schedule(fn func()) { fn() }

func numberSchemaArgs(t *testing.T) value.Value {
	t.Helper()
	args, err := value.FromDenotable(value.Object{
		{Key: "schema", Value: value.FromSchema(value.Schema{int64(value.KindNumber)})},
	})
	require.NoError(t, err)
	return args
}

func relayCallbacks() operator.Callbacks {
	return operator.Callbacks{
		Create: func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
			schema := args.MustIndex("schema").Schema()
			return operator.Descriptor{
				InitialValue: value.FromSchema(schema),
				InputSchema:  schema,
				Args:         args,
				Multicast:    true,
			}, nil
		},
		OnNext: func(rt *operator.Runtime, self, source table.Handle, v value.Value) (value.Value, error) {
			_ = rt.Emit(self, operator.Next, v)
			return v, nil
		},
	}
}

func externalRelayCallbacks() operator.Callbacks {
	cb := relayCallbacks()
	create := cb.Create
	cb.Create = func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
		d, err := create(rt, args)
		if err != nil {
			return d, err
		}
		d.External = true
		return d, nil
	}
	return cb
}

func newTestRuntime(t *testing.T) *operator.Runtime {
	t.Helper()
	rt := operator.NewRuntime(context.Background(), syncScheduler{})
	rt.Register("Relay", relayCallbacks())
	rt.Register("ExternalRelay", externalRelayCallbacks())
	return rt
}

func TestSubscribeEmitFanOut(t *testing.T) {
	rt := newTestRuntime(t)
	args := numberSchemaArgs(t)

	up, err := rt.Create("Relay", args)
	require.NoError(t, err)
	down, err := rt.Create("Relay", args)
	require.NoError(t, err)

	require.NoError(t, rt.Subscribe(up, down))
	require.NoError(t, rt.Emit(up, operator.Next, value.MustFromDenotable(3.0)))

	row, ok := rt.Row(down)
	require.True(t, ok)
	assert.Equal(t, 3.0, row.Value.Number())
}

func TestSubscribeSchemaMismatchRejected(t *testing.T) {
	rt := newTestRuntime(t)
	numberArgs := numberSchemaArgs(t)
	stringArgs, err := value.FromDenotable(value.Object{
		{Key: "schema", Value: value.FromSchema(value.Schema{int64(value.KindString)})},
	})
	require.NoError(t, err)

	up, err := rt.Create("Relay", numberArgs)
	require.NoError(t, err)
	down, err := rt.Create("Relay", stringArgs)
	require.NoError(t, err)

	err = rt.Subscribe(up, down)
	assert.Error(t, err)
	var mismatch *errs.SchemaMismatch
	assert.ErrorAs(t, err, &mismatch)
}

// TestNonMulticastSecondSubscriberRejected covers a non-multicast upstream
// refusing a second downstream.
func TestNonMulticastSecondSubscriberRejected(t *testing.T) {
	rt := newTestRuntime(t)
	rt.Register("SingleCast", func() operator.Callbacks {
		cb := relayCallbacks()
		create := cb.Create
		cb.Create = func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
			d, err := create(rt, args)
			if err != nil {
				return d, err
			}
			d.Multicast = false
			return d, nil
		}
		return cb
	}())

	args := numberSchemaArgs(t)
	up, err := rt.Create("SingleCast", args)
	require.NoError(t, err)
	d1, err := rt.Create("Relay", args)
	require.NoError(t, err)
	d2, err := rt.Create("Relay", args)
	require.NoError(t, err)

	require.NoError(t, rt.Subscribe(up, d1))
	err = rt.Subscribe(up, d2)
	assert.Error(t, err)
}

// TestCyclicEmissionDetection: a downstream's OnNext re-entrantly emits on
// its own still-active upstream. The re-entrant Emit must force-fail the
// upstream with a CyclicEmission error rather than deadlock or recurse
// forever.
func TestCyclicEmissionDetection(t *testing.T) {
	rt := newTestRuntime(t)

	args := numberSchemaArgs(t)
	up, err := rt.Create("ExternalRelay", args)
	require.NoError(t, err)

	var reentrant table.Handle
	rt.Register("Reentrant", operator.Callbacks{
		Create: func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
			schema := args.MustIndex("schema").Schema()
			return operator.Descriptor{
				InitialValue: value.FromSchema(schema),
				InputSchema:  schema,
				Args:         args,
			}, nil
		},
		OnNext: func(rt *operator.Runtime, self, source table.Handle, v value.Value) (value.Value, error) {
			_ = rt.Emit(source, operator.Next, v)
			return v, nil
		},
	})
	reentrant, err = rt.Create("Reentrant", args)
	require.NoError(t, err)

	require.NoError(t, rt.Subscribe(up, reentrant))

	err = rt.Emit(up, operator.Next, value.MustFromDenotable(1.0))
	require.NoError(t, err)

	row, ok := rt.Row(up)
	require.True(t, ok)
	assert.Equal(t, operator.Failed, row.Status)
	assert.True(t, row.Value.IsString())
}

// TestAutoCompletionOnLastUnsubscribe covers the auto-completion rule: once
// a non-external operator's last downstream detaches, it is removed; once a
// downstream's last upstream detaches and it isn't already terminal, it
// auto-completes.
func TestAutoCompletionOnLastUnsubscribe(t *testing.T) {
	rt := newTestRuntime(t)
	args := numberSchemaArgs(t)

	up, err := rt.Create("Relay", args)
	require.NoError(t, err)
	down, err := rt.Create("Relay", args)
	require.NoError(t, err)
	require.NoError(t, rt.Subscribe(up, down))

	rt.Unsubscribe(up, down)

	_, upStillLive := rt.Row(up)
	assert.False(t, upStillLive, "non-external upstream with no downstream left must be removed")

	_, downStillLive := rt.Row(down)
	assert.False(t, downStillLive, "downstream that auto-completed and is not external must be removed")
}

// TestExternalOperatorSurvivesAutoCompletion: an External row is never
// removed by auto-completion, only marked Completed.
func TestExternalOperatorSurvivesAutoCompletion(t *testing.T) {
	rt := newTestRuntime(t)
	args := numberSchemaArgs(t)

	up, err := rt.Create("Relay", args)
	require.NoError(t, err)
	down, err := rt.Create("ExternalRelay", args)
	require.NoError(t, err)
	require.NoError(t, rt.Subscribe(up, down))

	rt.Unsubscribe(up, down)

	row, ok := rt.Row(down)
	require.True(t, ok, "external operator must survive its own completion")
	assert.Equal(t, operator.Completed, row.Status)
}

// TestSubscribeToTerminalReplays covers subscribing to an already-terminal
// upstream: the new downstream must receive one synthesized callback
// invocation of the matching kind instead of nothing happening.
func TestSubscribeToTerminalReplays(t *testing.T) {
	rt := newTestRuntime(t)
	args := numberSchemaArgs(t)

	up, err := rt.Create("ExternalRelay", args)
	require.NoError(t, err)
	require.NoError(t, rt.Emit(up, operator.Complete, value.None))

	row, ok := rt.Row(up)
	require.True(t, ok)
	assert.Equal(t, operator.Completed, row.Status)

	var replayed bool
	rt.Register("CompletionWatcher", operator.Callbacks{
		Create: func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
			return operator.Descriptor{InitialValue: value.None}, nil
		},
		OnComplete: func(rt *operator.Runtime, self, source table.Handle, v value.Value) {
			replayed = true
		},
	})
	watcher, err := rt.Create("CompletionWatcher", value.None)
	require.NoError(t, err)
	require.NoError(t, rt.Subscribe(up, watcher))
	assert.True(t, replayed)
}

func TestDestroyTearsDownRegardlessOfStatus(t *testing.T) {
	rt := newTestRuntime(t)
	args := numberSchemaArgs(t)
	up, err := rt.Create("ExternalRelay", args)
	require.NoError(t, err)

	rt.Destroy(up)
	_, ok := rt.Row(up)
	assert.False(t, ok)
}
