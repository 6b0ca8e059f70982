// Package kinds implements the minimum operator registry the runtime
// requires: Relay, Property, Buffer, Factory, Countdown, Printer, Sine, and
// the supplemental Supply and Assert kinds carried over from the reference
// implementation's logic module.
package kinds

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lyzr/notf/errs"
	"github.com/lyzr/notf/operator"
	"github.com/lyzr/notf/table"
	"github.com/lyzr/notf/value"
)

// Register installs every kind in this package into rt.
func Register(rt *operator.Runtime) {
	rt.Register("Relay", relayCallbacks())
	rt.Register("Property", propertyCallbacks())
	rt.Register("Buffer", bufferCallbacks())
	rt.Register("Factory", factoryCallbacks())
	rt.Register("Countdown", countdownCallbacks())
	rt.Register("Printer", printerCallbacks())
	rt.Register("Sine", sineCallbacks())
	rt.Register("Supply", supplyCallbacks())
	rt.Register("Assert", assertCallbacks())
}

// Relay is a multicast pass-through: every value received is forwarded
// unchanged, upstream and downstream schemas equal.
func relayCallbacks() operator.Callbacks {
	return operator.Callbacks{
		Create: func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
			schema, err := requireSchemaArg(args, "schema")
			if err != nil {
				return operator.Descriptor{}, err
			}
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

// Property is a Relay whose schema must be non-None: the building block of
// node interface state, always reachable by name even with no upstream.
func propertyCallbacks() operator.Callbacks {
	relay := relayCallbacks()
	return operator.Callbacks{
		Create: func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
			schema, err := requireSchemaArg(args, "schema")
			if err != nil {
				return operator.Descriptor{}, err
			}
			if schema.IsNone() {
				return operator.Descriptor{}, errs.NewSchemaMismatch("a Property's schema may not be None")
			}
			return operator.Descriptor{
				InitialValue: value.FromSchema(schema),
				InputSchema:  schema,
				Args:         args,
				External:     true,
				Multicast:    true,
			}, nil
		},
		OnNext: relay.OnNext,
	}
}

// Buffer(time_span) collects input events and, time_span seconds after the
// last one arrives, emits the count accumulated since the previous flush.
func bufferCallbacks() operator.Callbacks {
	return operator.Callbacks{
		Create: func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
			if _, err := args.Index("time_span"); err != nil {
				return operator.Descriptor{}, errs.NewSchemaMismatch("Buffer requires a numeric time_span argument: %v", err)
			}
			count, _ := value.FromDenotable(0)
			return operator.Descriptor{
				InitialValue: count,
				InputSchema:  nil,
				Args:         args,
				Data:         count,
				Multicast:    true,
			}, nil
		},
		OnNext: func(rt *operator.Runtime, self, source table.Handle, v value.Value) (value.Value, error) {
			row, _ := rt.Row(self)
			next := row.Data.Number() + 1
			spanVal, _ := row.Args.Index("time_span")
			span := time.Duration(spanVal.Number() * float64(time.Second))

			rt.Schedule(self, func(ctx context.Context) (value.Value, error) {
				timer := time.NewTimer(span)
				defer timer.Stop()
				select {
				case <-timer.C:
				case <-ctx.Done():
					return value.Value{}, ctx.Err()
				}
				latest, ok := rt.Row(self)
				if !ok {
					return value.Value{}, nil
				}
				flushed := latest.Data
				_ = rt.Emit(self, operator.Next, flushed)
				zero, _ := value.FromDenotable(0)
				return zero, nil
			})

			return value.MustFromDenotable(next), nil
		},
	}
}

// Factory(kind_id, inner_args) materializes a fresh inner operator for
// every new subscriber and subscribes the subscriber straight to it.
func factoryCallbacks() operator.Callbacks {
	return operator.Callbacks{
		Create: func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
			return operator.Descriptor{
				InitialValue: value.None,
				InputSchema:  value.Schema{int64(value.KindNone)},
				Args:         args,
				Multicast:    true,
			}, nil
		},
		OnSubscribe: func(rt *operator.Runtime, self, downstream table.Handle) {
			row, ok := rt.Row(self)
			if !ok {
				return
			}
			kindVal, err := row.Args.Index("kind")
			if err != nil {
				return
			}
			innerArgs, err := row.Args.Index("inner_args")
			if err != nil {
				innerArgs = value.None
			}
			inner, err := rt.Create(kindVal.String(), innerArgs)
			if err != nil {
				_ = rt.Emit(downstream, operator.Fail, value.MustFromDenotable(err.Error()))
				return
			}
			_ = rt.Subscribe(inner, downstream)
		},
	}
}

// Countdown(start) schedules start, start-1, ..., 0 at one-second
// intervals after its first subscription, then completes.
func countdownCallbacks() operator.Callbacks {
	return operator.Callbacks{
		Create: func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
			start, err := args.Index("start")
			if err != nil {
				return operator.Descriptor{}, errs.NewSchemaMismatch("Countdown requires a numeric start argument: %v", err)
			}
			return operator.Descriptor{
				InitialValue: value.MustFromDenotable(start.Number()),
				InputSchema:  value.Schema{int64(value.KindNone)},
				Args:         args,
				Data:         value.MustFromDenotable(start.Number()),
			}, nil
		},
		OnSubscribe: func(rt *operator.Runtime, self, downstream table.Handle) {
			row, ok := rt.Row(self)
			if !ok {
				return
			}
			if row.Data.Number() != row.Args.MustIndex("start").Number() {
				return // already counting down from an earlier subscriber
			}
			tickCountdown(rt, self)
		},
	}
}

func tickCountdown(rt *operator.Runtime, self table.Handle) {
	rt.Schedule(self, func(ctx context.Context) (value.Value, error) {
		timer := time.NewTimer(time.Second)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return value.Value{}, ctx.Err()
		}
		row, ok := rt.Row(self)
		if !ok {
			return value.Value{}, nil
		}
		current := row.Data.Number()
		if current < 0 {
			_ = rt.Emit(self, operator.Complete, value.None)
			return row.Data, nil
		}
		_ = rt.Emit(self, operator.Next, value.MustFromDenotable(current))
		tickCountdown(rt, self)
		return value.MustFromDenotable(current - 1), nil
	})
}

// Printer is a debug sink: it logs every Next/Fail/Complete it receives and
// otherwise does nothing.
func printerCallbacks() operator.Callbacks {
	return operator.Callbacks{
		Create: func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
			return operator.Descriptor{
				InitialValue: value.None,
				InputSchema:  nil,
				Args:         args,
			}, nil
		},
		OnNext: func(rt *operator.Runtime, self, source table.Handle, v value.Value) (value.Value, error) {
			text, _ := value.AsJSON(v)
			fmt.Printf("[operator] next: %s\n", text)
			row, _ := rt.Row(self)
			return row.Data, nil
		},
		OnFail: func(rt *operator.Runtime, self, source table.Handle, v value.Value) {
			text, _ := value.AsJSON(v)
			fmt.Printf("[operator] fail: %s\n", text)
		},
		OnComplete: func(rt *operator.Runtime, self, source table.Handle, v value.Value) {
			fmt.Printf("[operator] complete\n")
		},
	}
}

// Sine(frequency, amplitude, samples) emits (sin(2*pi*f*t)+1)*amplitude/2
// at samples Hz once subscribed. It does not request redraws itself.
func sineCallbacks() operator.Callbacks {
	return operator.Callbacks{
		Create: func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
			if _, err := args.Index("frequency"); err != nil {
				return operator.Descriptor{}, errs.NewSchemaMismatch("Sine requires frequency, amplitude, samples arguments: %v", err)
			}
			return operator.Descriptor{
				InitialValue: value.MustFromDenotable(0),
				InputSchema:  value.Schema{int64(value.KindNone)},
				Args:         args,
				Data:         value.MustFromDenotable(0),
			}, nil
		},
		OnSubscribe: func(rt *operator.Runtime, self, downstream table.Handle) {
			tickSine(rt, self, 0)
		},
	}
}

func tickSine(rt *operator.Runtime, self table.Handle, t float64) {
	row, ok := rt.Row(self)
	if !ok {
		return
	}
	samples := row.Args.MustIndex("samples").Number()
	if samples <= 0 {
		samples = 60
	}
	period := time.Duration(float64(time.Second) / samples)

	rt.Schedule(self, func(ctx context.Context) (value.Value, error) {
		timer := time.NewTimer(period)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return value.Value{}, ctx.Err()
		}
		row, ok := rt.Row(self)
		if !ok {
			return value.Value{}, nil
		}
		freq := row.Args.MustIndex("frequency").Number()
		amp := row.Args.MustIndex("amplitude").Number()
		sample := (math.Sin(2*math.Pi*freq*t) + 1) * amp / 2
		next := value.MustFromDenotable(sample)
		_ = rt.Emit(self, operator.Next, next)
		tickSine(rt, self, t+1/samples)
		return next, nil
	})
}

// Supply replays a fixed, pre-baked sequence of values, in order, to its
// subscriber, then completes — useful for feeding deterministic fixtures
// through a graph built the same way production data flows through it.
func supplyCallbacks() operator.Callbacks {
	return operator.Callbacks{
		Create: func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
			items, err := args.Index("items")
			if err != nil {
				return operator.Descriptor{}, errs.NewSchemaMismatch("Supply requires an items list argument: %v", err)
			}
			if items.Len() == 0 {
				return operator.Descriptor{}, errs.NewSchemaMismatch("Supply requires at least one item")
			}
			first, _ := items.Index(0)
			return operator.Descriptor{
				InitialValue: first,
				InputSchema:  value.Schema{int64(value.KindNone)},
				Args:         args,
				Data:         value.MustFromDenotable(0),
			}, nil
		},
		OnSubscribe: func(rt *operator.Runtime, self, downstream table.Handle) {
			row, ok := rt.Row(self)
			if !ok {
				return
			}
			items := row.Args.MustIndex("items")
			for i := 0; i < items.Len(); i++ {
				item, _ := items.Index(i)
				_ = rt.Emit(self, operator.Next, item)
			}
			_ = rt.Emit(self, operator.Complete, value.None)
		},
	}
}

// Assert relays Next unchanged unless its "predicate" argument is the
// number 0, in which case every Next turns into a Fail. The predicate is a
// fixed argument read on each Next; it is not evaluated against the
// incoming value.
func assertCallbacks() operator.Callbacks {
	return operator.Callbacks{
		Create: func(rt *operator.Runtime, args value.Value) (operator.Descriptor, error) {
			schema, err := requireSchemaArg(args, "schema")
			if err != nil {
				return operator.Descriptor{}, err
			}
			return operator.Descriptor{
				InitialValue: value.FromSchema(schema),
				InputSchema:  schema,
				Args:         args,
				Multicast:    true,
			}, nil
		},
		OnNext: func(rt *operator.Runtime, self, source table.Handle, v value.Value) (value.Value, error) {
			row, _ := rt.Row(self)
			predicate, err := row.Args.Index("predicate")
			if err == nil && predicate.IsNumber() && predicate.Number() == 0 {
				return value.Value{}, errs.NewSchemaMismatch("assertion failed on operator %s", self)
			}
			_ = rt.Emit(self, operator.Next, v)
			return v, nil
		},
	}
}

func requireSchemaArg(args value.Value, name string) (value.Schema, error) {
	v, err := args.Index(name)
	if err != nil {
		return nil, errs.NewSchemaMismatch("missing %q argument: %v", name, err)
	}
	return v.Schema(), nil
}
