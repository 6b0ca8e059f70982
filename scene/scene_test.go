package scene_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/notf/operator"
	"github.com/lyzr/notf/operator/kinds"
	"github.com/lyzr/notf/path"
	"github.com/lyzr/notf/scene"
	"github.com/lyzr/notf/value"
)

type syncScheduler struct{}

func (syncScheduler) Schedule(fn func()) { fn() }

func newTestRuntime() *operator.Runtime {
	rt := operator.NewRuntime(context.Background(), syncScheduler{})
	kinds.Register(rt)
	return rt
}

func numberSchema() value.Schema { return value.Schema{int64(value.KindNumber)} }

// leafDescription is a node with one numeric interface slot and a single
// reachable state with no children of its own.
func leafDescription(name string) *scene.Description {
	return &scene.Description{
		Name: name,
		Interface: []scene.InterfaceSlot{
			{Name: "value", Schema: numberSchema()},
		},
		InitialState: "idle",
		States: map[string]*scene.StateDescription{
			"idle": {},
		},
		Transitions: map[[2]string]bool{
			{"", "idle"}: true,
		},
	}
}

// rootWithChildDescription declares a root whose single state creates one
// child (named "child") of leafDescription, to exercise create_child and
// path resolution through TransitionInto's Step 5.
func rootWithChildDescription() *scene.Description {
	return &scene.Description{
		Name: "root",
		Interface: []scene.InterfaceSlot{
			{Name: "value", Schema: numberSchema()},
		},
		InitialState: "running",
		States: map[string]*scene.StateDescription{
			"running": {
				Children: []scene.ChildSpec{
					{Name: "child", Description: leafDescription("leaf")},
				},
			},
			"empty": {},
		},
		Transitions: map[[2]string]bool{
			{"", "running"}:     true,
			{"running", "empty"}: true,
		},
	}
}

func TestNewBuildsRootAndEntersInitialState(t *testing.T) {
	rt := newTestRuntime()
	sc, err := scene.New(rt, leafDescription("root"))
	require.NoError(t, err)

	root := sc.Node(sc.Root())
	assert.Equal(t, "idle", root.State())
	v, ok := root.Interop("value")
	require.True(t, ok)
	assert.Equal(t, 0.0, v.Number())
}

func TestCreateChildAndPathResolution(t *testing.T) {
	rt := newTestRuntime()
	sc, err := scene.New(rt, rootWithChildDescription())
	require.NoError(t, err)

	p, err := path.Parse("/child")
	require.NoError(t, err)
	childHandle, err := sc.GetNode(p)
	require.NoError(t, err)

	child := sc.Node(childHandle)
	assert.Equal(t, "idle", child.State())

	rel, err := path.Parse("child")
	require.NoError(t, err)
	viaDescendant, err := sc.GetDescendant(sc.Root(), rel)
	require.NoError(t, err)
	assert.Equal(t, childHandle, viaDescendant)
}

func TestTransitionIntoTearsDownAndRebuildsChildren(t *testing.T) {
	rt := newTestRuntime()
	sc, err := scene.New(rt, rootWithChildDescription())
	require.NoError(t, err)

	p, err := path.Parse("/child")
	require.NoError(t, err)
	_, err = sc.GetNode(p)
	require.NoError(t, err, "child must exist right after New")

	require.NoError(t, sc.TransitionInto(sc.Root(), "empty"))

	_, err = sc.GetNode(p)
	assert.Error(t, err, "child created by the outgoing state must be torn down")
}

func TestTransitionDeniedByTransitionTable(t *testing.T) {
	rt := newTestRuntime()
	desc := &scene.Description{
		Name:         "root",
		InitialState: "a",
		States: map[string]*scene.StateDescription{
			"a": {},
			"b": {},
		},
		Transitions: map[[2]string]bool{
			{"", "a"}: true,
			// "a" -> "b" is deliberately absent.
		},
	}
	sc, err := scene.New(rt, desc)
	require.NoError(t, err)

	err = sc.TransitionInto(sc.Root(), "b")
	assert.Error(t, err)
}

func TestDriveFactUpdatesInterfaceJSON(t *testing.T) {
	rt := newTestRuntime()
	sc, err := scene.New(rt, leafDescription("root"))
	require.NoError(t, err)

	require.NoError(t, sc.DriveFact("value", value.MustFromDenotable(42.0)))

	doc, err := sc.InterfaceJSON(sc.Root())
	require.NoError(t, err)
	assert.JSONEq(t, `{"value": 42}`, doc)
}

func TestDriveInteropUnknownNameFails(t *testing.T) {
	rt := newTestRuntime()
	sc, err := scene.New(rt, leafDescription("root"))
	require.NoError(t, err)

	err = sc.DriveInterop(sc.Root(), "nope", value.MustFromDenotable(1.0))
	assert.Error(t, err)
}

func TestRemoveDetachesFromParentAndChildren(t *testing.T) {
	rt := newTestRuntime()
	sc, err := scene.New(rt, rootWithChildDescription())
	require.NoError(t, err)

	p, err := path.Parse("/child")
	require.NoError(t, err)
	childHandle, err := sc.GetNode(p)
	require.NoError(t, err)

	require.NoError(t, sc.Remove(childHandle))

	_, err = sc.GetNode(p)
	assert.Error(t, err)
}

func TestSetGrantPropagatesToChildren(t *testing.T) {
	rt := newTestRuntime()
	desc := rootWithChildDescription()
	desc.States["running"].Layout = &scene.LayoutSpec{Kind: "Stack"}
	sc, err := scene.New(rt, desc)
	require.NoError(t, err)

	sc.SetGrant(sc.Root(), scene.Grant{Width: 100, Height: 50})

	p, err := path.Parse("/child")
	require.NoError(t, err)
	childHandle, err := sc.GetNode(p)
	require.NoError(t, err)

	child := sc.Node(childHandle)
	w, h := child.Grant()
	assert.Equal(t, 100.0, w)
	assert.Equal(t, 50.0, h)
}
