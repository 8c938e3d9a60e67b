package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ev string

func (e ev) Type() domain.EventType { return domain.EventType(e) }

type st string

func (s st) ID() domain.StateID { return domain.StateID(s) }

// journal records which handlers and actions ran.
type journal struct {
	calls []string
}

func (j *journal) add(s string) { j.calls = append(j.calls, s) }

// testGraph builds:
//
//	top (super)
//	├── mid (super)
//	│   └── a
//	└── b
//	c
func testGraph(t *testing.T) *dsl.Graph[journal] {
	t.Helper()
	b := dsl.New[journal]()

	b.Superstate("top", func(j *journal, _ domain.State, e domain.Event) domain.Response {
		j.add("handle:top")
		switch e.Type() {
		case "top":
			return domain.Handled()
		case "to_c":
			return domain.Transition(st("c"))
		}
		return domain.Super()
	}).OnEnter(func(j *journal, _ domain.State) { j.add("enter:top") }).
		OnExit(func(j *journal, _ domain.State) { j.add("exit:top") })

	b.Superstate("mid", func(j *journal, _ domain.State, e domain.Event) domain.Response {
		j.add("handle:mid")
		if e.Type() == "mid" {
			return domain.Handled()
		}
		return domain.Super()
	}).Parent("top").
		OnEnter(func(j *journal, _ domain.State) { j.add("enter:mid") }).
		OnExit(func(j *journal, _ domain.State) { j.add("exit:mid") })

	b.State("a", func(j *journal, _ domain.State, e domain.Event) domain.Response {
		j.add("handle:a")
		switch e.Type() {
		case "leaf":
			return domain.Handled()
		case "to_b":
			return domain.Transition(st("b"))
		case "self":
			return domain.Transition(st("a"))
		case "to_mid":
			return domain.Transition(st("mid"))
		}
		return domain.Super()
	}).Parent("mid").
		OnEnter(func(j *journal, _ domain.State) { j.add("enter:a") }).
		OnExit(func(j *journal, _ domain.State) { j.add("exit:a") })

	b.State("b", func(j *journal, _ domain.State, e domain.Event) domain.Response {
		j.add("handle:b")
		return domain.Super()
	}).Parent("top").
		OnEnter(func(j *journal, _ domain.State) { j.add("enter:b") }).
		OnExit(func(j *journal, _ domain.State) { j.add("exit:b") })

	b.State("c", func(j *journal, _ domain.State, e domain.Event) domain.Response {
		j.add("handle:c")
		return domain.Super()
	}).OnEnter(func(j *journal, _ domain.State) { j.add("enter:c") })

	b.Initial(st("a"))

	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestEngine_ResolveWalksChainLeafToRoot(t *testing.T) {
	var dispatched []domain.Ref
	engine := runtime.NewEngine(testGraph(t), runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			dispatched = append(dispatched, e.Target)
		},
	}))

	j := &journal{}
	res, err := engine.Resolve(context.Background(), "cycle-1", j, st("a"), ev("top"))
	require.NoError(t, err)

	assert.False(t, res.Unhandled)
	assert.Equal(t, domain.ResponseHandled, res.Response.Kind)
	assert.Equal(t, domain.Ref{ID: "top", Superstate: true}, res.By)
	assert.Equal(t, []string{"handle:a", "handle:mid", "handle:top"}, j.calls)
	assert.Equal(t, []domain.Ref{
		{ID: "a"},
		{ID: "mid", Superstate: true},
		{ID: "top", Superstate: true},
	}, dispatched)
	assert.Equal(t, dispatched, res.Tried)
}

func TestEngine_ResolveStopsAtFirstMatch(t *testing.T) {
	engine := runtime.NewEngine(testGraph(t))

	j := &journal{}
	res, err := engine.Resolve(context.Background(), "c", j, st("a"), ev("mid"))
	require.NoError(t, err)

	assert.Equal(t, domain.Ref{ID: "mid", Superstate: true}, res.By)
	assert.Equal(t, []string{"handle:a", "handle:mid"}, j.calls, "top must never be tried")

	j = &journal{}
	res, err = engine.Resolve(context.Background(), "c", j, st("a"), ev("leaf"))
	require.NoError(t, err)
	assert.Equal(t, domain.Ref{ID: "a"}, res.By)
	assert.Equal(t, []string{"handle:a"}, j.calls)
}

func TestEngine_ResolveUnhandled(t *testing.T) {
	var unhandled *domain.DispatchEvent
	engine := runtime.NewEngine(testGraph(t), runtime.WithName("m1"), runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnUnhandled: func(ctx context.Context, e *domain.DispatchEvent) {
			unhandled = e
		},
	}))

	j := &journal{}
	res, err := engine.Resolve(context.Background(), "cycle-9", j, st("a"), ev("nobody"))
	require.NoError(t, err)

	assert.True(t, res.Unhandled)
	assert.Len(t, res.Tried, 3)
	require.NotNil(t, unhandled)
	assert.Equal(t, domain.HookUnhandled, unhandled.Type)
	assert.Equal(t, domain.StateID("top"), unhandled.Target.ID)
	assert.Equal(t, "cycle-9", unhandled.CycleID)
	assert.Equal(t, "m1", unhandled.Machine)

	// Root state without parents defers straight off the top.
	j = &journal{}
	res, err = engine.Resolve(context.Background(), "cycle-10", j, st("c"), ev("nobody"))
	require.NoError(t, err)
	assert.True(t, res.Unhandled)
	assert.Equal(t, []string{"handle:c"}, j.calls)
}

func TestEngine_ResolveTransitionFromSuperstate(t *testing.T) {
	engine := runtime.NewEngine(testGraph(t))

	res, err := engine.Resolve(context.Background(), "c", &journal{}, st("a"), ev("to_c"))
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseTransition, res.Response.Kind)
	assert.Equal(t, domain.StateID("c"), res.Response.Target.ID())
	assert.True(t, res.By.Superstate)
}

func TestEngine_HookPanicIsIsolated(t *testing.T) {
	engine := runtime.NewEngine(testGraph(t), runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			panic("broken hook")
		},
	}))

	j := &journal{}
	res, err := engine.Resolve(context.Background(), "c", j, st("a"), ev("mid"))
	require.NoError(t, err)
	assert.Equal(t, domain.StateID("mid"), res.By.ID)
	assert.Equal(t, []string{"handle:a", "handle:mid"}, j.calls)
}

func TestEngine_Plan(t *testing.T) {
	engine := runtime.NewEngine(testGraph(t))

	tests := []struct {
		name     string
		from, to domain.StateID
		ancestor domain.StateID
		exit     []domain.StateID
		enter    []domain.StateID
	}{
		{"sibling under top", "a", "b", "top", []domain.StateID{"a", "mid"}, []domain.StateID{"b"}},
		{"leave hierarchy", "a", "c", "", []domain.StateID{"a", "mid", "top"}, []domain.StateID{"c"}},
		{"enter hierarchy", "c", "a", "", []domain.StateID{"c"}, []domain.StateID{"top", "mid", "a"}},
		{"self transition", "a", "a", "mid", []domain.StateID{"a"}, []domain.StateID{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := engine.Plan(tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.ancestor, p.Ancestor)
			assert.Equal(t, tt.exit, p.Exit)
			assert.Equal(t, tt.enter, p.Enter)
		})
	}
}

func TestEngine_PlanRejectsNonLeafTargets(t *testing.T) {
	engine := runtime.NewEngine(testGraph(t))

	_, err := engine.Plan("a", "mid")
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)

	_, err = engine.Plan("a", "ghost")
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
}

func TestEngine_ApplyRunsExitThenEntry(t *testing.T) {
	engine := runtime.NewEngine(testGraph(t))

	j := &journal{}
	_, err := engine.Apply(context.Background(), j, st("a"), st("c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"exit:a", "exit:mid", "exit:top", "enter:c"}, j.calls)

	j = &journal{}
	_, err = engine.Apply(context.Background(), j, st("a"), st("mid"))
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
	assert.Empty(t, j.calls, "no action may run for an invalid target")
}

func TestEngine_EnterRunsOutermostFirst(t *testing.T) {
	engine := runtime.NewEngine(testGraph(t))

	j := &journal{}
	initial := engine.Enter(context.Background(), j)
	assert.Equal(t, domain.StateID("a"), initial.ID())
	assert.Equal(t, []string{"enter:top", "enter:mid", "enter:a"}, j.calls)
}

func TestEngine_EmitTransition(t *testing.T) {
	var got *domain.TransitionEvent
	engine := runtime.NewEngine(testGraph(t), runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) { got = e },
	}))

	engine.EmitTransition(context.Background(), "cy", st("a"), st("b"), ev("to_b"))
	require.NotNil(t, got)
	assert.Equal(t, domain.HookTransition, got.Type)
	assert.Equal(t, domain.StateID("a"), got.From.ID())
	assert.Equal(t, domain.StateID("b"), got.To.ID())
	assert.Equal(t, domain.EventType("to_b"), got.Trigger.Type())
}
