/*
Package dsl provides a Go DSL for declaring the fixed state graph of an Arbor machine.

A graph is a closed set of leaf states and superstates. Each node owns a handler and may
name a parent superstate; the parent relation must form a forest. The graph is validated
once by Build and is immutable afterwards.

Example usage:

	type Door struct{ Opened int }

	b := dsl.New[Door]()

	b.Superstate("powered", func(d *Door, s domain.State, ev domain.Event) domain.Response {
		if ev.Type() == "power_off" {
			return domain.Transition(Off{})
		}
		return domain.Super()
	})

	b.State("closed", closedHandler).Parent("powered")
	b.State("open", openHandler).Parent("powered").
		OnEnter(func(d *Door, s domain.State) { d.Opened++ })
	b.State("off", offHandler)

	b.Initial(Closed{})

	graph, err := b.Build()
	// ... pass graph to arbor.New(graph, Door{})
*/
package dsl
