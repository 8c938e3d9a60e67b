/*
Package arbor is a small hierarchical state machine (HSM) engine.

A machine owns a domain model and exactly one active leaf state. Events are routed to the
active state first; its handler may handle the event, request a transition, or defer it to
its parent superstate. Deferral walks up the hierarchy until some handler produces an
answer or the chain is exhausted.

# Concept

The state graph is declared once with package dsl and is immutable afterwards. The
Machine serializes every dispatch cycle behind a single mutex, so any number of
goroutines can share one machine. Observation hooks (package observability) see every
handler attempt and every committed transition without being able to influence either.

# Usage

	graph, err := numbers.NewGraph()
	if err != nil {
		log.Fatal(err)
	}

	m, err := arbor.New(graph, numbers.Program{},
		arbor.WithName("numbers"),
		arbor.WithLifecycleHooks(observability.LogHooks(logger)),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	_ = m.Handle(ctx, numbers.NumberReceived{Value: 4})

	_ = m.View(func(p *numbers.Program, s domain.State) {
		fmt.Println(s.ID(), p.Numbers)
	})

# Errors

Handle never fails for ordinary events. Under UnhandledFail, events nobody handled
return domain.ErrUnhandledEvent. A panic inside a handler or action poisons the machine:
every later call returns domain.ErrMachinePoisoned.
*/
package arbor
