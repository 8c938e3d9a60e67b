/*
Package domain contains the core vocabulary of the Arbor hierarchical state machine engine.

It defines the values that flow through a dispatch cycle: Events delivered by callers,
States owned by the machine, and the three-way Response a handler returns. It also
declares the observation hook contract and the error taxonomy. The package is kept pure
and free of I/O so that engine, adapters and example programs can share it.

# Key Entities

  - Event: an immutable message delivered to the machine. Identified by its EventType.
  - State: one mode of behavior. Concrete state values may carry their own fields.
  - Response: Handled, Transition(target) or Super (defer to the parent superstate).
  - LifecycleHooks: optional callbacks fired before each handler attempt, after each
    committed transition and when an event falls off the top of the hierarchy.
*/
package domain
