/*
Package ports defines the driven and driving ports (interfaces) of the Arbor engine.

These interfaces decouple the machine from its collaborators so that transports,
trace sinks and example drivers can be swapped without touching the dispatch core.

# Key Interfaces

  - Dispatcher: anything that accepts events through a synchronized Handle call.
  - TraceSink: receives flattened hook records (in memory, Redis streams, ...).
*/
package ports
