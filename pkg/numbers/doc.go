/*
Package numbers is the reference program driven by the Arbor engine.

A Program holds a FIFO of pending numbers. While waiting, a received number is queued and
the machine moves into the busy region. Inside busy, further numbers are queued by the busy
superstate itself, so neither leaf state has to handle them. A Worker drains the queue:
it squares the head, reports NumberProcessed, stores the value and reports NumberStored,
which pops the head and either loops back to processing or returns to waiting.

	waiting ──NumberReceived──▶ busy{ processing_number ──NumberProcessed──▶ storing_number }
	storing_number ──NumberStored──▶ processing_number | waiting
*/
package numbers
