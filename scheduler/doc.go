// Package scheduler turns board events into applet callbacks.
//
// A Scheduler owns the handler registry and the applet API. Its Run loop is
// the only code that pops the board's event queue: for each event it
// computes the Key, looks up the one handler registered for that key and
// invokes the applet's callback export through the Executor. Callbacks run
// to completion, one at a time, in queue order.
//
// Callbacks are invoked as cb<N>(func, data, extra...) where func and data
// are the values the applet passed at registration and N is the number of
// event-specific words (1 for buttons: the pressed state, 0 otherwise).
package scheduler
