// Package viewmodel implements a unidirectional state runtime.
//
// A ViewModel owns one State. It is changed only by Inputs, which are queued in an
// InputStrategy and handed to an InputHandler together with a HandlerScope. Through
// the scope a handler reads and updates the State, posts Events (delivered in order
// to a single EventHandler) and registers keyed side-jobs that run after the handler
// returns.
//
// Three strategies are provided:
//
//   - FIFO handles Inputs one at a time in arrival order.
//   - LIFO cancels the Input in flight whenever a newer one is accepted and rolls
//     back the State it had changed.
//   - Parallel handles every Input concurrently and never rolls back.
//
// A ViewModel must be started with Start and is stopped by Close or by cancelling
// the context given to Start. Observers follow the State with Observe; hooks in
// domain.Hooks see every step of the processing.
package viewmodel
