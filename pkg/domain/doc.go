/*
Package domain contains the vocabulary shared by the spindle runtime and its collaborators.

It is kept free of goroutines, I/O and persistence so that adapters (stores, HTTP,
metrics) can depend on it without pulling in the dispatch engine.

# Key Entities

  - Phase / Subsystem: the ViewModel lifecycle and the gates checked during shutdown.
  - RestartState: whether a side-job is the first at its key or a restart.
  - FilterResult / SendResult: verdicts of the InputFilter and of non-blocking sends.
  - Hooks: observational callbacks (interceptors) fanned out with MultiHooks.
  - UsageError / GateError / HandlerError: the error taxonomy of the runtime.
*/
package domain
