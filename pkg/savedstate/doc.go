/*
Package savedstate persists ViewModel States through a ports.StateStore.

A Manager serializes access per ID: within a process through reference-counted
mutexes, across replicas through an optional ports.DistributedLocker. Bind wires a
running ViewModel to a saved ID, restoring what was stored and saving every State
it emits afterwards.
*/
package savedstate
