// Package fleet runs operations across many devices at once.
//
// A RunContext owns everything shared by the workers of one run: the
// cancellation token, the one-way abort flag and the event publisher. Each
// Pool bounds its workers with a semaphore; a worker holds its slot from
// the moment its Action is created until the Action has a result.
//
// # Orchestration
//
// Updater runs a firmware update in two phases by default. Every target
// first goes through the download phase; only targets whose download
// succeeded enter the apply phase, which has its own worker limit. With
// SinglePhase each worker downloads and applies inline.
//
// Toggler flips the Light Control on/off resource of every target. Resetter
// waits for a number of live devices, reboots them and waits for them to
// come back, in a loop. Waiter blocks until enough devices answer the
// liveness probe.
//
// # Abort
//
// Cancelling the parent context passed to NewRunContext aborts the run: no
// new worker starts, live actions are flagged, and workers stop at their
// next checkpoint without issuing further writes. Pools always wait for
// every started worker before returning.
package fleet
