// Package report turns the terminated actions of a fleet run into a summary
// and a process exit code.
//
// Actions are grouped by endpoint across phases, in discovery order. The
// outcome of an endpoint is the outcome of the last phase it reached: a
// device that failed its download never enters the apply phase, so its
// download result stands.
//
// An action counts as ABORTED when its result was ABORTED, or when it was
// flagged for abort and did not succeed. ABORTED takes precedence over
// FAILED. The exit code is ExitSuccess only if every device succeeded and
// the run was never aborted.
package report
