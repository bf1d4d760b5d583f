// Package ide is the execution-control layer of a cog editor: it owns
// the compile lifecycle of one source buffer, drives stepped and
// continuous execution against either the embedded engine or a remote
// execution service, and publishes immutable machine snapshots to
// subscribers.
//
// A Session serializes everything behind one mutex, so timer callbacks,
// connection events and direct calls never interleave. State is exposed
// as whole values: the CompiledState union is replaced, never mutated,
// and machine state only leaves the engine as a MachineSnapshot taken by
// Snapshot after each mutation.
package ide
