// Package engine wires command validation, decision routing, event append and
// replay-backed state loading for challenge commands.
//
// Commands addressed to the same challenge run one at a time inside a
// per-challenge critical section; commands for different challenges never
// block each other. Committed state is published as an immutable snapshot so
// reads never wait on writers.
package engine
