// Package app composes the challenge engine, its journal and its read models
// into the service callers talk to.
//
// Commands go through the engine and return the committed event. Point
// queries read the engine's published state; listings and wallet balances
// read the projections, which are caught up to the journal on bootstrap.
package app
