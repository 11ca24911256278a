// Package projection builds read models from the challenge journal.
//
// Each challenge row records the last sequence folded into it, so applying an
// event twice is a no-op and a projection that fell behind can be caught up
// by replaying the journal from its checkpoint.
package projection
