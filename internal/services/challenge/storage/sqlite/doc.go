// Package sqlite persists the challenge journal and its read models in SQLite.
//
// Events and projections live in separate databases: the events database is
// the source of truth and every row in it is hash-chained and signed, while
// the projections database can be dropped and rebuilt by replay.
package sqlite
