// Package memory provides in-process read models for challenge listings,
// wallet balances and projection checkpoints. It backs tests and the
// scenario runner; durable deployments use the sqlite package.
package memory
