// Package command defines the canonical command envelope and contract used across
// the challenge write path.
//
// Commands express intent from callers (a contender accepting, an owner
// flushing). They are normalized and validated against the registry before
// deciders evaluate lifecycle rules, so deciders only see well-formed input.
package command
