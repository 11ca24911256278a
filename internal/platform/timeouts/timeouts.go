// Package timeouts defines shared timeout constants used across binaries.
package timeouts

import "time"

// Command caps how long a single CLI command waits on the engine, including
// time spent queued behind other writers on the same challenge.
const Command = 5 * time.Second

// SQLiteBusy is the busy_timeout handed to SQLite connections.
const SQLiteBusy = 5 * time.Second

// Shutdown limits how long a binary waits for telemetry and storage to close.
const Shutdown = 5 * time.Second
