// Package database stores pausescan run history in SQLite.
//
// Every saved run becomes one row in the runs table, holding the counters
// and the full summary as JSON, plus one row per recorded finding in the
// findings table. The history command reads it back.
//
// The driver is modernc.org/sqlite, so the binary stays CGO-free and the
// database is a single file under the XDG data directory.
package database
