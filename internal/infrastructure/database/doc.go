// Package database provides the SQLite persistence layer for the monitor
// service: domophone state snapshots, recent events, and application logs.
//
// SQLite was chosen because the monitor is a single-writer process with a
// modest write rate (a handful of status and event rows per second across
// the whole fleet). WAL mode keeps readers from blocking the writer, and
// a single-connection pool sidesteps SQLITE_BUSY contention entirely.
//
// Schema changes ship as embedded migrations. The migrations package sets
// MigrationsFS at init, so calling Migrate() at startup brings any database
// file, fresh or stale, to the current schema.
package database
