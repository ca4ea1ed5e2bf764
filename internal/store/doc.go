// Package store keeps the results of simulation runs in a SQLite file.
//
// Each run row is created when a scenario starts and finished with its
// final status. It owns two append-only tables: samples (one value per
// instance, variable and communication step) and messages (instance log
// messages in the order they were drained). Values are stored as text next
// to their FMI data type and decode back into fmi2.Value.
//
// Reads are ordered by step and then by instance and variable name with
// COLLATE BINARY, so two identical runs read back identically.
//
// The database runs in WAL mode with synchronous=NORMAL and foreign keys
// enforced; schema changes are applied through PRAGMA user_version.
package store
