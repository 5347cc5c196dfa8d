// Package sqlite stores reconstructed CRT events and tracks in SQLite.
//
// All database read/write operations for reconstruction results belong
// here rather than in the layer packages, which stay free of SQL. The
// schema is owned by the embedded golang-migrate migrations.
package sqlite
