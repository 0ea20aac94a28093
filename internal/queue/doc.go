// Package queue persists editions and their artifacts in SQLite and exposes
// helpers for driving the edition lifecycle.
//
// The Store owns the connection, schema initialization, status transitions,
// heartbeat tracking and stuck-edition recovery. Alongside the editions table
// it keeps the lyric bank and the per-edition alignment, overlay, translation
// and render records. Segment lists are stored as JSON produced by the
// alignment and transcript packages, so this package stays free of
// domain imports.
//
// Schema changes bump schemaVersion in schema.go; users delete the database to
// adopt the new schema.
package queue
