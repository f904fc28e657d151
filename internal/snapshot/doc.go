// Package snapshot holds the data model shared by the push client, the
// config synchronizer and the views: ordered configuration snapshots, the
// registry of known fields with their coercion rules, and the push-only
// status types.
package snapshot
