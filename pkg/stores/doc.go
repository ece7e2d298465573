// Package stores persists deployment history in SQLite: runs with their
// per-resource results, the trigger ids each declared trigger was bound to,
// and an audit trail. The schema is applied with embedded migrations.
package stores
