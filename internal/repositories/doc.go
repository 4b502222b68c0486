// Package repositories implements SQLite persistence for the mirrored
// WaniKani entities.
//
// One repository per table:
//   - [UserRepository] : learner accounts, credentials, cached profile, last_sync
//   - [AssignmentRepository] : per-subject SRS progress plus derived counts
//   - [ReviewStatisticRepository] : accuracy counters and leech selection
//   - [SubjectRepository] : the global item catalog
//   - [SyncLogRepository] : the append-only sync audit trail
//
// Upserts key on the remote id (INSERT .. ON CONFLICT(id) DO UPDATE) and run
// as single statements. There is no long-held transaction across a batch; a
// crash mid-batch leaves earlier records committed, and replaying the same
// payload converges on the same rows.
//
// Nullable columns map to pointer fields through sql.NullTime / sql.NullString
// helpers in repositories.go.
package repositories
