// Package sync implements the background replication pipeline that keeps the
// local mirror consistent with the WaniKani API.
//
// # Orchestrator
//
// [Service.SyncUser] runs one user's sync: open a sync log, refresh the
// cached profile, then replicate assignments and review statistics
// incrementally from the user's last_sync watermark. The profile step is
// attempt-fatal; the two collection steps are fault-isolated, so a failed
// fetch or a malformed record is captured in the [Report] and the attempt
// still completes as a success with partial counts.
//
// [Service.SyncAllDueUsers] fans out over every user whose last_sync is unset
// or stale, bounded by a counting admission gate. One user's failure never
// cancels a sibling.
//
// # Scheduler
//
// [Service.Start] fires the fleet sync on a fixed interval with a
// single-flight guard (a firing that arrives while a run is active is
// skipped, not queued) and a misfire grace (a firing delivered too late is
// dropped). [Service.Stop] waits for any in-flight run before returning.
// Both are idempotent.
//
// # Catalog
//
// The global subject catalog is deliberately outside the per-user cycle;
// [Service.SyncSubjects] replicates it as a separately triggered batch job.
package sync
