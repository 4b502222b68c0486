// Package models defines the domain entities mirrored from the WaniKani API.
//
// The package contains two categories of types:
//
// 1. Per-user progress records, owned by the local store and mutated only
// during sync or registration:
//   - [User] : learner identity, upstream credential, cached profile
//   - [Assignment] : per-subject SRS progress with stage and availability times
//   - [ReviewStatistic] : per-subject accuracy counters and streaks
//   - [SyncLog] : append-only audit row for one sync attempt
//
// 2. Global catalog data shared by every user:
//   - [Subject] : a learnable item (radical, kanji, vocabulary) with its
//     meanings, readings and component relationships
//
// Remote ids are authoritative and reused as local primary keys, which makes
// replaying an upsert idempotent. All timestamp fields are pointers; nil maps
// to "unset" in the store.
package models
