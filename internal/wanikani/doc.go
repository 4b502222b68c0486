// Package wanikani implements the authenticated client for the WaniKani v2 API.
//
// # Client
//
// [Client] wraps one [net/http.Client] with bearer-token authentication and the
// Wanikani-Revision header. Collection endpoints are paginated; the client
// follows pages.next_url until exhausted and returns records in page order.
// Every outbound request first passes through a shared [Limiter].
//
// # Rate limiting
//
// [Limiter] is a sliding-window limiter over a mutex-guarded timestamp log,
// shared by every client in the process. It never fails; it only delays, or
// returns early when the caller's context is cancelled.
//
// # Record normalization
//
// Upstream payloads are loosely shaped: the record id rides on the envelope
// while the fields ride in a nested data object, and some historical payloads
// carry the id inside the body instead. The Normalize* functions flatten an
// [Envelope] into one strict record type and classify anything missing a
// required field as [shared.ErrMalformedRecord], so the upsert layer never
// sees an untyped payload.
package wanikani
