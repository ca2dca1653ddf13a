// Package tasks runs playlist synchronizations with real-time progress reporting.
//
// # Sync Engine
//
// [SyncEngine.Run] reconciles one source playlist onto the target site:
//
//  1. Fetches the source playlist and all of its tracks, eagerly
//  2. Authenticates the driver session
//  3. Resolves or creates the destination playlist, once (sync mode only)
//  4. For each track, in source order:
//     - searches the target, retrying driver errors with bounded backoff
//     - scores the candidates with the matcher
//     - adds a confident match, or records why it was skipped
//  5. Returns an immutable [models.SyncReport] with one outcome per track
//
// Steps 1 to 3 are fatal on failure. Nothing in step 4 is: a track that
// keeps failing is recorded as FAILED and the run moves on.
//
// In preview mode no playlist is resolved and nothing is added; tracks that
// would be added are reported as WOULD_ADD.
//
// # Pacing and Cancellation
//
// Every search and add waits on a limiter enforcing the configured minimum
// interval. Driver calls for a track ignore caller cancellation so a retry
// sequence always completes; cancellation is observed between tracks and
// yields the partial report alongside [shared.ErrRunAborted].
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
