// Package tasks runs the generate-and-match pipeline and the playlist export.
//
// # Matching
//
// [Matcher] resolves candidates against a [services.Catalog] one at a time.
// Output order and length always equal the input. A failed lookup is logged
// and becomes a nil match; it never aborts the batch. The injected [Pause]
// runs between lookups, never before the first or after the last, so tests
// use [NoDelay] instead of waiting on the clock.
//
// # Reconciliation
//
// [Reconciler.Reconcile] asks the [services.Generator] for the songs still
// missing, matches them and keeps the hits. Misses are remembered for the
// rest of the call and excluded from later attempts. Attempts run from 0 to
// MaxRetries inclusive and stop as soon as the target is reached. Any
// generator failure aborts the call with no partial result, while an attempt
// that matches nothing simply moves on to the next one.
//
// In regeneration mode the caller's kept and removed feedback is sent with
// every attempt and the remembered misses are appended to the removed list
// without reasons.
//
// # Export
//
// [Exporter] obtains a user token from its [Authorizer] and commits song ids
// through a [services.PlaylistCreator]. [ExportableIDs] is the pure filter
// that drops songs without a catalog match.
//
// # Progress Reporting
//
// All operations accept an optional progress channel. Updates are sent with
// select/default so a slow reader never blocks the pipeline.
package tasks
