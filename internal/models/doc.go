// Package models defines the domain values of a playlist generation session.
//
// The package contains three groups of types:
//
// 1. Generation and catalog values
//   - [Candidate] : unverified (title, artist, reason) triple from the generator
//   - [CatalogMatch] : catalog-verified song; its ID is the only playable/exportable identity
//   - [SongRef] : a (title, artist) pair used for exclusions
//
// 2. Review values
//   - [Song] : a candidate paired with its match, a [Status] and keep/remove reason tags
//   - [FeedbackEntry] : immutable snapshot of a kept or removed song used to steer generation
//
// 3. Persistence values
//   - [SessionSong] : a [Song] without its match
//   - [SessionSnapshot] : the re-hydratable subset of one prompt's review state
//
// Songs are treated as immutable values: every transition ([Song.ToggleKeep],
// [Song.ToggleRemove], [Song.ToggleKeepReason], [Song.ToggleRemoveReason])
// returns a new value and the caller replaces the element in its collection.
//
// Matches are never persisted. They are re-derived when a snapshot is resumed,
// so a restored session may carry different artwork or availability than the
// one that was saved while its status and reason annotations stay identical.
package models
