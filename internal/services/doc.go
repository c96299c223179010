// Package services implements the two external collaborators of playlist generation.
//
// # Suggestion Generator
//
// [Generator] turns a free-text prompt plus exclusions and feedback into a
// batch of [models.Candidate] values. [AnthropicGenerator] implements it on
// the Anthropic Messages API. The model is told to answer with a bare JSON
// array; [ParseCandidates] strips code fences before decoding and rejects
// anything that is not a list of objects. Missing fields decode to "".
//
// The generator never retries. Status codes map onto typed errors:
//   - 401 : [shared.ErrInvalidCredentials]
//   - 429 : [shared.ErrRateLimited]
//   - other non-2xx : [shared.ErrGeneratorService] with status and body
//   - unparseable text : [shared.ErrMalformedResponse]
//
// # Catalog
//
// [Catalog] resolves a (title, artist) pair to a [models.CatalogMatch].
// [AppleMusicService] implements it with a single storefront-scoped search for
// "title artist", taking the top-ranked song. Every request carries the
// developer token as a bearer credential ([oauth2.Transport]) and passes a
// shared [rate.Limiter].
//
// [AppleMusicService.CreateLibraryPlaylist] commits a finished set of song IDs
// to the user's library. It needs the user-scoped Music-User-Token obtained
// through the authorization flow in package server.
//
// # Catalog session
//
// [CatalogSession] is the explicitly owned handle to the single vendor session.
// It is created cheaply and configures the underlying [AppleMusicService] on
// first use. Initialization failures are reported as [shared.ErrCatalogUnavailable].
package services
