// Package server provides HTTP routing, middleware and the local Apple Music
// authorization flow used by the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] runs in the order it was added, around every request the
// router sees. [RequestLogger] and [NoStore] are the middleware the CLI installs.
//
// The [BasicRouter] implementation registers method patterns on an
// [http.ServeMux], so wrong methods get 405 and unknown paths get 404.
//
// # Authorization Handler
//
// Apple Music has no redirect-based user authorization. A user token can only
// be obtained in a browser through MusicKit JS. [AuthorizeHandler] serves a
// page at "/" that configures MusicKit with the developer token, runs
// authorize() and posts the resulting Music-User-Token to "/callback" together
// with the state token it was rendered with.
//
// Its two routes are registered on a [BasicRouter]. The callback ignores
// submissions with the wrong state, accepts exactly one valid submission and delivers
// the token as an [oauth2.Token] on a channel. [Authorize] runs the whole flow
// on a temporary localhost server and shuts it down afterwards.
package server
