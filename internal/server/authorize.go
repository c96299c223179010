package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/snesjhon/playlist-gen/internal/shared"
)

// MusicUserTokenType is the token type recorded on Apple Music user tokens.
const MusicUserTokenType = "Music-User-Token"

// musicUserTokenLifetime is how long Apple documents a user token to stay valid.
const musicUserTokenLifetime = 180 * 24 * time.Hour

// AuthorizeResult contains the outcome of a browser authorization.
type AuthorizeResult struct {
	Token *oauth2.Token
	err   error
}

func (a *AuthorizeResult) Error() error {
	return a.err
}

// AuthorizeHandler serves a MusicKit JS page that asks the user to sign in
// and posts the resulting Music-User-Token back to /callback.
//
// Only the first callback with the right state is accepted; its result is
// delivered once on [AuthorizeHandler.Result].
type AuthorizeHandler struct {
	developerToken string
	state          string
	now            func() time.Time

	resultChan  chan AuthorizeResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewAuthorizeHandler creates a handler. The state token must be unguessable.
func NewAuthorizeHandler(developerToken, state string) *AuthorizeHandler {
	return &AuthorizeHandler{
		developerToken: developerToken,
		state:          state,
		now:            time.Now,
		resultChan:     make(chan AuthorizeResult, 1),
	}
}

// Register adds the page and callback routes to router.
func (h *AuthorizeHandler) Register(router Router) {
	router.Handle(http.MethodGet, "/", http.HandlerFunc(h.page))
	router.Handle(http.MethodPost, "/callback", http.HandlerFunc(h.callback))
}

var authorizePage = template.Must(template.New("authorize").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>playlist-gen: Connect Apple Music</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #fa233b; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
    <script src="https://js-cdn.music.apple.com/musickit/v3/musickit.js" data-web-components async></script>
</head>
<body>
    <div class="container">
        <h1 id="title">Connecting to Apple Music…</h1>
        <p id="status">Sign in when prompted.</p>
    </div>
    <script>
        const state = {{.State}};
        async function report(body) {
            const resp = await fetch('/callback', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify(Object.assign({ state }, body)),
            });
            return resp.ok;
        }
        document.addEventListener('musickitloaded', async () => {
            try {
                await MusicKit.configure({
                    developerToken: {{.DeveloperToken}},
                    app: { name: 'playlist-gen', build: '1.0.0' },
                });
                const token = await MusicKit.getInstance().authorize();
                const ok = await report({ token });
                document.getElementById('title').textContent = ok ? '✓ Authorization Successful' : 'Authorization Failed';
                document.getElementById('status').textContent = ok
                    ? 'You can close this window and return to the terminal.'
                    : 'The terminal rejected the token. Try again.';
            } catch (e) {
                await report({ error: String(e) });
                document.getElementById('title').textContent = 'Authorization Failed';
                document.getElementById('status').textContent = String(e);
            }
        });
    </script>
</body>
</html>
`))

func (h *AuthorizeHandler) page(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := authorizePage.Execute(w, struct{ State, DeveloperToken string }{h.state, h.developerToken})
	if err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

type callbackBody struct {
	State string `json:"state"`
	Token string `json:"token"`
	Error string `json:"error"`
}

// callback resolves the flow with the first submission carrying the right state.
// Other submissions are rejected without consuming the result.
func (h *AuthorizeHandler) callback(w http.ResponseWriter, r *http.Request) {
	var body callbackBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
		http.Error(w, "Malformed callback", http.StatusBadRequest)
		return
	}
	if body.State != h.state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	if body.Token == "" {
		reason := body.Error
		if reason == "" {
			reason = "no token returned"
		}
		h.Send(AuthorizeResult{err: fmt.Errorf("%w: %s", shared.ErrAuthFailed, reason)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	h.Send(AuthorizeResult{Token: &oauth2.Token{
		AccessToken: body.Token,
		TokenType:   MusicUserTokenType,
		Expiry:      h.now().Add(musicUserTokenLifetime),
	}})
	w.WriteHeader(http.StatusNoContent)
}

// Send sends the result through the channel (only once).
func (h *AuthorizeHandler) Send(result AuthorizeResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving authorization completion.
//
// Channel will receive exactly one result and then be closed.
func (h *AuthorizeHandler) Result() <-chan AuthorizeResult {
	return h.resultChan
}

// Authorize serves h on addr, calls open with the page URL and waits for the
// callback, ctx cancellation or timeout. The server is shut down before returning.
func Authorize(ctx context.Context, addr string, h *AuthorizeHandler, open func(url string) error, timeout time.Duration, logger *log.Logger) (*oauth2.Token, error) {
	router := NewBasicRouter()
	router.Use(RequestLogger(logger), NoStore)
	h.Register(router)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("authorization server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	url := "http://" + listener.Addr().String() + "/"
	logger.Info("waiting for Apple Music authorization", "url", url)
	if open != nil {
		if err := open(url); err != nil {
			logger.Warn("could not open browser, visit the URL manually", "url", url, "error", err)
		}
	}

	select {
	case res := <-h.Result():
		if res.Error() != nil {
			return nil, res.Error()
		}
		return res.Token, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w: no authorization after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
