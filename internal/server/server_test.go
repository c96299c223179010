package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/snesjhon/playlist-gen/internal/shared"
)

func TestBasicRouter(t *testing.T) {
	t.Run("Method Filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "pong")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Body.String() != "pong" {
			t.Errorf("expected pong, got %q", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Root Is Exact", func(t *testing.T) {
		router := NewBasicRouter()
		router.HandleFunc(http.MethodGet, "/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "root")
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Body.String() != "root" {
			t.Errorf("expected root, got %q", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(tag("first"), tag("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("expected first,second, got %v", order)
		}
	})

	t.Run("NoStore", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(RequestLogger(shared.NewLogger(io.Discard)), NoStore)
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Header().Get("Cache-Control") != "no-store" || rec.Code != http.StatusTeapot {
			t.Errorf("unexpected response %d %v", rec.Code, rec.Header())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		if rec.Header().Get("Cache-Control") != "no-store" || rec.Code != http.StatusNotFound {
			t.Errorf("expected middleware on 404, got %d %v", rec.Code, rec.Header())
		}
	})
}

func authorizeRouter(h *AuthorizeHandler) *BasicRouter {
	router := NewBasicRouter()
	h.Register(router)
	return router
}

func postCallback(h http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthorizeHandler(t *testing.T) {
	t.Run("Page Embeds Tokens", func(t *testing.T) {
		h := NewAuthorizeHandler("dev-token", "state-123")
		rec := httptest.NewRecorder()
		authorizeRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		body := rec.Body.String()
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(body, `"dev-token"`) || !strings.Contains(body, `"state-123"`) {
			t.Errorf("expected quoted tokens in page, got:\n%s", body)
		}
		if !strings.Contains(body, "musickit.js") {
			t.Error("expected MusicKit script")
		}
	})

	t.Run("Successful Callback", func(t *testing.T) {
		h := NewAuthorizeHandler("dev", "s")
		fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		h.now = func() time.Time { return fixed }

		rec := postCallback(authorizeRouter(h), `{"state":"s","token":"user-token"}`)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}

		res := <-h.Result()
		if res.Error() != nil {
			t.Fatalf("expected no error, got %v", res.Error())
		}
		if res.Token.AccessToken != "user-token" || res.Token.TokenType != MusicUserTokenType {
			t.Errorf("unexpected token %+v", res.Token)
		}
		if !res.Token.Expiry.After(fixed) {
			t.Errorf("expected expiry after %v, got %v", fixed, res.Token.Expiry)
		}
	})

	t.Run("Invalid State Does Not Consume Callback", func(t *testing.T) {
		h := NewAuthorizeHandler("dev", "s")
		router := authorizeRouter(h)
		if rec := postCallback(router, `{"state":"other","token":"stray"}`); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if rec := postCallback(router, `not json`); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		select {
		case res := <-h.Result():
			t.Fatalf("expected no result yet, got %+v", res)
		default:
		}

		if rec := postCallback(router, `{"state":"s","token":"real"}`); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		res := <-h.Result()
		if res.Error() != nil || res.Token.AccessToken != "real" {
			t.Errorf("expected real token, got %+v %v", res.Token, res.Error())
		}
	})

	t.Run("Browser Error", func(t *testing.T) {
		h := NewAuthorizeHandler("dev", "s")
		postCallback(authorizeRouter(h), `{"state":"s","error":"AUTHORIZATION_ERROR: Unauthorized"}`)

		res := <-h.Result()
		if res.Error() == nil || !strings.Contains(res.Error().Error(), "Unauthorized") {
			t.Errorf("expected browser error surfaced, got %v", res.Error())
		}
	})

	t.Run("Single Use", func(t *testing.T) {
		h := NewAuthorizeHandler("dev", "s")
		router := authorizeRouter(h)
		postCallback(router, `{"state":"s","token":"first"}`)
		if rec := postCallback(router, `{"state":"s","token":"second"}`); rec.Code != http.StatusBadRequest {
			t.Errorf("expected second callback rejected, got %d", rec.Code)
		}

		res := <-h.Result()
		if res.Token == nil || res.Token.AccessToken != "first" {
			t.Errorf("expected first token, got %+v", res.Token)
		}
		if _, ok := <-h.Result(); ok {
			t.Error("expected channel closed after one result")
		}
	})

	t.Run("Routing", func(t *testing.T) {
		router := authorizeRouter(NewAuthorizeHandler("dev", "s"))
		tests := []struct {
			method, path string
			want         int
		}{
			{http.MethodGet, "/favicon.ico", http.StatusNotFound},
			{http.MethodPost, "/", http.StatusMethodNotAllowed},
			{http.MethodGet, "/callback", http.StatusMethodNotAllowed},
		}
		for _, tt := range tests {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.want, rec.Code)
			}
		}
	})
}

func TestAuthorize(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("Round Trip", func(t *testing.T) {
		h := NewAuthorizeHandler("dev", "s")
		open := func(url string) error {
			go func() {
				resp, err := http.Post(url+"callback", "application/json", strings.NewReader(`{"state":"s","token":"tok"}`))
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		}

		token, err := Authorize(context.Background(), "127.0.0.1:0", h, open, 5*time.Second, logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "tok" {
			t.Errorf("expected tok, got %s", token.AccessToken)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		_, err := Authorize(context.Background(), "127.0.0.1:0", NewAuthorizeHandler("dev", "s"), nil, 10*time.Millisecond, logger)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})
}
