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

	"golang.org/x/oauth2"

	"github.com/desertthunder/tabx/internal/shared"
)

type fakeExchanger struct {
	codes []string
	err   error
}

func (f *fakeExchanger) Exchange(_ context.Context, code string, _ ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	f.codes = append(f.codes, code)
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: "access-" + code, RefreshToken: "refresh"}, nil
}

func callback(t *testing.T, h http.Handler, query string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+query, nil))
	return rec
}

func TestOAuthHandler(t *testing.T) {
	t.Run("exchanges the code", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewOAuthHandler(ex, "xyz", "http://127.0.0.1:8080/callback")

		rec := callback(t, h, "state=xyz&code=abc")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Spotify Connected") {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error: %v", result.Error())
		}
		if result.Token.AccessToken != "access-abc" {
			t.Errorf("expected access-abc, got %s", result.Token.AccessToken)
		}
	})

	t.Run("rejects state mismatch", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewOAuthHandler(ex, "xyz", "")

		rec := callback(t, h, "state=nope&code=abc")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if err := (<-h.Result()).Error(); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if len(ex.codes) != 0 {
			t.Errorf("exchange should not be called, got %v", ex.codes)
		}
	})

	t.Run("reports provider error", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "xyz", "")

		rec := callback(t, h, "state=xyz&error=access_denied")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		err := (<-h.Result()).Error()
		if err == nil || !strings.Contains(err.Error(), "access_denied") {
			t.Errorf("expected access_denied in error, got %v", err)
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{err: errors.New("bad code")}, "xyz", "")

		rec := callback(t, h, "state=xyz&code=abc")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if err := (<-h.Result()).Error(); err == nil {
			t.Error("expected an error result")
		}
	})

	t.Run("only one callback is processed", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewOAuthHandler(ex, "xyz", "")

		callback(t, h, "state=xyz&code=first")
		rec := callback(t, h, "state=xyz&code=second")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for replay, got %d", rec.Code)
		}
		if len(ex.codes) != 1 || ex.codes[0] != "first" {
			t.Errorf("expected one exchange, got %v", ex.codes)
		}
	})

	t.Run("routes follow the redirect uri", func(t *testing.T) {
		tests := []struct {
			redirect string
			want     string
		}{
			{"http://127.0.0.1:8080/callback", "/callback"},
			{"http://localhost:9000/auth/spotify", "/auth/spotify"},
			{"http://localhost:9000", "/callback"},
			{"", "/callback"},
		}
		for _, tt := range tests {
			h := NewOAuthHandler(&fakeExchanger{}, "s", tt.redirect)
			if got := h.Routes(); len(got) != 1 || got[0] != tt.want {
				t.Errorf("Routes() for %q = %v, want %s", tt.redirect, got, tt.want)
			}
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("filters by method", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			io.WriteString(w, "pong")
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
			t.Errorf("GET: got %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST: expected 405, got %d", rec.Code)
		}
	})

	t.Run("middleware runs in order added", func(t *testing.T) {
		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, req)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(tag("first"), tag("second"))
		r.Handle(http.MethodGet, "/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order: %v", order)
		}
	})

	t.Run("logging keeps status", func(t *testing.T) {
		var buf strings.Builder
		r := NewBasicRouter()
		r.Use(Logging(shared.NewLogger(&buf)))
		r.Handle(http.MethodGet, "/missing", http.NotFoundHandler())

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing?code=secret", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
		if strings.Contains(buf.String(), "secret") {
			t.Errorf("query string leaked into log: %s", buf.String())
		}
	})
}

func TestCallbackServer(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("receives token", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "xyz", "http://127.0.0.1/callback")
		srv, err := NewCallbackServer("127.0.0.1:0", h, logger)
		if err != nil {
			t.Fatalf("NewCallbackServer() error = %v", err)
		}
		srv.Start()

		go func() {
			resp, err := http.Get("http://" + srv.Addr() + "/callback?state=xyz&code=live")
			if err == nil {
				resp.Body.Close()
			}
		}()

		token, err := srv.Wait(context.Background(), 5*time.Second)
		if err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if token.AccessToken != "access-live" {
			t.Errorf("unexpected token %s", token.AccessToken)
		}
	})

	t.Run("times out", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "xyz", "")
		srv, err := NewCallbackServer("127.0.0.1:0", h, logger)
		if err != nil {
			t.Fatalf("NewCallbackServer() error = %v", err)
		}
		srv.Start()

		if _, err := srv.Wait(context.Background(), 20*time.Millisecond); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("busy port", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "xyz", "")
		first, err := NewCallbackServer("127.0.0.1:0", h, logger)
		if err != nil {
			t.Fatalf("NewCallbackServer() error = %v", err)
		}
		defer first.listener.Close()

		if _, err := NewCallbackServer(first.Addr(), h, logger); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
