package token

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var seen http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = *r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestFetcher_Fetch(t *testing.T) {
	req := require.New(t)
	srv, seen := newTokenServer(t, http.StatusOK, `{"identity":"web-user","room":"default","token":"abc"}`)

	tok, err := NewFetcher(time.Second).Fetch(context.Background(), srv.URL+"/token", Params{Identity: "web-user", Room: "default"})
	req.NoError(err)
	req.Equal("abc", tok)
	req.Equal("/token", seen.URL.Path)
	req.Equal("web-user", seen.URL.Query().Get("identity"))
	req.Equal("default", seen.URL.Query().Get("room"))
	req.Contains(seen.Header.Get("User-Agent"), "roomchat/")
}

func TestFetcher_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"missing token field", http.StatusOK, `{"identity":"web-user"}`, ErrMissingToken},
		{"empty token", http.StatusOK, `{"token":""}`, ErrMissingToken},
		{"not json", http.StatusOK, `<html>oops</html>`, ErrNotJSON},
		{"server error with json", http.StatusInternalServerError, `{"error":"Missing LIVEKIT_API_KEY or LIVEKIT_API_SECRET"}`, ErrBadStatus},
		{"server error without json", http.StatusBadGateway, `bad gateway`, ErrBadStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			srv, _ := newTokenServer(t, tt.status, tt.body)

			tok, err := NewFetcher(time.Second).Fetch(context.Background(), srv.URL, Params{Identity: "web-user", Room: "default"})
			req.Empty(tok)
			req.ErrorIs(err, tt.wantErr)

			var fetchErr *FetchError
			req.ErrorAs(err, &fetchErr)
		})
	}
}

func TestFetcher_ServerErrorDetails(t *testing.T) {
	srv, _ := newTokenServer(t, http.StatusInternalServerError, `{"error":"Missing LIVEKIT_API_KEY or LIVEKIT_API_SECRET"}`)

	_, err := NewFetcher(time.Second).Fetch(context.Background(), srv.URL, Params{})
	require.ErrorContains(t, err, "Missing LIVEKIT_API_KEY")
}

func TestFetcher_NetworkError(t *testing.T) {
	req := require.New(t)
	srv, _ := newTokenServer(t, http.StatusOK, `{"token":"abc"}`)
	endpoint := srv.URL
	srv.Close()

	_, err := NewFetcher(time.Second).Fetch(context.Background(), endpoint, Params{})
	var fetchErr *FetchError
	req.ErrorAs(err, &fetchErr)
	req.Equal("fetch token", fetchErr.Op)
}

func TestSource_Acquire(t *testing.T) {
	t.Run("endpoint wins over prompt", func(t *testing.T) {
		req := require.New(t)
		srv, _ := newTokenServer(t, http.StatusOK, `{"token":"abc"}`)
		prompted := false

		src := &Source{
			Params:   Params{Identity: "web-user", Room: "default"},
			Fetcher:  NewFetcher(time.Second),
			Prompter: PrompterFunc(func(context.Context) (string, error) {
				prompted = true
				return "", nil
			}),
		}
		tok, err := src.Acquire(context.Background(), srv.URL)
		req.NoError(err)
		req.Equal("abc", tok)
		req.False(prompted)
	})

	t.Run("static token skips prompt", func(t *testing.T) {
		src := &Source{Static: "pasted"}
		tok, err := src.Acquire(context.Background(), "")
		require.NoError(t, err)
		require.Equal(t, "pasted", tok)
	})

	t.Run("prompt is trimmed", func(t *testing.T) {
		src := &Source{Prompter: PrompterFunc(func(context.Context) (string, error) {
			return "  xyz \n", nil
		})}
		tok, err := src.Acquire(context.Background(), "")
		require.NoError(t, err)
		require.Equal(t, "xyz", tok)
	})

	t.Run("cancelled prompt fails", func(t *testing.T) {
		req := require.New(t)
		src := &Source{Prompter: PrompterFunc(func(context.Context) (string, error) {
			return "", ErrPromptCancelled
		})}
		_, err := src.Acquire(context.Background(), "")
		req.ErrorIs(err, ErrPromptCancelled)
		var fetchErr *FetchError
		req.ErrorAs(err, &fetchErr)
	})
}
