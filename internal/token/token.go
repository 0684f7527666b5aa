package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sekhar08/livekit-memory-chat/internal/version"
)

// Params are the query parameters sent to the token endpoint.
type Params struct {
	Identity string
	Room     string
}

// Response is the token endpoint's JSON body.
type Response struct {
	Identity string `json:"identity,omitempty"`
	Room     string `json:"room,omitempty"`
	Token    string `json:"token"`
	Error    string `json:"error,omitempty"`
}

// Prompter asks the operator for a credential. It returns
// ErrPromptCancelled when the operator backs out.
type Prompter interface {
	PromptToken(ctx context.Context) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context) (string, error)

func (f PrompterFunc) PromptToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// Fetcher queries a token endpoint over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch issues GET <endpoint>?identity=..&room=.. and returns the token field.
func (f *Fetcher) Fetch(ctx context.Context, endpoint string, p Params) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", wrapError("fetch token", err, "invalid endpoint")
	}
	q := u.Query()
	q.Set("identity", p.Identity)
	q.Set("room", p.Room)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", newError("fetch token", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	slog.Debug("fetching token", "endpoint", u.Redacted(), "identity", p.Identity, "room", p.Room)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", newError("fetch token", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", newError("read token response", err)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return "", wrapError("fetch token", ErrBadStatus, resp.Status)
		}
		return "", wrapError("parse token response", ErrNotJSON, err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		details := resp.Status
		if out.Error != "" {
			details = fmt.Sprintf("%s: %s", resp.Status, out.Error)
		}
		return "", wrapError("fetch token", ErrBadStatus, details)
	}

	if strings.TrimSpace(out.Token) == "" {
		return "", newError("parse token response", ErrMissingToken)
	}
	return out.Token, nil
}

// Source decides where a connection attempt's credential comes from: the
// endpoint when one is given, then a pre-supplied token, then the operator.
type Source struct {
	Static   string
	Params   Params
	Fetcher  *Fetcher
	Prompter Prompter
}

// Acquire produces one credential. There is no retry and no caching.
func (s *Source) Acquire(ctx context.Context, endpoint string) (string, error) {
	if endpoint != "" {
		f := s.Fetcher
		if f == nil {
			f = NewFetcher(10 * time.Second)
		}
		return f.Fetch(ctx, endpoint, s.Params)
	}
	if s.Static != "" {
		return s.Static, nil
	}
	if s.Prompter == nil {
		return "", newError("prompt token", ErrPromptCancelled)
	}

	tok, err := s.Prompter.PromptToken(ctx)
	if err != nil {
		return "", newError("prompt token", err)
	}
	return strings.TrimSpace(tok), nil
}
