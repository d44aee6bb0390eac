package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"meme-radar/internal/domain"
	"meme-radar/internal/extract"
)

// Default Reddit endpoints and knobs.
const (
	DefaultAuthURL        = "https://www.reddit.com/api/v1/access_token"
	DefaultAPIBaseURL     = "https://oauth.reddit.com"
	DefaultSubreddit      = "cryptocurrency"
	DefaultPageSize       = 100
	DefaultCallsPerMinute = 60
	DefaultRetryBackoff   = 60 * time.Second
)

// RedditOptions configures a Reddit source adapter.
type RedditOptions struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string

	Subreddit      string        // default "cryptocurrency"
	PageSize       int           // posts per fetch, default 100
	CallsPerMinute int           // outbound pacing, default 60
	RetryBackoff   time.Duration // backoff when the server gives no Retry-After

	AuthURL    string // override for tests
	APIBaseURL string // override for tests
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Reddit fetches hot posts from a subreddit via the OAuth2 password grant.
// Authentication is lazy: the first Fetch obtains a token, which is cached
// until it expires or the API reports it invalid.
type Reddit struct {
	clientID     string
	clientSecret string
	username     string
	password     string
	userAgent    string
	subreddit    string
	pageSize     int
	retryBackoff time.Duration
	authURL      string
	baseURL      string
	client       *http.Client
	limiter      *rate.Limiter
	logger       zerolog.Logger

	// Auth state is serialized: concurrent fetches share one token.
	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewReddit creates a Reddit source adapter.
func NewReddit(opts RedditOptions) *Reddit {
	subreddit := opts.Subreddit
	if subreddit == "" {
		subreddit = DefaultSubreddit
	}
	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	callsPerMinute := opts.CallsPerMinute
	if callsPerMinute == 0 {
		callsPerMinute = DefaultCallsPerMinute
	}
	retryBackoff := opts.RetryBackoff
	if retryBackoff == 0 {
		retryBackoff = DefaultRetryBackoff
	}
	authURL := opts.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	baseURL := opts.APIBaseURL
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Reddit{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		username:     opts.Username,
		password:     opts.Password,
		userAgent:    opts.UserAgent,
		subreddit:    subreddit,
		pageSize:     pageSize,
		retryBackoff: retryBackoff,
		authURL:      authURL,
		baseURL:      baseURL,
		client:       client,
		limiter:      rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), 1),
		logger:       opts.Logger,
	}
}

// Compile-time interface check.
var _ Source = (*Reddit)(nil)

// Name returns the platform tag.
func (r *Reddit) Name() string { return "reddit" }

// listing mirrors the subset of the Reddit listing payload we consume.
type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title    string `json:"title"`
				Selftext string `json:"selftext"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// tokenResponse mirrors the OAuth token payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Fetch retrieves one page of hot posts. Failure handling per attempt:
// a 401 triggers one re-auth and retry, a 429 or network failure triggers
// one backoff and retry. A second failure of either kind is surfaced as
// ErrAuth, ErrRateLimited or ErrTransient.
func (r *Reddit) Fetch(ctx context.Context) ([]domain.Post, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reauthed := false
	backedOff := false

	for attempt := 0; ; attempt++ {
		body, status, err := r.getHot(ctx)
		switch {
		case errors.Is(err, ErrAuth):
			if reauthed {
				return nil, err
			}
			reauthed = true
			r.logger.Warn().Err(err).Msg("reddit authentication failed, retrying once")
			continue

		case err != nil:
			if backedOff {
				return nil, fmt.Errorf("%w: %v", ErrTransient, err)
			}
			backedOff = true
			if err := r.sleep(ctx, r.retryBackoff); err != nil {
				return nil, err
			}
			r.logger.Warn().Err(err).Int("attempt", attempt).Msg("reddit fetch failed, retrying")
			continue

		case status == http.StatusUnauthorized:
			if reauthed {
				return nil, fmt.Errorf("%w: token rejected after re-auth", ErrAuth)
			}
			reauthed = true
			r.invalidateToken()
			r.logger.Warn().Int("attempt", attempt).Msg("reddit token rejected, re-authenticating")
			continue

		case status == http.StatusTooManyRequests:
			if backedOff {
				return nil, fmt.Errorf("%w: still throttled after backoff", ErrRateLimited)
			}
			backedOff = true
			wait := retryAfter(body.header, r.retryBackoff)
			r.logger.Warn().Dur("backoff", wait).Msg("reddit rate limited, backing off once")
			if err := r.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue

		case status != http.StatusOK:
			return nil, fmt.Errorf("%w: unexpected status %d", ErrTransient, status)
		}

		return r.parsePosts(body.payload), nil
	}
}

// response bundles payload and headers so the retry loop can read Retry-After.
type response struct {
	payload []byte
	header  http.Header
}

// getHot performs one authenticated listing request.
func (r *Reddit) getHot(ctx context.Context) (response, int, error) {
	token, err := r.ensureToken(ctx)
	if err != nil {
		return response{}, 0, err
	}

	endpoint := fmt.Sprintf("%s/r/%s/hot?limit=%d", r.baseURL, url.PathEscape(r.subreddit), r.pageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return response{}, 0, fmt.Errorf("create listing request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return response{}, 0, fmt.Errorf("listing request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, 0, fmt.Errorf("read listing response: %w", err)
	}

	return response{payload: payload, header: resp.Header}, resp.StatusCode, nil
}

// ensureToken returns the cached token, authenticating when it is missing
// or expired.
func (r *Reddit) ensureToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && time.Now().Before(r.tokenExpiry) {
		return r.token, nil
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {r.username},
		"password":   {r.password},
		"scope":      {"read"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}
	req.SetBasicAuth(r.clientID, r.clientSecret)
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: auth status %d: %s", ErrAuth, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuth)
	}

	r.token = tok.AccessToken
	// Refresh one minute before the server-side expiry.
	expiresIn := time.Duration(tok.ExpiresIn) * time.Second
	if expiresIn <= time.Minute {
		expiresIn = 2 * time.Minute
	}
	r.tokenExpiry = time.Now().Add(expiresIn - time.Minute)

	r.logger.Info().Str("subreddit", r.subreddit).Msg("reddit authentication succeeded")
	return r.token, nil
}

// invalidateToken forces re-authentication on the next request.
func (r *Reddit) invalidateToken() {
	r.mu.Lock()
	r.token = ""
	r.tokenExpiry = time.Time{}
	r.mu.Unlock()
}

// parsePosts converts a listing payload into cleaned posts. Items that
// cannot be decoded or cleaned are skipped, never fatal.
func (r *Reddit) parsePosts(payload []byte) []domain.Post {
	var l listing
	if err := json.Unmarshal(payload, &l); err != nil {
		r.logger.Warn().Err(err).Msg("malformed reddit listing, returning no posts")
		return nil
	}

	posts := make([]domain.Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		raw := strings.TrimSpace(child.Data.Title + " " + child.Data.Selftext)
		if raw == "" {
			continue
		}
		text, ok := extract.Sanitize(raw)
		if !ok {
			r.logger.Warn().Msg("skipping reddit post that could not be cleaned")
			continue
		}
		posts = append(posts, domain.Post{Source: r.Name(), Text: text})
	}
	return posts
}

// sleep waits for d or until ctx is done, whichever comes first.
func (r *Reddit) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// retryAfter reads the server-indicated backoff, falling back to def.
func retryAfter(header http.Header, def time.Duration) time.Duration {
	if header == nil {
		return def
	}
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
