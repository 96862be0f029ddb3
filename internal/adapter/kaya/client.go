package kaya

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"kaya-scraper/internal/domain"
	"kaya-scraper/internal/ports"
)

// PageSize is the fixed page size of the paginated ascents endpoint.
const PageSize = 15

const (
	graphqlPath      = "/graphql"
	refreshTokenPath = "/api/user/refresh-token"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/135.0.0.0 Safari/537.36"
)

// Client talks to the Kaya API with bearer auth. A 401 triggers a token
// refresh through the credential provider and a retry of the same request;
// the refresh call itself runs with a zero retry budget so it can never
// recurse into another refresh.
type Client struct {
	baseURL string
	creds   ports.CredentialProvider
	http    *resty.Client
	log     *slog.Logger

	// refreshMu serializes the read-check-refresh-write cycle so concurrent
	// callers cannot race duplicate refreshes.
	refreshMu sync.Mutex
}

func NewClient(baseURL string, creds ports.CredentialProvider, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://kaya-beta.kayaclimb.com"
	}
	hc := resty.New()
	hc.SetTimeout(30 * time.Second)
	hc.SetHeaders(map[string]string{
		"accept":          "*/*",
		"accept-language": "en-US,en;q=0.9",
		"content-type":    "application/json",
		"origin":          "https://kaya-app.kayaclimb.com",
		"referer":         "https://kaya-app.kayaclimb.com/",
		"user-agent":      userAgent,
	})
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		http:    hc,
		log:     log,
	}
}

type graphqlRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

// post sends an authenticated POST. On 401 it refreshes tokens and retries
// the same request, at most maxRetries times. Other HTTP failures surface as
// *HTTPError, network failures as *TransportError; neither is retried here.
func (c *Client) post(ctx context.Context, path string, body any, maxRetries int) (*resty.Response, error) {
	for attempt := 0; ; attempt++ {
		pair, err := c.creds.Load(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("authorization", "Bearer "+pair.AccessToken).
			SetBody(body).
			Post(c.baseURL + path)
		if err != nil {
			return nil, &TransportError{Err: err}
		}
		if resp.StatusCode() == http.StatusUnauthorized {
			if attempt >= maxRetries {
				return nil, ErrAuthRetriesExhausted
			}
			c.log.Warn("unauthorized, refreshing tokens and retrying",
				slog.String("path", path), slog.Int("attempt", attempt+1))
			if _, err := c.RefreshTokens(ctx); err != nil {
				return nil, err
			}
			continue
		}
		if resp.IsError() {
			return nil, &HTTPError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
		}
		return resp, nil
	}
}

// RefreshTokens exchanges the current refresh token for a new access token,
// persists the new pair and returns it. When the response carries no rotated
// refresh token, the previous one is kept.
func (c *Client) RefreshTokens(ctx context.Context) (domain.CredentialPair, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	pair, err := c.creds.Load(ctx)
	if err != nil {
		return domain.CredentialPair{}, err
	}
	body := map[string]string{"refresh_token": pair.RefreshToken}
	resp, err := c.post(ctx, refreshTokenPath, body, 0)
	if err != nil {
		return domain.CredentialPair{}, &AuthError{Err: err}
	}
	var tokens struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(resp.Body(), &tokens); err != nil {
		return domain.CredentialPair{}, &AuthError{Err: err}
	}
	next := domain.CredentialPair{
		AccessToken:  tokens.Token,
		RefreshToken: pair.RefreshToken,
	}
	if tokens.RefreshToken != "" {
		next.RefreshToken = tokens.RefreshToken
	}
	if err := c.creds.Save(ctx, next); err != nil {
		return domain.CredentialPair{}, err
	}
	c.log.Info("refreshed api tokens")
	return next, nil
}

// AscentsPage fetches one page of ascents for a gym, normalized to the flat
// record shape. An empty slice means end of data.
func (c *Client) AscentsPage(ctx context.Context, gymID string, offset int) ([]domain.Ascent, error) {
	req := graphqlRequest{
		OperationName: "webAscentsForGym",
		Variables: map[string]any{
			"gym_id": gymID,
			"offset": offset,
			"count":  PageSize,
		},
		Query: ascentsForGymQuery,
	}
	resp, err := c.post(ctx, graphqlPath, req, 1)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data struct {
			WebAscentsForGym []rawAscent `json:"webAscentsForGym"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &GraphQLError{Messages: msgs}
	}
	ascents := make([]domain.Ascent, 0, len(out.Data.WebAscentsForGym))
	for _, r := range out.Data.WebAscentsForGym {
		ascents = append(ascents, normalizeAscent(r, gymID))
	}
	return ascents, nil
}

// SearchGyms looks up gyms by a free-text term.
func (c *Client) SearchGyms(ctx context.Context, term string) ([]domain.Gym, error) {
	req := graphqlRequest{
		OperationName: "webSearchForGym",
		Variables: map[string]any{
			"term":   term,
			"offset": 0,
			"count":  100,
		},
		Query: searchForGymQuery,
	}
	resp, err := c.post(ctx, graphqlPath, req, 1)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data struct {
			WebSearchForGym []rawGym `json:"webSearchForGym"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &GraphQLError{Messages: msgs}
	}
	gyms := make([]domain.Gym, 0, len(out.Data.WebSearchForGym))
	for _, r := range out.Data.WebSearchForGym {
		gyms = append(gyms, normalizeGym(r))
	}
	return gyms, nil
}
