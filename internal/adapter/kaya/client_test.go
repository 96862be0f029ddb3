package kaya

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaya-scraper/internal/domain"
)

type memCreds struct {
	pair  domain.CredentialPair
	saves []domain.CredentialPair
}

func (m *memCreds) Load(context.Context) (domain.CredentialPair, error) { return m.pair, nil }
func (m *memCreds) Save(_ context.Context, pair domain.CredentialPair) error {
	m.pair = pair
	m.saves = append(m.saves, pair)
	return nil
}

const samplePage = `{"data":{"webAscentsForGym":[{
  "id": "send-1",
  "user": {
    "id": "u-9",
    "username": "crusher",
    "fname": "Sam",
    "lname": "Stone",
    "photo_url": "https://cdn.example/u9.jpg",
    "is_private": true,
    "bio": null,
    "height": 172.5,
    "ape_index": 2.0,
    "limit_grade_bouldering": {"name": "V8", "id": "g-8"},
    "limit_grade_routes": null,
    "is_premium": null
  },
  "climb": {
    "slug": "the-prow-12345",
    "name": "The Prow",
    "rating": 4.5,
    "ascent_count": 37.0,
    "grade": {"name": "V5", "id": "g-5"},
    "climb_type": {"name": "Boulder"},
    "color": {"name": "Red"},
    "gym": {"name": "Alpha Bouldering"}
  },
  "date": "2026-08-01",
  "comment": "so good",
  "rating": 5,
  "stiffness": -1.0,
  "grade": {"name": "V6", "id": "g-6"}
}]}}`

func TestAscentsPageNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/graphql", r.URL.Path)
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))

		var req graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "webAscentsForGym", req.OperationName)
		assert.Equal(t, "G1", req.Variables["gym_id"])
		assert.Equal(t, float64(PageSize), req.Variables["count"])

		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	creds := &memCreds{pair: domain.CredentialPair{AccessToken: "access-1", RefreshToken: "refresh-1"}}
	c := NewClient(srv.URL, creds, slog.Default())

	page, err := c.AscentsPage(context.Background(), "G1", 0)
	require.NoError(t, err)
	require.Len(t, page, 1)

	a := page[0]
	assert.Equal(t, "send-1", a.SendID)
	assert.Equal(t, "G1", a.GymID)
	assert.Equal(t, "2026-08-01", *a.Date)
	assert.Equal(t, "so good", *a.Comment)
	assert.Equal(t, int64(5), *a.Rating)
	assert.Equal(t, int64(-1), *a.Stiffness)
	assert.Equal(t, "V6", *a.Grade)

	assert.Equal(t, "u-9", *a.UserID)
	assert.Equal(t, "crusher", *a.Username)
	assert.Equal(t, "Sam", *a.FirstName)
	assert.Equal(t, "Stone", *a.LastName)
	assert.Equal(t, 172.5, *a.Height)
	assert.Equal(t, "V8", *a.LimitGradeBouldering)
	assert.Nil(t, a.LimitGradeRoutes)
	assert.Nil(t, a.Bio)
	assert.True(t, a.IsPrivate)
	assert.False(t, a.IsPremium) // null coerces to false

	assert.Equal(t, "12345", *a.ClimbID) // slug tail
	assert.Equal(t, "The Prow", *a.ClimbName)
	assert.Equal(t, int64(37), *a.AscentCount)
	assert.Equal(t, "Boulder", *a.ClimbType)
	assert.Equal(t, "Red", *a.Color)
	assert.Equal(t, "Alpha Bouldering", *a.Gym)
}

func TestPostRefreshesOnceOn401(t *testing.T) {
	refreshes := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case refreshTokenPath:
			refreshes++
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "refresh-1", body["refresh_token"])
			w.Write([]byte(`{"token":"access-2"}`))
		case graphqlPath:
			if r.Header.Get("Authorization") != "Bearer access-2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"data":{"webAscentsForGym":[]}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	creds := &memCreds{pair: domain.CredentialPair{AccessToken: "stale", RefreshToken: "refresh-1"}}
	c := NewClient(srv.URL, creds, slog.Default())

	page, err := c.AscentsPage(context.Background(), "G1", 0)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Equal(t, 1, refreshes)

	// The rotated pair was persisted; the refresh token was kept since the
	// response carried none.
	require.Len(t, creds.saves, 1)
	assert.Equal(t, domain.CredentialPair{AccessToken: "access-2", RefreshToken: "refresh-1"}, creds.saves[0])
}

func TestPostExhaustsAuthRetries(t *testing.T) {
	refreshes := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == refreshTokenPath {
			refreshes++
			w.Write([]byte(`{"token":"still-bad"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	creds := &memCreds{pair: domain.CredentialPair{AccessToken: "stale", RefreshToken: "refresh-1"}}
	c := NewClient(srv.URL, creds, slog.Default())

	_, err := c.AscentsPage(context.Background(), "G1", 0)
	require.ErrorIs(t, err, ErrAuthRetriesExhausted)
	assert.Equal(t, 1, refreshes)
}

func TestRefreshTokensRotatesRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, refreshTokenPath, r.URL.Path)
		w.Write([]byte(`{"token":"access-2","refresh_token":"refresh-2"}`))
	}))
	defer srv.Close()

	creds := &memCreds{pair: domain.CredentialPair{AccessToken: "access-1", RefreshToken: "refresh-1"}}
	c := NewClient(srv.URL, creds, slog.Default())

	pair, err := c.RefreshTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.CredentialPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, pair)
	assert.Equal(t, pair, creds.pair)
}

func TestRefreshFailureIsAuthErrorNotRetried(t *testing.T) {
	// The refresh endpoint itself answers 401; with a zero retry budget the
	// refresh must fail instead of recursing into another refresh.
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	creds := &memCreds{pair: domain.CredentialPair{AccessToken: "a", RefreshToken: "r"}}
	c := NewClient(srv.URL, creds, slog.Default())

	_, err := c.RefreshTokens(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 1, calls)
	assert.Empty(t, creds.saves)
}

func TestNonAuthHTTPFailureSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream broke"))
	}))
	defer srv.Close()

	creds := &memCreds{pair: domain.CredentialPair{AccessToken: "a", RefreshToken: "r"}}
	c := NewClient(srv.URL, creds, slog.Default())

	_, err := c.AscentsPage(context.Background(), "G1", 0)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "upstream broke")
}

func TestTransportFailureSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	creds := &memCreds{pair: domain.CredentialPair{AccessToken: "a", RefreshToken: "r"}}
	c := NewClient(srv.URL, creds, slog.Default())

	_, err := c.AscentsPage(context.Background(), "G1", 0)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestGraphQLErrorsSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{},"errors":[{"message":"gym not found"}]}`))
	}))
	defer srv.Close()

	creds := &memCreds{pair: domain.CredentialPair{AccessToken: "a", RefreshToken: "r"}}
	c := NewClient(srv.URL, creds, slog.Default())

	_, err := c.AscentsPage(context.Background(), "G404", 0)
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, []string{"gym not found"}, gqlErr.Messages)
}

func TestSearchGyms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "webSearchForGym", req.OperationName)
		assert.Equal(t, "alpha", req.Variables["term"])

		w.Write([]byte(`{"data":{"webSearchForGym":[
			{"id":"G1","slug":"alpha-bouldering","name":"Alpha Bouldering",
			 "boulder_count":120,"city":"Denver","is_official":true}
		]}}`))
	}))
	defer srv.Close()

	creds := &memCreds{pair: domain.CredentialPair{AccessToken: "a", RefreshToken: "r"}}
	c := NewClient(srv.URL, creds, slog.Default())

	gyms, err := c.SearchGyms(context.Background(), "alpha")
	require.NoError(t, err)
	require.Len(t, gyms, 1)
	assert.Equal(t, "G1", gyms[0].ID)
	assert.Equal(t, "Alpha Bouldering", gyms[0].Name)
	assert.Equal(t, int64(120), *gyms[0].BoulderCount)
	assert.Equal(t, "Denver", *gyms[0].City)
	assert.True(t, gyms[0].IsOfficial)
}

func TestPostLoadErrorIsNotWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected when credentials cannot load")
	}))
	defer srv.Close()

	wantErr := errors.New("no tokens configured")
	c := NewClient(srv.URL, failingCreds{err: wantErr}, slog.Default())

	_, err := c.AscentsPage(context.Background(), "G1", 0)
	require.ErrorIs(t, err, wantErr)
}

type failingCreds struct{ err error }

func (f failingCreds) Load(context.Context) (domain.CredentialPair, error) {
	return domain.CredentialPair{}, f.err
}
func (f failingCreds) Save(context.Context, domain.CredentialPair) error { return f.err }
