package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tgerrors "github.com/randalmurphal/turngraph/pkg/turngraph/errors"
)

var fastRetry = tgerrors.RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     2 * time.Millisecond,
	BackoffFactor:  2,
}

func TestDiscoverQueryValues(t *testing.T) {
	v := DiscoverQuery{
		Language:      "ja-JP",
		WithGenres:    []int{GenreSciFi, GenreAction},
		WithoutGenres: []int{GenreHorror},
		MinRating:     7.5,
	}.Values()

	assert.Equal(t, "ja-JP", v.Get("language"))
	assert.Equal(t, "878,28", v.Get("with_genres"))
	assert.Equal(t, "27", v.Get("without_genres"))
	assert.Equal(t, "7.5", v.Get("vote_average.gte"))
	assert.Equal(t, "popularity.desc", v.Get("sort_by"))
	assert.Equal(t, "1", v.Get("page"))

	empty := DiscoverQuery{}.Values()
	assert.False(t, empty.Has("without_genres"))
	assert.False(t, empty.Has("vote_average.gte"))
	assert.False(t, empty.Has("with_genres"))
}

func TestMovieHelpers(t *testing.T) {
	assert.Equal(t, "2017", Movie{ReleaseDate: "2017-10-06"}.Year())
	assert.Equal(t, "", Movie{ReleaseDate: "20"}.Year())
	assert.Equal(t, "Arrival", Movie{OriginalTitle: "Arrival"}.DisplayTitle())
	assert.Equal(t, "メッセージ", Movie{Title: "メッセージ", OriginalTitle: "Arrival"}.DisplayTitle())
	assert.Equal(t, "タイトル不明", Movie{}.DisplayTitle())
}

func TestClientDiscover(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discover/movie", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":1,"title":"A","release_date":"2001-01-01","vote_average":7.1,"genre_ids":[878]}]}`))
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL+"/"), WithRetry(fastRetry))
	movies, err := c.Discover(context.Background(), DiscoverQuery{WithGenres: []int{GenreSciFi}})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "A", movies[0].Title)
	assert.Equal(t, []int{878}, movies[0].GenreIDs)
	assert.Contains(t, gotQuery, "api_key=key")
	assert.Contains(t, gotQuery, "with_genres=878")
}

func TestClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "宇宙", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"results":[{"id":2,"title":"B"}]}`))
	}))
	defer srv.Close()

	movies, err := New("key", WithBaseURL(srv.URL)).Search(context.Background(), "宇宙", "ja-JP")
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, 2, movies[0].ID)
}

func TestClientErrors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := New("").Discover(context.Background(), DiscoverQuery{})
		var cfgErr *tgerrors.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "tmdb.api_key", cfgErr.Key)
	})

	t.Run("unauthorized is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, `{"status_message":"Invalid API key"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := New("bad", WithBaseURL(srv.URL), WithRetry(fastRetry)).Discover(context.Background(), DiscoverQuery{})
		var httpErr *tgerrors.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
		assert.Equal(t, "/discover/movie", httpErr.Endpoint)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("server error is retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"results":[]}`))
		}))
		defer srv.Close()

		c := New("key", WithBaseURL(srv.URL), WithRetry(fastRetry))
		movies, err := c.Discover(context.Background(), DiscoverQuery{})
		require.NoError(t, err)
		assert.Empty(t, movies)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("bad body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		_, err := New("key", WithBaseURL(srv.URL), WithRetry(fastRetry)).Discover(context.Background(), DiscoverQuery{})
		var decErr *tgerrors.DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.Equal(t, tgerrors.CategoryUpstream, tgerrors.Categorize(err))
	})
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), retryAfter(""))
	assert.Equal(t, 3*time.Second, retryAfter("3"))
	assert.Equal(t, time.Duration(0), retryAfter("soon"))
	assert.Equal(t, time.Duration(0), retryAfter(time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)))
}

func TestStub(t *testing.T) {
	s := &Stub{Movies: SampleMovies()}

	sf, err := s.Discover(context.Background(), DiscoverQuery{WithGenres: []int{GenreSciFi}, WithoutGenres: []int{GenreHorror}})
	require.NoError(t, err)
	for _, m := range sf {
		assert.Contains(t, m.GenreIDs, GenreSciFi)
		assert.NotContains(t, m.GenreIDs, GenreHorror)
	}
	assert.Len(t, sf, 4)

	rated, err := s.Discover(context.Background(), DiscoverQuery{WithGenres: []int{GenreSciFi}, MinRating: 8})
	require.NoError(t, err)
	assert.Len(t, rated, 3)

	boom := errors.New("boom")
	_, err = (&Stub{Err: boom}).Discover(context.Background(), DiscoverQuery{})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Discover(ctx, DiscoverQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}
