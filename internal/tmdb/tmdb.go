// Package tmdb is a small client for The Movie Database discover and
// search endpoints.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgerrors "github.com/randalmurphal/turngraph/pkg/turngraph/errors"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// Genre IDs used by the bot.
const (
	GenreAction    = 28
	GenreAnimation = 16
	GenreComedy    = 35
	GenreDrama     = 18
	GenreHorror    = 27
	GenreRomance   = 10749
	GenreSciFi     = 878
)

// Movie is one result row.
type Movie struct {
	ID            int     `json:"id" mapstructure:"id"`
	Title         string  `json:"title" mapstructure:"title"`
	OriginalTitle string  `json:"original_title,omitempty" mapstructure:"original_title"`
	Overview      string  `json:"overview" mapstructure:"overview"`
	ReleaseDate   string  `json:"release_date" mapstructure:"release_date"`
	VoteAverage   float64 `json:"vote_average" mapstructure:"vote_average"`
	Popularity    float64 `json:"popularity" mapstructure:"popularity"`
	GenreIDs      []int   `json:"genre_ids" mapstructure:"genre_ids"`
}

// Year returns the release year, or "" when unknown.
func (m Movie) Year() string {
	if len(m.ReleaseDate) >= 4 {
		return m.ReleaseDate[:4]
	}
	return ""
}

// DisplayTitle returns the localized title, falling back to the original.
func (m Movie) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	if m.OriginalTitle != "" {
		return m.OriginalTitle
	}
	return "タイトル不明"
}

// DiscoverQuery filters the discover endpoint.
type DiscoverQuery struct {
	Language      string
	WithGenres    []int
	WithoutGenres []int
	// MinRating is ignored when zero.
	MinRating float64
	Page      int
}

// Values encodes the query. Empty filters are omitted.
func (q DiscoverQuery) Values() url.Values {
	v := url.Values{}
	v.Set("sort_by", "popularity.desc")
	page := q.Page
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	if q.Language != "" {
		v.Set("language", q.Language)
	}
	if len(q.WithGenres) > 0 {
		v.Set("with_genres", joinInts(q.WithGenres))
	}
	if len(q.WithoutGenres) > 0 {
		v.Set("without_genres", joinInts(q.WithoutGenres))
	}
	if q.MinRating > 0 {
		v.Set("vote_average.gte", strconv.FormatFloat(q.MinRating, 'f', -1, 64))
	}
	return v
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// Client calls the TMDB API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   tgerrors.RetryConfig
	logger  *slog.Logger
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the retry policy. Default: errors.DefaultRetry.
func WithRetry(cfg tgerrors.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger used for retry notices.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client. An empty apiKey fails every call with a config error.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		retry:   tgerrors.DefaultRetry,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Discover lists movies matching q.
func (c *Client) Discover(ctx context.Context, q DiscoverQuery) ([]Movie, error) {
	return c.list(ctx, "/discover/movie", q.Values())
}

// Search finds movies by keyword.
func (c *Client) Search(ctx context.Context, query, language string) ([]Movie, error) {
	v := url.Values{}
	v.Set("query", query)
	v.Set("page", "1")
	v.Set("include_adult", "false")
	if language != "" {
		v.Set("language", language)
	}
	return c.list(ctx, "/search/movie", v)
}

type page struct {
	Results []Movie `json:"results"`
}

func (c *Client) list(ctx context.Context, path string, params url.Values) ([]Movie, error) {
	if c.apiKey == "" {
		return nil, &tgerrors.ConfigError{Key: "tmdb.api_key", Message: "not set"}
	}
	params.Set("api_key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	cfg := c.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.logger.Warn("tmdb request failed, retrying",
			"path", path, "attempt", attempt, "delay", delay, "error", err)
	}
	res := tgerrors.WithRetryContext(ctx, cfg, func(ctx context.Context) ([]Movie, error) {
		return c.get(ctx, path, endpoint)
	})
	return res.Value, res.Err
}

func (c *Client) get(ctx context.Context, path, endpoint string) ([]Movie, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, tgerrors.Permanent(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &tgerrors.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, &tgerrors.DecodeError{Source: "tmdb " + path, Err: err}
	}
	return p.Results, nil
}

func retryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Stub serves a fixed catalogue, filtered like the discover endpoint.
type Stub struct {
	Movies []Movie
	// Err, when set, is returned by every call.
	Err error
}

// Discover implements the same filtering as the live endpoint: every
// WithGenres id must be present, no WithoutGenres id may be, and the
// rating must reach MinRating. Results keep catalogue order.
func (s *Stub) Discover(ctx context.Context, q DiscoverQuery) ([]Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	var out []Movie
	for _, m := range s.Movies {
		if matches(m, q) {
			out = append(out, m)
		}
	}
	return out, nil
}

func matches(m Movie, q DiscoverQuery) bool {
	has := func(id int) bool {
		for _, g := range m.GenreIDs {
			if g == id {
				return true
			}
		}
		return false
	}
	for _, g := range q.WithGenres {
		if !has(g) {
			return false
		}
	}
	for _, g := range q.WithoutGenres {
		if has(g) {
			return false
		}
	}
	return q.MinRating <= 0 || m.VoteAverage >= q.MinRating
}

// SampleMovies is a small offline catalogue for demos and tests.
func SampleMovies() []Movie {
	return []Movie{
		{ID: 335984, Title: "ブレードランナー 2049", ReleaseDate: "2017-10-06", VoteAverage: 7.6, Popularity: 80,
			GenreIDs: []int{GenreSciFi, GenreDrama}, Overview: "2049年、ロサンゼルス。捜査官Kは、ある事件をきっかけに30年前に姿を消した男の存在に辿り着く。"},
		{ID: 329865, Title: "メッセージ", ReleaseDate: "2016-11-10", VoteAverage: 7.6, Popularity: 60,
			GenreIDs: []int{GenreSciFi, GenreDrama}, Overview: "突如地球に現れた巨大な物体。言語学者ルイーズは、彼らの言葉を解読するよう依頼される。"},
		{ID: 157336, Title: "インターステラー", ReleaseDate: "2014-11-05", VoteAverage: 8.4, Popularity: 120,
			GenreIDs: []int{GenreSciFi, GenreDrama}, Overview: "環境変化により人類滅亡が迫る近未来。元パイロットのクーパーは人類の新天地を求めて宇宙へ旅立つ。"},
		{ID: 348, Title: "エイリアン", ReleaseDate: "1979-05-25", VoteAverage: 8.2, Popularity: 50,
			GenreIDs: []int{GenreHorror, GenreSciFi}, Overview: "宇宙貨物船ノストロモ号の乗組員は、未知の惑星から救難信号を受信する。"},
		{ID: 603, Title: "マトリックス", ReleaseDate: "1999-03-31", VoteAverage: 8.2, Popularity: 90,
			GenreIDs: []int{GenreAction, GenreSciFi}, Overview: "プログラマーのネオは、自分が生きている世界が仮想現実だと知らされる。"},
		{ID: 694, Title: "シャイニング", ReleaseDate: "1980-05-23", VoteAverage: 8.2, Popularity: 40,
			GenreIDs: []int{GenreHorror}, Overview: "冬の間閉鎖されるホテルの管理人となった作家ジャックと家族を怪異が襲う。"},
		{ID: 13, Title: "フォレスト・ガンプ/一期一会", ReleaseDate: "1994-07-06", VoteAverage: 8.5, Popularity: 70,
			GenreIDs: []int{GenreComedy, GenreDrama, GenreRomance}, Overview: "知能指数は人より劣るが純粋な心を持つフォレストの半生。"},
		{ID: 129, Title: "千と千尋の神隠し", ReleaseDate: "2001-07-20", VoteAverage: 8.5, Popularity: 95,
			GenreIDs: []int{GenreAnimation}, Overview: "引っ越し途中に不思議な町へ迷い込んだ少女千尋の冒険。"},
	}
}

// String returns a short description for logs.
func (q DiscoverQuery) String() string {
	return fmt.Sprintf("with=%v without=%v min=%.1f lang=%s", q.WithGenres, q.WithoutGenres, q.MinRating, q.Language)
}
