package transit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgerrors "github.com/randalmurphal/turngraph/pkg/turngraph/errors"
)

// Operator IDs understood by the bot.
const (
	OperatorTokyoMetro = "odpt.Operator:TokyoMetro"
	OperatorToei       = "odpt.Operator:Toei"
)

// DefaultEndpoint is the ODPT train information API.
const DefaultEndpoint = "https://api.odpt.org/api/v4/odpt:TrainInformation"

// Text is an ODPT multilingual string. The API sends either a plain string
// or an object keyed by language.
type Text map[string]string

// UnmarshalJSON accepts a string or a language map.
func (t *Text) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text{"ja": s}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*t = m
	return nil
}

// Ja returns the Japanese text, falling back to English.
func (t Text) Ja() string {
	if s := t["ja"]; s != "" {
		return s
	}
	return t["en"]
}

// Info is one train information record.
type Info struct {
	Date     string `json:"dc:date"`
	Operator string `json:"odpt:operator"`
	Railway  string `json:"odpt:railway,omitempty"`
	Status   Text   `json:"odpt:trainInformationStatus,omitempty"`
	Text     Text   `json:"odpt:trainInformationText"`
}

// Provider returns current train information for an operator.
type Provider interface {
	TrainInformation(ctx context.Context, operator string) ([]Info, error)
}

// Stub serves fixed records.
type Stub struct {
	Records []Info
}

// NewStub returns a stub loaded with sample data.
func NewStub() *Stub {
	return &Stub{Records: []Info{
		{
			Date:     "2025-07-07T09:05:00+09:00",
			Operator: OperatorTokyoMetro,
			Railway:  "odpt.Railway:TokyoMetro.Marunouchi",
			Status:   Text{"ja": "遅延"},
			Text:     Text{"ja": "丸ノ内線は安全確認のため全線で 10 分ほど遅延しています。"},
		},
		{
			Date:     "2025-07-07T09:02:00+09:00",
			Operator: OperatorToei,
			Railway:  "odpt.Railway:Toei.Asakusa",
			Status:   Text{"ja": "平常運転"},
			Text:     Text{"ja": "都営浅草線は平常どおり運転しています。"},
		},
	}}
}

// TrainInformation implements Provider.
func (s *Stub) TrainInformation(ctx context.Context, operator string) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Info
	for _, r := range s.Records {
		if r.Operator == operator {
			out = append(out, r)
		}
	}
	return out, nil
}

// Client queries the ODPT API.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	retry    tgerrors.RetryConfig
	logger   *slog.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithEndpoint overrides the API URL.
func WithEndpoint(u string) ClientOption {
	return func(c *Client) { c.endpoint = u }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the retry policy.
func WithRetry(cfg tgerrors.RetryConfig) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger for retry notices.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates an ODPT client authenticated with token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		token:    token,
		http:     &http.Client{Timeout: 8 * time.Second},
		retry:    tgerrors.DefaultRetry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TrainInformation implements Provider.
func (c *Client) TrainInformation(ctx context.Context, operator string) ([]Info, error) {
	if c.token == "" {
		return nil, &tgerrors.ConfigError{Key: "odpt.token", Message: "not set"}
	}
	q := url.Values{}
	q.Set("odpt:operator", operator)
	q.Set("acl:consumerKey", c.token)
	endpoint := c.endpoint + "?" + q.Encode()

	cfg := c.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.logger.Warn("odpt request failed, retrying", "attempt", attempt, "delay", delay, "error", err)
	}
	res := tgerrors.WithRetryContext(ctx, cfg, func(ctx context.Context) ([]Info, error) {
		return c.get(ctx, endpoint)
	})
	return res.Value, res.Err
}

func (c *Client) get(ctx context.Context, endpoint string) ([]Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, tgerrors.Permanent(err, "build request")
	}
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
			Endpoint:   "odpt:TrainInformation",
		}
	}

	var infos []Info
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		return nil, &tgerrors.DecodeError{Source: "odpt:TrainInformation", Err: err}
	}
	return infos, nil
}
