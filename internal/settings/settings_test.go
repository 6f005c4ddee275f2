package settings

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/turngraph/pkg/turngraph/config"
)

func TestDefault(t *testing.T) {
	s, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
	assert.Equal(t, "ja-JP", s.Bot.Language)
	assert.True(t, s.TMDB.Stub)
}

func TestLoadLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turnbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
server:
  addr: ":9000"
  turn_timeout: 5s
session:
  driver: sqlite
  path: /tmp/sessions.db
tmdb:
  stub: false
bot:
  max_results: 3
  messages:
    not_found: 見つかりませんでした
`), 0o600))

	s, err := Load(path, []string{
		"TMDB_API_KEY=secret",
		"USE_STUB=true",
		"TURNBOT_SERVER__ADDR=:7000",
		"TURNBOT_BOT__CRITIC=true",
		"TURNBOT_SESSION__TTL=1h",
		"UNRELATED=1",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "text", s.Log.Format, "defaults survive")
	assert.Equal(t, ":7000", s.Server.Addr, "TURNBOT_ wins over the file")
	assert.Equal(t, 5*time.Second, s.Server.TurnTimeout)
	assert.Equal(t, "sqlite", s.Session.Driver)
	assert.Equal(t, time.Hour, s.Session.TTL)
	assert.Equal(t, "secret", s.TMDB.APIKey)
	assert.True(t, s.TMDB.Stub, "USE_STUB wins over the file")
	assert.True(t, s.ODPT.Stub)
	assert.Equal(t, 3, s.Bot.MaxResults)
	assert.Equal(t, 60, s.Bot.OverviewRunes)
	assert.True(t, s.Bot.Critic)
	assert.Equal(t, "見つかりませんでした", s.Bot.Messages["not_found"])
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = FromConfig(config.New(map[string]any{"log": map[string]any{"level": "loud"}}))
	assert.ErrorContains(t, err, "log.level")

	_, err = FromConfig(config.New(map[string]any{"log": map[string]any{"format": "xml"}}))
	assert.ErrorContains(t, err, "log.format")

	_, err = FromConfig(config.New(map[string]any{"session": map[string]any{"driver": "etcd"}}))
	assert.ErrorContains(t, err, "session.driver")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	Log{Level: "warn", Format: "json"}.NewLogger(&buf).Info("hidden")
	assert.Empty(t, buf.String())

	Log{Level: "warn", Format: "json"}.NewLogger(&buf).Warn("shown", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)

	buf.Reset()
	Log{Level: "debug", Format: "text"}.NewLogger(&buf).Debug("dbg")
	assert.Contains(t, buf.String(), "msg=dbg")
}
