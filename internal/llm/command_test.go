package llm

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tgerrors "github.com/randalmurphal/turngraph/pkg/turngraph/errors"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name     string
		client   *Command
		req      Request
		contains []string
		excludes []string
	}{
		{
			name:     "basic request",
			client:   NewCommand(),
			req:      Prompt("", "SF映画を紹介して"),
			contains: []string{"--print", "-p", "SF映画を紹介して"},
			excludes: []string{"--system-prompt", "--model"},
		},
		{
			name:     "system prompt",
			client:   NewCommand(),
			req:      Prompt("あなたは映画評論家です。", "hi"),
			contains: []string{"--system-prompt", "あなたは映画評論家です。"},
		},
		{
			name:     "model from client",
			client:   NewCommand(WithModel("haiku")),
			req:      Prompt("", "x"),
			contains: []string{"--model", "haiku"},
		},
		{
			name:     "request model overrides client",
			client:   NewCommand(WithModel("haiku")),
			req:      Request{Model: "sonnet", Messages: []Message{{Role: RoleUser, Content: "x"}}},
			contains: []string{"sonnet"},
			excludes: []string{"haiku"},
		},
		{
			name:     "max tokens",
			client:   NewCommand(),
			req:      Request{MaxTokens: 300, Messages: []Message{{Role: RoleUser, Content: "x"}}},
			contains: []string{"--max-tokens", "300"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.client.buildArgs(tt.req)
			for _, want := range tt.contains {
				assert.Contains(t, args, want)
			}
			for _, not := range tt.excludes {
				assert.NotContains(t, args, not)
			}
		})
	}
}

func TestBuildArgs_History(t *testing.T) {
	req := Request{Messages: []Message{
		{Role: RoleUser, Content: "おすすめは？"},
		{Role: RoleAssistant, Content: "SFはどうですか"},
		{Role: RoleUser, Content: "いいね"},
	}}
	args := NewCommand().buildArgs(req)
	prompt := args[len(args)-1]
	assert.Equal(t, "おすすめは？\n\nAssistant: SFはどうですか\n\nUser: いいね", prompt)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient("Error: Rate limit reached"))
	assert.True(t, isTransient("upstream 529 overloaded"))
	assert.False(t, isTransient("invalid api key"))
}

// fakeCLI writes an executable shell script that behaves like the CLI.
func fakeCLI(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "fake-cli")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestCommand_Complete(t *testing.T) {
	path := fakeCLI(t, `echo "  ブレードランナーは名作です。  "`)
	c := NewCommand(WithPath(path), WithModel("haiku"))

	resp, err := c.Complete(context.Background(), Prompt("critic", "x"))
	require.NoError(t, err)
	assert.Equal(t, "ブレードランナーは名作です。", resp.Content)
	assert.Equal(t, "haiku", resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestCommand_Errors(t *testing.T) {
	t.Run("permanent", func(t *testing.T) {
		path := fakeCLI(t, `echo "invalid api key" >&2; exit 1`)
		_, err := NewCommand(WithPath(path)).Complete(context.Background(), Prompt("", "x"))
		require.Error(t, err)
		assert.Equal(t, tgerrors.CategoryPermanent, tgerrors.Categorize(err))
		assert.Contains(t, err.Error(), "invalid api key")
	})

	t.Run("transient is retried", func(t *testing.T) {
		counter := filepath.Join(t.TempDir(), "count")
		path := fakeCLI(t, `echo x >> `+counter+`; echo "rate limit" >&2; exit 1`)
		c := NewCommand(WithPath(path), WithRetry(tgerrors.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
		}))

		_, err := c.Complete(context.Background(), Prompt("", "x"))
		require.Error(t, err)
		assert.Equal(t, tgerrors.CategoryTransient, tgerrors.Categorize(err))

		data, readErr := os.ReadFile(counter)
		require.NoError(t, readErr)
		assert.Equal(t, "x\nx\nx\n", string(data))
	})

	t.Run("timeout", func(t *testing.T) {
		path := fakeCLI(t, `exec sleep 5`)
		_, err := NewCommand(WithPath(path), WithTimeout(50*time.Millisecond)).Complete(context.Background(), Prompt("", "x"))
		var timeout *tgerrors.TimeoutError
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, tgerrors.CategoryTransient, tgerrors.Categorize(err))
	})

	t.Run("missing binary", func(t *testing.T) {
		_, err := NewCommand(WithPath(filepath.Join(t.TempDir(), "nope"))).Complete(context.Background(), Prompt("", "x"))
		assert.Error(t, err)
	})
}

func TestStaticAndFunc(t *testing.T) {
	resp, err := Static{Content: "ok"}.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)

	_, err = Static{Err: assert.AnError}.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, assert.AnError)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Static{Content: "ok"}.Complete(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)

	var got Request
	f := ClientFunc(func(_ context.Context, req Request) (*Response, error) {
		got = req
		return &Response{Content: "f"}, nil
	})
	resp, err = f.Complete(context.Background(), Prompt("s", "u"))
	require.NoError(t, err)
	assert.Equal(t, "f", resp.Content)
	assert.Equal(t, "s", got.System)
}
