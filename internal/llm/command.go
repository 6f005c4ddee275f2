package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	tgerrors "github.com/randalmurphal/turngraph/pkg/turngraph/errors"
)

// Command implements Client by running a command-line model client
// (claude by default) in print mode.
type Command struct {
	path    string
	model   string
	workdir string
	timeout time.Duration
	retry   tgerrors.RetryConfig
}

// CommandOption configures Command.
type CommandOption func(*Command)

// NewCommand creates a command-backed client.
// Assumes "claude" is available in PATH unless overridden with WithPath.
func NewCommand(opts ...CommandOption) *Command {
	c := &Command{
		path:    "claude",
		timeout: 30 * time.Second,
		retry:   tgerrors.NoRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithPath sets the path to the binary.
func WithPath(path string) CommandOption {
	return func(c *Command) { c.path = path }
}

// WithModel sets the default model.
func WithModel(model string) CommandOption {
	return func(c *Command) { c.model = model }
}

// WithWorkdir sets the working directory for the command.
func WithWorkdir(dir string) CommandOption {
	return func(c *Command) { c.workdir = dir }
}

// WithTimeout bounds each attempt. Zero disables the bound.
func WithTimeout(d time.Duration) CommandOption {
	return func(c *Command) { c.timeout = d }
}

// WithRetry retries transient failures (rate limits, overload).
func WithRetry(cfg tgerrors.RetryConfig) CommandOption {
	return func(c *Command) { c.retry = cfg }
}

// Complete implements Client.
func (c *Command) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	res := tgerrors.WithRetryContext(ctx, c.retry, func(ctx context.Context) (string, error) {
		return c.run(ctx, req)
	})
	if res.Err != nil {
		return nil, res.Err
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	return &Response{
		Content:      res.Value,
		Model:        model,
		FinishReason: "stop",
		Duration:     time.Since(start),
	}, nil
}

func (c *Command) run(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.path, c.buildArgs(req)...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && c.timeout > 0 {
				return "", &tgerrors.TimeoutError{Operation: "llm complete", Duration: c.timeout}
			}
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		cause := fmt.Errorf("%w: %s", err, msg)
		if isTransient(msg) {
			return "", tgerrors.Transient(cause, "llm complete")
		}
		return "", tgerrors.Permanent(cause, "llm complete")
	}
	return strings.TrimSpace(stdout.String()), nil
}

// buildArgs constructs CLI arguments from a request.
func (c *Command) buildArgs(req Request) []string {
	args := []string{"--print"}

	if req.System != "" {
		args = append(args, "--system-prompt", req.System)
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	if model != "" {
		args = append(args, "--model", model)
	}
	if req.MaxTokens > 0 {
		args = append(args, "--max-tokens", strconv.Itoa(req.MaxTokens))
	}

	// The CLI takes a single prompt; earlier turns are inlined as context.
	var prompt strings.Builder
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleUser:
			prompt.WriteString(msg.Content)
			prompt.WriteString("\n")
		case RoleAssistant:
			if prompt.Len() > 0 {
				prompt.WriteString("\nAssistant: ")
				prompt.WriteString(msg.Content)
				prompt.WriteString("\n\nUser: ")
			}
		}
	}
	if p := strings.TrimSpace(prompt.String()); p != "" {
		args = append(args, "-p", p)
	}
	return args
}

func isTransient(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range []string{"rate limit", "timeout", "overloaded", "503", "529"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
