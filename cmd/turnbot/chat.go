package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/randalmurphal/turngraph/pkg/turngraph"
)

const (
	banner   = "映画レコメンドボットへようこそ！ (quit/exit で終了)"
	farewell = "Bye!"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the movie bot in the terminal",
	Long: `Starts an interactive session with the movie bot. Lines starting with / are
commands: /reset forgets the profile, /trace toggles the step trace.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		id, _ := cmd.Flags().GetString("session")
		if id == "" {
			id = uuid.NewString()
		}
		showTrace, _ := cmd.Flags().GetBool("trace")

		a, err := newApp(cmd.Context(), s, os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		c := &chat{
			app:       a,
			id:        id,
			in:        cmd.InOrStdin(),
			out:       cmd.OutOrStdout(),
			showTrace: showTrace,
		}
		if f, ok := c.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			c.render = newRenderer()
			c.color = termenv.NewOutput(f)
		}
		return c.loop(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("session", "", "Session ID to resume (default: a new one)")
	chatCmd.Flags().Bool("trace", false, "Print the step trace after each reply")
}

// chat is the terminal REPL.
type chat struct {
	app       *app
	id        string
	in        io.Reader
	out       io.Writer
	showTrace bool
	// render and color are nil when output is not a terminal.
	render func(string) (string, error)
	color  *termenv.Output
}

func (c *chat) loop(ctx context.Context) error {
	c.println(c.styled(banner, "#818cf8"))
	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			c.println(farewell)
			return nil
		case "/reset":
			if err := c.app.movie.Reset(ctx, c.id); err != nil {
				return err
			}
			c.println("プロフィールをリセットしました。")
			continue
		case "/trace":
			c.showTrace = !c.showTrace
			continue
		}

		reply, err := c.app.movie.Turn(ctx, c.id, line)
		if err != nil {
			c.println(c.styled("エラー: "+err.Error(), "#fb7185"))
			continue
		}
		c.println(c.markdown(reply.Text))
		if c.showTrace {
			c.printTrace(reply.Trace)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	c.println(farewell)
	return nil
}

func (c *chat) printTrace(t turngraph.Trace) {
	for _, e := range t {
		line := fmt.Sprintf("  %s [%s] %s", e.Step, e.Kind, e.Summary)
		if e.Label != "" {
			line += " label=" + e.Label
		}
		if e.Recovered {
			line += " recovered: " + e.Err.Error()
		}
		c.println(c.styled(line, "#a78bfa"))
	}
}

func (c *chat) markdown(s string) string {
	if c.render == nil {
		return s
	}
	out, err := c.render(s)
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}

func (c *chat) styled(s, hex string) string {
	if c.color == nil {
		return s
	}
	return c.color.String(s).Foreground(c.color.Color(hex)).String()
}

func (c *chat) println(s string) {
	fmt.Fprintln(c.out, s)
}

// newRenderer returns a glamour markdown renderer, or nil if it cannot be built.
func newRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return nil
	}
	return r.Render
}
