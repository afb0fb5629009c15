package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/fedreg/internal/adapters/driving/tui"
	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driving"
)

var chatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant",
	Long: `Start a conversation about recent Federal Register documents.

On a terminal this opens a full-screen chat; otherwise, or with --plain,
questions are read line by line from stdin. The conversation is kept for
the session only. Type "exit" or press Ctrl+D to leave the line mode.

Controls:
  Enter     - Ask
  Ctrl+L    - New conversation
  PgUp/PgDn - Scroll
  F1        - Toggle help
  Esc       - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "use the line mode even on a terminal")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	agent, err := requireAgent(cmd.Context())
	if err != nil {
		return err
	}

	if !chatPlain && isTerminal(os.Stdin) && isTerminal(os.Stdout) {
		app, err := tui.NewApp(&tui.Ports{Agent: agent, ModelName: llmModelName})
		if err != nil {
			return err
		}
		return app.WithContext(cmd.Context()).Run()
	}

	return runREPL(cmd.Context(), agent, cmd.InOrStdin(), cmd.OutOrStdout())
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// runREPL reads one question per line until EOF or "exit". A failed turn
// is reported and the conversation continues from before the question.
func runREPL(ctx context.Context, agent driving.Agent, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var history []domain.Turn
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(question) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		result, err := agent.HandleTurn(ctx, history, question)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "Error: %v\n\n", err)
			continue
		}
		history = result.History
		fmt.Fprintf(out, "%s\n\n", result.Answer)
	}
}
