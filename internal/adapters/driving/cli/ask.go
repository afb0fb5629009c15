package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/logger"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Ask one question about recent documents",
	Long: `Answer a single question. The assistant may run one search against the
store before answering; the answer is built from that result only.

Examples:
  fedreg ask "What rules did the EPA publish this week?"
  fedreg ask --json "Any notices about tariffs since March 1?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// askOutput is the JSON form of one answered question.
type askOutput struct {
	Answer           string   `json:"answer"`
	ToolInvocations  int      `json:"tool_invocations"`
	IgnoredToolCalls int      `json:"ignored_tool_calls,omitempty"`
	States           []string `json:"states"`
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	agent, err := requireAgent(cmd.Context())
	if err != nil {
		return err
	}

	result, err := agent.HandleTurn(cmd.Context(), nil, question)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	logger.Debug("turn finished: %d tool invocation(s), path %v", result.ToolInvocations, result.States)

	if askJSON {
		states := make([]string, len(result.States))
		for i, s := range result.States {
			states[i] = s.String()
		}
		return printJSON(cmd.OutOrStdout(), askOutput{
			Answer:           result.Answer,
			ToolInvocations:  result.ToolInvocations,
			IgnoredToolCalls: result.IgnoredToolCalls,
			States:           states,
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
	return nil
}
