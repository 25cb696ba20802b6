package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/analyst"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the analyst's answer",
	Long: `Ask a single question and print the analyst's answer.

Generated SQL is executed against the warehouse and rendered as a
table. For a multi-turn conversation use the interactive chat instead.

Examples:
  analyst ask "What was total revenue last quarter?"
  analyst ask --model DB.S.STAGE/orders.yaml "How many orders shipped late?"
  analyst ask --japanese=false "Top ten customers by revenue"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	session.Submit(ctx, args[0])

	history := session.History()
	answer := history[len(history)-1]
	if answer.Role != analyst.RoleAnalyst {
		return fmt.Errorf("conversation ended without an analyst turn")
	}

	for _, block := range answer.Content {
		fmt.Print(renderBlock(ctx, defaultTheme, executor, block))
	}
	if answer.RequestID != "" {
		fmt.Println(defaultTheme.hintStyle().Render("request-id: " + answer.RequestID))
	}
	if session.ErrorNotice() {
		fmt.Fprintln(os.Stderr, defaultTheme.errorStyle().Render("🚨 An Analyst API error occurred"))
	}
	return nil
}
