package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"

	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/analyst"
	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/warehouse"
)

// Theme holds the color scheme for transcript rendering.
type Theme struct {
	User    lipgloss.Color
	Analyst lipgloss.Color
	SQL     lipgloss.Color
	Hint    lipgloss.Color
	Error   lipgloss.Color
	Border  lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	User:    lipgloss.Color("#5FAFD7"), // light blue
	Analyst: lipgloss.Color("#00D787"), // green
	SQL:     lipgloss.Color("#D7AF5F"), // amber
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
	Error:   lipgloss.Color("#FF005F"), // red
	Border:  lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t Theme) analystStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Analyst).Bold(true)
}

func (t Theme) sqlStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.SQL)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

// roleLabel renders a turn header for the transcript.
func (t Theme) roleLabel(role string) string {
	if role == analyst.RoleUser {
		return t.userStyle().Render("You")
	}
	return t.analystStyle().Render("Analyst")
}

// renderBlock renders one content block. SQL blocks are executed
// through the cached executor and shown with their result table or an
// inline error panel.
func renderBlock(ctx context.Context, theme Theme, exec *warehouse.Executor, block analyst.ContentBlock) string {
	switch block.Type {
	case analyst.BlockText:
		return block.Text + "\n"

	case analyst.BlockSuggestions:
		var b strings.Builder
		b.WriteString(theme.hintStyle().Render("💡 Related questions") + "\n")
		for i, s := range block.Suggestions {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, s))
		}
		return b.String()

	case analyst.BlockSQL:
		var b strings.Builder
		b.WriteString(theme.sqlStyle().Render(block.Statement) + "\n")
		res := exec.Execute(ctx, block.Statement)
		switch {
		case res.Failed():
			b.WriteString(theme.errorStyle().Render("Could not run the generated SQL: "+res.Err) + "\n")
		case res.Table.Empty():
			b.WriteString(theme.hintStyle().Render("Query returned no data") + "\n")
		default:
			b.WriteString(renderTable(theme, res.Table) + "\n")
		}
		return b.String()
	}
	return ""
}

// renderTable renders a query result with column headers and borders.
func renderTable(theme Theme, t *warehouse.Table) string {
	tbl := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.Border)).
		Headers(t.Columns...).
		Rows(t.Rows...)
	return tbl.String()
}

// renderMessage renders a full message with its role header.
func renderMessage(ctx context.Context, theme Theme, exec *warehouse.Executor, msg analyst.Message) string {
	var b strings.Builder
	b.WriteString(theme.roleLabel(msg.Role) + "\n")
	for _, block := range msg.Content {
		b.WriteString(renderBlock(ctx, theme, exec, block))
	}
	return b.String()
}
