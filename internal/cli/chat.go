package cli

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/analyst"
	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/chat"
	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/config"
	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/warehouse"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation (default)",
	Long: `Start an interactive conversation with the analyst.

Type a question and press enter. Follow-up suggestions are numbered;
press the number to ask one. Generated SQL runs against the warehouse
and renders inline as a table.

Keys:
  enter   send the typed question
  1-9     ask a numbered suggestion
  ctrl+r  clear the conversation history
  ctrl+c  quit`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	model := newChatModel(session, executor, catalog, defaultTheme)
	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}

// turnDoneMsg signals that a submit cycle finished and the transcript
// can be re-rendered.
type turnDoneMsg struct{}

// chatModel is the bubbletea model for the interactive conversation.
// transcript is a snapshot of the session history, refreshed only when
// a turn completes, so renders never observe a half-finished turn or
// execute its SQL before the warm-up pass has.
type chatModel struct {
	session  *chat.Session
	executor *warehouse.Executor
	catalog  *config.Catalog
	theme    Theme

	spin       spinner.Model
	transcript []analyst.Message
	input      string
	pending    string
	toast      string

	waiting bool
	width   int
	height  int
}

func newChatModel(s *chat.Session, exec *warehouse.Executor, cat *config.Catalog, theme Theme) chatModel {
	return chatModel{
		session:    s,
		executor:   exec,
		catalog:    cat,
		theme:      theme,
		spin:       spinner.New(),
		transcript: s.History(),
	}
}

// Init returns the initial command.
func (m chatModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case turnDoneMsg:
		m.waiting = false
		m.pending = ""
		m.transcript = m.session.History()
		if m.session.ErrorNotice() {
			m.toast = "🚨 An API error occurred!"
		}
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m chatModel) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "ctrl+r":
		if m.waiting {
			return m, nil
		}
		m.session.Reset()
		m.transcript = nil
		m.toast = ""
		m.input = ""
		return m, nil

	case "enter":
		if m.waiting {
			return m, nil
		}
		text := strings.TrimSpace(m.input)
		if text == "" {
			return m, nil
		}
		m.input = ""
		return m.startTurn(text)

	case "backspace":
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		return m, nil

	case "space":
		if !m.waiting {
			m.input += " "
		}
		return m, nil
	}

	if m.waiting {
		return m, nil
	}

	text := msg.Key().Text
	if text == "" {
		return m, nil
	}

	// With nothing typed yet, a single digit picks a suggestion.
	if m.input == "" && len(text) == 1 && text[0] >= '1' && text[0] <= '9' {
		suggestions := m.visibleSuggestions()
		if n := int(text[0] - '0'); n <= len(suggestions) {
			m.session.SetActiveSuggestion(suggestions[n-1])
			if picked, ok := m.session.ConsumeSuggestion(); ok {
				return m.startTurn(picked)
			}
			return m, nil
		}
	}

	m.input += text
	return m, nil
}

// startTurn submits one question in the background. Input stays locked
// until the turn's full render cycle completes.
func (m chatModel) startTurn(text string) (tea.Model, tea.Cmd) {
	m.waiting = true
	m.pending = text
	m.toast = ""

	sess := m.session
	exec := m.executor
	turn := func() tea.Msg {
		ctx := context.Background()
		sess.Submit(ctx, text)

		// Warm the query cache so rendering never blocks on the warehouse.
		history := sess.History()
		last := history[len(history)-1]
		for _, block := range last.Content {
			if block.Type == analyst.BlockSQL {
				exec.Execute(ctx, block.Statement)
			}
		}
		return turnDoneMsg{}
	}

	return m, tea.Batch(m.spin.Tick, turn)
}

// visibleSuggestions returns the list the number keys select from: the
// starter questions before the first turn, afterwards the suggestions
// of the most recent analyst message.
func (m chatModel) visibleSuggestions() []string {
	history := m.transcript
	if len(history) == 0 {
		return m.catalog.SuggestedQuestions
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != analyst.RoleAnalyst {
			continue
		}
		for _, block := range history[i].Content {
			if block.Type == analyst.BlockSuggestions {
				return block.Suggestions
			}
		}
		break
	}
	return nil
}

// View renders the conversation.
func (m chatModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m chatModel) renderContent() string {
	ctx := context.Background()
	var b strings.Builder

	b.WriteString(m.theme.analystStyle().Render("Cortex Analyst") + "  " +
		m.theme.hintStyle().Render(config.ModelName(m.session.ModelPath())) + "\n\n")

	if len(m.transcript) == 0 && !m.waiting {
		b.WriteString(m.theme.hintStyle().Render("💡 Things you can ask") + "\n")
		for i, q := range m.catalog.SuggestedQuestions {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, q))
		}
		b.WriteString("\n")
	}
	for _, msg := range m.transcript {
		b.WriteString(renderMessage(ctx, m.theme, m.executor, msg))
		b.WriteString("\n")
	}

	if m.waiting {
		b.WriteString(m.theme.roleLabel(analyst.RoleUser) + "\n" + m.pending + "\n\n")
		b.WriteString(m.spin.View() + " Waiting for the analyst's response...\n")
	}
	if m.toast != "" {
		b.WriteString(m.theme.errorStyle().Render(m.toast) + "\n")
	}

	b.WriteString("\n> " + m.input + "█\n")
	b.WriteString(m.theme.hintStyle().Render("enter: send • 1-9: suggestion • ctrl+r: clear history • ctrl+c: quit"))

	return clipToHeight(b.String(), m.height)
}

// clipToHeight keeps the tail of the transcript on screen; there is no
// scrollback in this view.
func clipToHeight(content string, height int) string {
	if height <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) <= height {
		return content
	}
	return strings.Join(lines[len(lines)-height:], "\n")
}
