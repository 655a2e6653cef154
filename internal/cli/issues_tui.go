package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brianndofor/texrev/internal/ledger"
)

type issueMode int

const (
	issueModeList issueMode = iota
	issueModeDetail
)

type issueAction string

const (
	issueActionNone    issueAction = ""
	issueActionWontfix issueAction = "wontfix"
)

type issueResult struct {
	Issue  ledger.Issue
	Action issueAction
}

type issueModel struct {
	allIssues []ledger.Issue
	list      list.Model
	search    textinput.Model
	mode      issueMode
	query     string
	result    issueResult
	width     int
	height    int
}

type issueItem struct {
	issue ledger.Issue
}

func (i issueItem) Title() string {
	return fmt.Sprintf("[%s/%s] %s", i.issue.Severity, i.issue.Category, i.issue.Description)
}

func (i issueItem) Description() string {
	resolved := ""
	if i.issue.ResolvedInVersion >= 0 {
		resolved = fmt.Sprintf("  Resolved in: v%d", i.issue.ResolvedInVersion)
	}
	return fmt.Sprintf("Status: %s  Seen: iter %d  At: %s%s",
		i.issue.Status, i.issue.FirstSeenIteration, i.issue.Location, resolved)
}

func (i issueItem) FilterValue() string {
	return strings.ToLower(fmt.Sprintf("%s %s %s", i.issue.Category, i.issue.Location, i.issue.Description))
}

func newIssueModel(issues []ledger.Issue) issueModel {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	listModel := list.New([]list.Item{}, delegate, 0, 0)
	listModel.Title = "Issue Ledger"
	listModel.SetShowStatusBar(false)
	listModel.SetShowHelp(false)
	listModel.SetFilteringEnabled(false)

	search := textinput.New()
	search.Placeholder = "type to search"
	search.Prompt = "Search: "
	search.Focus()

	m := issueModel{
		allIssues: issues,
		list:      listModel,
		search:    search,
		mode:      issueModeList,
	}
	m.applyFilter()
	return m
}

func (m *issueModel) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.search.Value()))
	filtered := make([]list.Item, 0, len(m.allIssues))
	for _, issue := range m.allIssues {
		value := strings.ToLower(fmt.Sprintf("%s %s %s", issue.Category, issue.Location, issue.Description))
		if query == "" || strings.Contains(value, query) {
			filtered = append(filtered, issueItem{issue: issue})
		}
	}
	m.list.SetItems(filtered)
	if len(filtered) > 0 {
		m.list.Select(0)
	}
	m.query = m.search.Value()
}

func (m issueModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m issueModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := lipgloss.Height(m.headerView())
		footerHeight := lipgloss.Height(m.footerView())
		listHeight := msg.Height - headerHeight - footerHeight - 2
		if listHeight < 4 {
			listHeight = 4
		}
		m.list.SetSize(msg.Width, listHeight)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		if m.mode == issueModeDetail {
			switch msg.String() {
			case "esc", "backspace":
				m.mode = issueModeList
				return m, nil
			case "w":
				return m.chooseAction(issueActionWontfix), tea.Quit
			}
			return m, nil
		}
	}

	if m.mode == issueModeList {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != m.query {
			m.applyFilter()
		}
		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
			if len(m.list.Items()) == 0 {
				return m, nil
			}
			m.mode = issueModeDetail
		}
		return m, tea.Batch(cmd, listCmd)
	}

	return m, nil
}

func (m issueModel) chooseAction(action issueAction) issueModel {
	selected, ok := m.list.SelectedItem().(issueItem)
	if !ok {
		return m
	}
	m.result = issueResult{Issue: selected.issue, Action: action}
	return m
}

func (m issueModel) View() string {
	header := m.headerView()
	footer := m.footerView()
	content := m.list.View()
	if len(m.list.Items()) == 0 {
		content = "No issues match your search."
	}
	search := m.search.View()

	if m.mode == issueModeDetail {
		return lipgloss.JoinVertical(lipgloss.Left, header, search, content, m.detailView(), footer)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, search, content, footer)
}

func (m issueModel) headerView() string {
	return lipgloss.NewStyle().Bold(true).Render("Issue Ledger")
}

func (m issueModel) footerView() string {
	if m.mode == issueModeDetail {
		return "Press ESC to go back, w to mark wontfix, q to quit."
	}
	return "Type to search • ↑/↓ to move • Enter for detail • q to quit"
}

func (m issueModel) detailView() string {
	selected, ok := m.list.SelectedItem().(issueItem)
	if !ok {
		return ""
	}
	issue := selected.issue
	style := lipgloss.NewStyle().Bold(true)
	lines := []string{
		style.Render(issue.ID),
		fmt.Sprintf("Severity: %s  Category: %s  Status: %s", issue.Severity, issue.Category, issue.Status),
		fmt.Sprintf("Location: %s", issue.Location),
		fmt.Sprintf("First seen: iteration %d", issue.FirstSeenIteration),
		issue.Description,
		style.Render("[w] wontfix  [esc] back"),
	}
	return strings.Join(lines, "\n")
}

func runIssuesTUI(issues []ledger.Issue) (issueResult, error) {
	model := newIssueModel(issues)
	program := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := program.Run()
	if err != nil {
		return issueResult{}, err
	}
	final, ok := finalModel.(issueModel)
	if !ok {
		return issueResult{}, fmt.Errorf("unexpected TUI model")
	}
	return final.result, nil
}
