package search

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/virex/go/internal/account"
	"github.com/virex/go/internal/config"
	"github.com/virex/go/internal/otp"
)

const (
	// MaxDisplayResults is the maximum number of accounts shown at once
	MaxDisplayResults = 8

	// InvalidCodeText replaces the code of an account that cannot generate one
	InvalidCodeText = "Error: Invalid Secret/URI"
)

// PickerOptions connects the picker to an unlocked session
type PickerOptions struct {
	// Accounts returns the accounts to show, in display order
	Accounts func() []account.Account

	// Copy places a code on the clipboard
	Copy func(code string) error

	// Touch records user activity
	Touch func()

	// Expired reports whether the session has idled out
	Expired func() bool

	HideCodes bool
	Theme     string
	Now       func() time.Time
}

// PickerResult reports how the picker ended
type PickerResult struct {
	Copied bool
	Locked bool
}

// InteractiveSearch provides a live list of accounts with their current codes
type InteractiveSearch struct {
	engine   *Engine
	entries  []Entry
	results  []MatchResult
	total    int
	query    []rune
	selected int
	hidden   bool
	styles   InteractiveStyles
}

// InteractiveStyles defines the visual styling for the picker
type InteractiveStyles struct {
	QueryPrompt    lipgloss.Style
	QueryInput     lipgloss.Style
	ResultSelected lipgloss.Style
	ResultLabel    lipgloss.Style
	ResultMeta     lipgloss.Style
	Code           lipgloss.Style
	CodeExpiring   lipgloss.Style
	Highlight      lipgloss.Style
	MoreIndicator  lipgloss.Style
	NoResults      lipgloss.Style
	Status         lipgloss.Style
	Error          lipgloss.Style
}

// NewInteractiveSearch creates the picker state for accounts
func NewInteractiveSearch(accounts []account.Account, hidden bool, styles InteractiveStyles) *InteractiveSearch {
	engine := NewEngine()
	engine.SetMaxResults(0)

	is := &InteractiveSearch{
		engine:  engine,
		entries: Entries(accounts),
		hidden:  hidden,
		styles:  styles,
	}
	is.updateResults()
	return is
}

// StylesFor returns the palette for a theme. The system theme follows the
// terminal background.
func StylesFor(theme string) InteractiveStyles {
	switch theme {
	case config.ThemeLight:
		return lightStyles()
	case config.ThemeDark:
		return darkStyles()
	}
	if lipgloss.HasDarkBackground() {
		return darkStyles()
	}
	return lightStyles()
}

func darkStyles() InteractiveStyles {
	return InteractiveStyles{
		QueryPrompt: lipgloss.NewStyle().
			Foreground(lipgloss.Color("32")). // Green
			Bold(true),
		QueryInput: lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")). // White
			Background(lipgloss.Color("238")), // Dark gray
		ResultSelected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).  // Black
			Background(lipgloss.Color("14")), // Cyan
		ResultLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")). // Yellow
			Bold(true),
		ResultMeta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Code: lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Bold(true),
		CodeExpiring: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")). // Salmon
			Bold(true),
		Highlight: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")). // Bright yellow
			Bold(true),
		MoreIndicator: lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")),
		NoResults: lipgloss.NewStyle().
			Foreground(lipgloss.Color("red")).
			Italic(true),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
	}
}

func lightStyles() InteractiveStyles {
	return InteractiveStyles{
		QueryPrompt: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")).
			Bold(true),
		QueryInput: lipgloss.NewStyle().
			Foreground(lipgloss.Color("232")).
			Background(lipgloss.Color("253")), // Light gray
		ResultSelected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("25")), // Blue
		ResultLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("130")). // Brown
			Bold(true),
		ResultMeta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		Code: lipgloss.NewStyle().
			Foreground(lipgloss.Color("232")).
			Bold(true),
		CodeExpiring: lipgloss.NewStyle().
			Foreground(lipgloss.Color("160")).
			Bold(true),
		Highlight: lipgloss.NewStyle().
			Foreground(lipgloss.Color("166")). // Orange
			Bold(true),
		MoreIndicator: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		NoResults: lipgloss.NewStyle().
			Foreground(lipgloss.Color("124")).
			Italic(true),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("160")),
	}
}

// tickMsg drives the code refresh and the idle check
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model represents the state for the Bubble Tea model
type Model struct {
	search    *InteractiveSearch
	opts      PickerOptions
	now       time.Time
	status    string
	statusErr bool
	copied    bool
	locked    bool
	quitting  bool
}

// NewModel creates a new Bubble Tea model for the picker
func NewModel(opts PickerOptions) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var accounts []account.Account
	if opts.Accounts != nil {
		accounts = opts.Accounts()
	}

	return Model{
		search: NewInteractiveSearch(accounts, opts.HideCodes, StylesFor(opts.Theme)),
		opts:   opts,
		now:    opts.Now(),
	}
}

// Init starts the refresh ticker
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.opts.Expired != nil && m.opts.Expired() {
			m.locked = true
			m.quitting = true
			return m, tea.Quit
		}
		m.now = m.opts.Now()
		return m, tick()

	case tea.KeyMsg:
		if m.opts.Touch != nil {
			m.opts.Touch()
		}

		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			m.copySelected()

		case "tab":
			m.search.hidden = !m.search.hidden

		case "up", "ctrl+p":
			m.search.MoveSelection(-1)

		case "down", "ctrl+n":
			m.search.MoveSelection(1)

		case "backspace":
			m.search.RemoveChar()

		default:
			if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
				for _, r := range msg.Runes {
					m.search.AddChar(r)
				}
			}
		}
	}

	return m, nil
}

// copySelected copies the selected account's current code
func (m *Model) copySelected() {
	result := m.search.GetSelectedResult()
	if result == nil {
		return
	}

	code, err := otp.Generate(result.Entry.Account, m.opts.Now())
	if err != nil {
		m.status, m.statusErr = InvalidCodeText, true
		return
	}
	if m.opts.Copy == nil {
		return
	}
	if err := m.opts.Copy(code.Value); err != nil {
		m.status, m.statusErr = fmt.Sprintf("Copy failed: %v", err), true
		return
	}

	m.copied = true
	m.status, m.statusErr = fmt.Sprintf("Copied code for %s", result.Entry.Label), false
}

// View renders the current state of the model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.search.Render(m.now))

	if m.status != "" {
		b.WriteString("\n")
		if m.statusErr {
			b.WriteString(m.search.styles.Error.Render(m.status))
		} else {
			b.WriteString(m.search.styles.Status.Render(m.status))
		}
	}
	return b.String()
}

// Result reports how the picker ended
func (m Model) Result() PickerResult {
	return PickerResult{Copied: m.copied, Locked: m.locked}
}

// AddChar adds a character to the search query and updates results
func (is *InteractiveSearch) AddChar(ch rune) {
	is.query = append(is.query, ch)
	is.updateResults()
	is.selected = 0 // Reset selection when query changes
}

// RemoveChar removes the last character from the search query
func (is *InteractiveSearch) RemoveChar() {
	if len(is.query) > 0 {
		is.query = is.query[:len(is.query)-1]
		is.updateResults()
		is.selected = 0 // Reset selection when query changes
	}
}

// Query returns the current search text
func (is *InteractiveSearch) Query() string {
	return string(is.query)
}

// MoveSelection moves the selection cursor up or down
func (is *InteractiveSearch) MoveSelection(direction int) {
	if len(is.results) == 0 {
		return
	}

	is.selected += direction

	if is.selected < 0 {
		is.selected = len(is.results) - 1
	} else if is.selected >= len(is.results) {
		is.selected = 0
	}
}

// GetSelectedResult returns the currently selected result
func (is *InteractiveSearch) GetSelectedResult() *MatchResult {
	if len(is.results) == 0 || is.selected < 0 || is.selected >= len(is.results) {
		return nil
	}
	return &is.results[is.selected]
}

// updateResults refreshes the search results based on the current query
func (is *InteractiveSearch) updateResults() {
	allResults := is.engine.Search(string(is.query), is.entries)
	is.total = len(allResults)

	displayCount := MaxDisplayResults
	if len(allResults) < displayCount {
		displayCount = len(allResults)
	}
	is.results = allResults[:displayCount]

	// Ensure selection is within bounds
	if is.selected >= len(is.results) {
		is.selected = len(is.results) - 1
	}
	if is.selected < 0 && len(is.results) > 0 {
		is.selected = 0
	}
}

// Render renders the picker with codes valid at now
func (is *InteractiveSearch) Render(now time.Time) string {
	var b strings.Builder

	b.WriteString(is.styles.QueryPrompt.Render("Search: "))
	b.WriteString(is.styles.QueryInput.Render(string(is.query)))
	b.WriteString("█")
	b.WriteString("\n\n")

	if len(is.results) == 0 {
		if len(is.entries) == 0 {
			b.WriteString(is.styles.ResultMeta.Render("No accounts yet"))
		} else {
			b.WriteString(is.styles.NoResults.Render("No matches found"))
		}
		b.WriteString("\n")
	} else {
		for i, result := range is.results {
			b.WriteString(is.renderResult(result, i == is.selected, now))
			b.WriteString("\n")
		}

		if is.total > len(is.results) {
			more := fmt.Sprintf("... and %d more accounts", is.total-len(is.results))
			b.WriteString(is.styles.MoreIndicator.Render(more))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(is.styles.ResultMeta.Render("↑/↓ navigate, Enter copy, Tab show/hide codes, Esc quit"))

	return b.String()
}

// renderResult renders one account row: label, user label, code, countdown
func (is *InteractiveSearch) renderResult(result MatchResult, selected bool, now time.Time) string {
	label := result.Entry.Label
	if len(result.Highlights) > 0 && !selected {
		label = is.applyHighlights(label, result.Highlights)
	}

	var meta string
	if result.Entry.User != "" {
		meta = " " + is.styles.ResultMeta.Render(result.Entry.User)
	}

	var code string
	generated, err := otp.Generate(result.Entry.Account, now)
	switch {
	case err != nil:
		code = is.styles.Error.Render(InvalidCodeText)
	case is.hidden:
		code = is.styles.Code.Render(generated.Masked())
	default:
		style := is.styles.Code
		if generated.Remaining <= 5*time.Second {
			style = is.styles.CodeExpiring
		}
		seconds := int((generated.Remaining + time.Second - 1) / time.Second)
		code = style.Render(generated.Grouped()) + " " +
			is.styles.ResultMeta.Render(fmt.Sprintf("%2ds", seconds))
	}

	if selected {
		return is.styles.ResultSelected.Render(fmt.Sprintf(" %s ", label)) + meta + "  " + code
	}
	return "  " + is.styles.ResultLabel.Render(label) + meta + "  " + code
}

// applyHighlights applies highlighting to matched portions of text
func (is *InteractiveSearch) applyHighlights(text string, highlights []HighlightRange) string {
	runes := []rune(text)
	var result strings.Builder

	pos := 0
	for _, highlight := range highlights {
		if highlight.Start < pos || highlight.End > len(runes) {
			continue
		}
		result.WriteString(string(runes[pos:highlight.Start]))
		result.WriteString(is.styles.Highlight.Render(string(runes[highlight.Start:highlight.End])))
		pos = highlight.End
	}

	if pos < len(runes) {
		result.WriteString(string(runes[pos:]))
	}

	return result.String()
}

// RunPicker runs the interactive picker until the user quits or the session
// idles out
func RunPicker(opts PickerOptions) (PickerResult, error) {
	program := tea.NewProgram(NewModel(opts), tea.WithAltScreen())
	finalModel, err := program.Run()
	if err != nil {
		return PickerResult{}, fmt.Errorf("error running picker: %w", err)
	}

	return finalModel.(Model).Result(), nil
}
