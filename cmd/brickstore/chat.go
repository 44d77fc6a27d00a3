// This file implements the interactive assistant chat using bubbletea.
package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"brickstore/cmd/brickstore/ui"
	"brickstore/internal/config"
	"brickstore/internal/genie"
)

// chatModel is the main model for the interactive assistant chat
type chatModel struct {
	// UI components
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	styles    ui.Styles
	renderer  *glamour.TermRenderer

	// State
	conversation *genie.Conversation
	pagers       map[int]*genie.Pager // message index -> result pager
	isLoading    bool
	err          error
	width        int
	height       int
	ready        bool
	config       config.Config
}

// Messages for tea updates
type (
	turnDoneMsg struct{}
	turnErrMsg  struct{ err error }
)

// initChat initializes the interactive chat model
func initChat(conv *genie.Conversation) chatModel {
	styles := ui.NewStyles(ui.ThemeByName(cfg.Theme))

	ti := textinput.New()
	ti.Placeholder = "Ask about your sales data... (Enter to send, Ctrl+C to exit)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 4096
	ti.Width = 80
	ti.PromptStyle = styles.Prompt
	ti.TextStyle = styles.UserInput

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)
	vp.SetContent("")

	var renderer *glamour.TermRenderer
	if styles.Theme.IsDark {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
	} else {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath("light"),
			glamour.WithWordWrap(80),
		)
	}

	return chatModel{
		textinput:    ti,
		viewport:     vp,
		spinner:      sp,
		styles:       styles,
		renderer:     renderer,
		conversation: conv,
		pagers:       make(map[int]*genie.Pager),
		config:       cfg,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.conversation.Dispose()
			return m, tea.Quit

		case tea.KeyEnter:
			if !m.isLoading {
				return m.handleSubmit()
			}

		case tea.KeyLeft:
			if pager := m.lastTablePager(); pager != nil {
				pager.Prev()
				m.viewport.SetContent(m.renderHistory())
				return m, nil
			}

		case tea.KeyRight:
			if pager := m.lastTablePager(); pager != nil {
				pager.Next()
				m.viewport.SetContent(m.renderHistory())
				return m, nil
			}

		case tea.KeyCtrlP:
			if pager := m.lastTablePager(); pager != nil {
				pager.CycleSize()
				m.viewport.SetContent(m.renderHistory())
				return m, nil
			}
		}

		if !m.isLoading {
			m.textinput, tiCmd = m.textinput.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		footerHeight := 3
		inputHeight := 3

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-headerHeight-footerHeight-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - headerHeight - footerHeight - inputHeight
		}

		m.textinput.Width = msg.Width - 4

		if m.renderer != nil {
			m.renderer, _ = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(msg.Width-8),
			)
		}

		m.viewport.SetContent(m.renderHistory())

	case spinner.TickMsg:
		if m.isLoading {
			// The pending question is already in the transcript; keep
			// the viewport current while the backend call runs.
			m.viewport.SetContent(m.renderHistory())
			m.viewport.GotoBottom()
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case turnDoneMsg:
		m.isLoading = false
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()

	case turnErrMsg:
		m.isLoading = false
		m.err = msg.err
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
	}

	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m chatModel) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textinput.Value())
	if input == "" {
		return m, nil
	}

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	m.textinput.Reset()
	m.err = nil
	m.isLoading = true

	return m, tea.Batch(
		m.spinner.Tick,
		m.submitTurn(input),
	)
}

// submitTurn runs one assistant turn in the background. The conversation
// appends the question immediately and the reply when it arrives; failed
// turns surface as an error with the question kept in the transcript.
func (m chatModel) submitTurn(question string) tea.Cmd {
	return func() tea.Msg {
		if err := m.conversation.Submit(context.Background(), question); err != nil {
			return turnErrMsg{err: err}
		}
		return turnDoneMsg{}
	}
}

func (m chatModel) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)

	switch parts[0] {
	case "/quit", "/exit", "/q":
		m.conversation.Dispose()
		return m, tea.Quit

	case "/clear":
		m.conversation.Dispose()
		m.conversation = genie.NewConversation(apiClient, store)
		m.conversation.Greet()
		m.pagers = make(map[int]*genie.Pager)
		m.err = nil
		m.textinput.Reset()
		m.viewport.SetContent(m.renderHistory())
		return m, nil

	case "/pagesize":
		m.textinput.Reset()
		if len(parts) < 2 {
			m.err = fmt.Errorf("usage: /pagesize <10|20|50>")
			return m, nil
		}
		size, err := strconv.Atoi(parts[1])
		if err != nil {
			m.err = fmt.Errorf("usage: /pagesize <10|20|50>")
			return m, nil
		}
		if pager := m.lastTablePager(); pager != nil {
			pager.SetPageSize(size)
		}
		m.config.PageSize = size
		m.err = nil
		m.viewport.SetContent(m.renderHistory())
		return m, nil

	case "/help":
		help := `## Commands

| Command | Description |
|---------|-------------|
| /help | Show this help message |
| /clear | Start a fresh conversation |
| /pagesize <10,20,50> | Rows per page for results |
| /quit, /exit, /q | Exit |

## Keys

| Key | Description |
|-----|-------------|
| Enter | Send a question |
| Left / Right | Previous / next result page |
| Ctrl+P | Cycle rows per page |
| Ctrl+C, Esc | Exit |
`
		m.textinput.Reset()
		m.viewport.SetContent(m.renderHistory() + "\n" + m.safeRenderMarkdown(help))
		m.viewport.GotoBottom()
		return m, nil

	default:
		m.err = fmt.Errorf("unknown command %q, try /help", parts[0])
		m.textinput.Reset()
		return m, nil
	}
}

// pagerFor returns the result pager for the message at index i, creating it
// with the configured page size on first use.
func (m chatModel) pagerFor(i, rowCount int) *genie.Pager {
	if p, ok := m.pagers[i]; ok {
		return p
	}
	p := genie.NewPagerWithSize(rowCount, m.config.PageSize)
	m.pagers[i] = p
	return p
}

// lastTablePager returns the pager of the most recent tabular reply, or nil
// when no reply has a result set.
func (m chatModel) lastTablePager() *genie.Pager {
	msgs := m.conversation.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].HasTable() {
			return m.pagerFor(i, len(msgs[i].Table))
		}
	}
	return nil
}

func (m chatModel) renderHistory() string {
	var sb strings.Builder

	for i, msg := range m.conversation.Messages() {
		if msg.Role == genie.RoleUser {
			userStyle := m.styles.Bold.
				Foreground(m.styles.Theme.Primary).
				MarginTop(1)
			sb.WriteString(userStyle.Render("You") + "\n")
			sb.WriteString(m.styles.UserInput.Render(msg.Content))
			sb.WriteString("\n\n")
			continue
		}

		assistantStyle := m.styles.Bold.
			Foreground(m.styles.Theme.Accent).
			MarginTop(1)
		sb.WriteString(assistantStyle.Render("✨ Genie") + "\n")

		if msg.HasTable() {
			if msg.Content != "" {
				sb.WriteString(m.safeRenderMarkdown(msg.Content))
			}
			pager := m.pagerFor(i, len(msg.Table))
			sb.WriteString(ui.RenderResultPage(m.styles, msg, pager))
			sb.WriteString("\n")
			continue
		}

		sb.WriteString(m.safeRenderMarkdown(msg.Content))
		sb.WriteString("\n")
	}

	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery
func (m chatModel) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}

func (m chatModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()

	chatView := m.styles.Content.Render(m.viewport.View())

	if m.isLoading {
		chatView += "\n" + m.styles.Spinner.Render(m.spinner.View()) + " Thinking..."
	}

	if m.err != nil {
		chatView += "\n" + m.styles.Error.Render("Error: "+m.err.Error())
	}

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.Theme.Accent).
		Padding(0, 1)

	inputArea := inputStyle.Render(m.textinput.View())

	footer := m.renderFooter()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		chatView,
		inputArea,
		footer,
	)
}

func (m chatModel) renderHeader() string {
	title := m.styles.Header.Render(" ✨ Brickstore Genie ")

	account := ""
	if cred := store.Credential(); cred != nil {
		account = m.styles.Muted.Render(fmt.Sprintf(" %s · %s", cred.Email, cred.Company))
	}

	var status string
	if m.isLoading {
		status = m.styles.Warning.Render("● Thinking")
	} else {
		status = m.styles.Success.Render("● Ready")
	}

	headerLine := lipgloss.JoinHorizontal(
		lipgloss.Center,
		title,
		"  ",
		status,
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		headerLine,
		account,
		m.styles.RenderDivider(m.width),
	)
}

func (m chatModel) renderFooter() string {
	help := m.styles.Muted.Render("Enter: send • ←/→: result pages • Ctrl+P: page size • /help: commands • Ctrl+C: exit")
	return lipgloss.NewStyle().
		MarginTop(1).
		Render(help)
}

// runInteractiveChat starts the assistant chat interface
func runInteractiveChat() error {
	conv := genie.NewConversation(apiClient, store)
	conv.Greet()

	p := tea.NewProgram(
		initChat(conv),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := p.Run()
	return err
}
