package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/tavern-engine/pkg/conversation"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
)

const PlaceHolderText = "Pick an option by number, or type to the room..."

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	session      *conversation.Session
	group        *conversation.GroupSession
	transcript   []conversation.Message
	options      []*dialogue.Node
	summary      *conversation.Summary
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool
	done         bool

	// Character selection state
	showCharacterModal bool
	characters         []string
	picked             map[int]bool
	selectedCharacter  int
	loadingCharacters  bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type charactersLoadedMsg struct {
	characters []string
	err        error
}

type sessionStartedMsg struct {
	session *conversation.Session
	group   *conversation.GroupSession
	options []*dialogue.Node
	err     error
}

type turnMsg struct {
	turn *conversation.TurnResult
	err  error
}

type groupTurnMsg struct {
	turn *conversation.GroupTurn
	err  error
}

type nextSpeakerMsg struct {
	speakerID string
	err       error
}

type sessionRefreshMsg struct {
	session *conversation.Session
	err     error
}

type summaryMsg struct {
	summary *conversation.Summary
	err     error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("172")). // amber
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")) // pale gold

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("172")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("172")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:             cfg,
		client:             client,
		textarea:           ta,
		chatViewport:       chatVp,
		metaViewport:       metaVp,
		picked:             make(map[int]bool),
		showCharacterModal: true,
		loadingCharacters:  true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadCharacters()
}

// isGroup reports whether the active session is a group scene.
func (m *ConsoleUI) isGroup() bool {
	return m.group != nil
}

// writeChatContent rebuilds the chat viewport from the transcript for
// the current width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6

	var content strings.Builder
	content.WriteString(titleStyle.Render("THE TAVERN") + "\n\n")
	content.WriteString("Pull up a chair. Pick a line by number, or just talk.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(chatWidth-6, 10))) + "\n\n")

	for _, msg := range m.transcript {
		content.WriteString(formatMessage(msg, chatWidth) + "\n\n")
	}

	if m.summary != nil {
		content.WriteString(m.renderSummary(chatWidth))
	} else if m.loading {
		content.WriteString(m.renderProgressBar())
	} else if len(m.options) > 0 {
		content.WriteString(m.renderOptions(chatWidth))
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func formatMessage(msg conversation.Message, width int) string {
	switch msg.Kind {
	case conversation.KindPlayer:
		return userStyle.Render("You: ") + wordwrap.String(msg.Text, max(width-6, 10))
	case conversation.KindSystem:
		return systemStyle.Render(wordwrap.String(msg.Text, max(width-2, 10)))
	default:
		prefix := speakerStyle.Render(msg.Speaker + ": ")
		return prefix + wordwrap.String(msg.Text, max(width-len(msg.Speaker)-2, 10))
	}
}

func (m *ConsoleUI) renderOptions(width int) string {
	var b strings.Builder
	b.WriteString(separatorStyle.Render(strings.Repeat("─", max(width-6, 10))) + "\n")
	for i, opt := range m.options {
		line := fmt.Sprintf("%d) %s", i+1, opt.Text)
		b.WriteString(optionStyle.Render(wordwrap.String(line, max(width-4, 10))) + "\n")
	}
	return b.String()
}

func (m *ConsoleUI) renderSummary(width int) string {
	s := m.summary
	var b strings.Builder
	b.WriteString(separatorStyle.Render(strings.Repeat("─", max(width-6, 10))) + "\n\n")
	b.WriteString(titleStyle.Render("The conversation "+s.Tone+".") + "\n\n")
	b.WriteString(fmt.Sprintf("Messages: %d\n", s.MessageCount))
	for id, change := range s.RelationshipChanges {
		b.WriteString(fmt.Sprintf("• %s: %+d\n", id, change))
	}
	for _, info := range s.Information {
		b.WriteString("• Learned: " + info + "\n")
	}
	for _, q := range s.Quests {
		b.WriteString("• Quest: " + q + "\n")
	}
	b.WriteString("\n" + promptStyle.Render("Press Ctrl+C to leave the tavern."))
	return b.String()
}

func (m *ConsoleUI) writeMetadata() {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")

	sess := m.session
	if m.isGroup() {
		sess = &m.group.Session
	}
	if sess == nil {
		m.metaViewport.SetContent(content.String())
		return
	}

	content.WriteString("Session:\n")
	content.WriteString(sess.ID.String()[:8] + "...\n\n")

	content.WriteString("Speaking with:\n")
	for _, id := range sess.Participants {
		content.WriteString("• " + id + "\n")
	}
	content.WriteString("\n")

	if sess.Mood != "" {
		content.WriteString("Mood:\n" + sess.Mood + "\n\n")
	}

	if m.isGroup() && m.group.CurrentSpeaker != "" {
		content.WriteString("Floor:\n" + m.group.CurrentSpeaker + "\n\n")
	}

	if len(sess.RelationshipChanges) > 0 {
		content.WriteString("Standing:\n")
		for id, change := range sess.RelationshipChanges {
			content.WriteString(fmt.Sprintf("• %s: %+d\n", id, change))
		}
		content.WriteString("\n")
	}

	if len(sess.Information) > 0 {
		content.WriteString("Learned:\n")
		for _, info := range sess.Information {
			content.WriteString("• " + info + "\n")
		}
		content.WriteString("\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /end: End talk\n")
	if m.isGroup() {
		content.WriteString("• /next: Next speaker\n")
	}

	m.metaViewport.SetContent(content.String())
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showCharacterModal {
		return m.updateCharacterModal(msg)
	}
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.writeChatContent()
		m.writeMetadata()
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading || m.done {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			return m.handleInput(input)
		}

	case turnMsg:
		m.loading = false
		if msg.err != nil {
			m.appendError(msg.err)
			return m, nil
		}
		t := msg.turn
		m.transcript = append(m.transcript, t.PlayerMessage, t.Response)
		m.transcript = append(m.transcript, t.EventMessages...)
		m.options = t.Options
		if t.Ended {
			m.done = true
			m.options = nil
			m.summary = t.Summary
		}
		m.writeChatContent()
		if m.done {
			m.writeMetadata()
			return m, nil
		}
		return m, m.refreshSession()

	case groupTurnMsg:
		m.loading = false
		if msg.err != nil {
			m.appendError(msg.err)
			return m, nil
		}
		t := msg.turn
		m.transcript = append(m.transcript, t.Message)
		for _, reaction := range t.Reactions {
			m.transcript = append(m.transcript, conversation.Message{
				Speaker: reaction.CharacterID,
				Text:    reaction.Verbal + " " + promptStyle.Render("("+reaction.Physical+")"),
				Kind:    conversation.KindCharacter,
			})
		}
		m.group.GroupMood = t.Mood
		m.group.Mood = string(t.Mood)
		m.writeChatContent()
		m.writeMetadata()

	case nextSpeakerMsg:
		m.loading = false
		if msg.err != nil {
			m.appendError(msg.err)
			return m, nil
		}
		m.group.CurrentSpeaker = msg.speakerID
		m.transcript = append(m.transcript, conversation.Message{
			Text: fmt.Sprintf("All eyes turn to %s.", msg.speakerID),
			Kind: conversation.KindSystem,
		})
		m.writeChatContent()
		m.writeMetadata()

	case sessionRefreshMsg:
		if msg.err == nil && msg.session != nil {
			m.session = msg.session
			m.writeMetadata()
		}

	case summaryMsg:
		m.loading = false
		if msg.err != nil {
			m.appendError(msg.err)
			return m, nil
		}
		m.done = true
		m.options = nil
		m.summary = msg.summary
		m.writeChatContent()

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m *ConsoleUI) appendError(err error) {
	m.err = err
	m.writeChatContent()
	currentContent := m.chatViewport.View()
	errorLine := errorStyle.Render("Error: "+err.Error()) + "\n\n"
	m.chatViewport.SetContent(currentContent + errorLine)
	m.chatViewport.GotoBottom()
}

// handleInput routes a line of input: a number picks a dialogue
// option, anything else is spoken into a group scene.
func (m ConsoleUI) handleInput(input string) (tea.Model, tea.Cmd) {
	if !m.isGroup() {
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > len(m.options) {
			m.appendError(fmt.Errorf("pick an option between 1 and %d", len(m.options)))
			m.textarea.Reset()
			return m, nil
		}
		node := m.options[n-1]
		m.textarea.Reset()
		m.loading = true
		m.progressTick = 0
		m.writeChatContent()
		return m, tea.Batch(m.sendOption(node.ID), progressTick())
	}

	m.textarea.Reset()
	m.loading = true
	m.progressTick = 0
	m.writeChatContent()
	return m, tea.Batch(m.sendGroupMessage(input), progressTick())
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))
	m.textarea.Reset()

	switch cmd {
	case "/help":
		helpText := `
Commands:
• /help - Show this help
• /end - End the conversation
• /next - Pass the floor (group scenes)
• Ctrl+C - Quit

How to play:
• In a one-on-one talk, type the number of the line you want to say
• In a group scene, type freely and press Enter
`
		currentContent := m.chatViewport.View()
		m.chatViewport.SetContent(currentContent + titleStyle.Render("Help:") + helpText + "\n")
		m.chatViewport.GotoBottom()

	case "/end":
		m.loading = true
		m.progressTick = 0
		return m, tea.Batch(m.sendEnd(), progressTick())

	case "/next":
		if m.isGroup() {
			m.loading = true
			return m, m.sendNextSpeaker()
		}
	}

	return m, nil
}

func (m ConsoleUI) sendOption(nodeID string) tea.Cmd {
	return func() tea.Msg {
		turn, err := selectOption(m.client, m.config.APIBaseURL, m.session.ID, nodeID)
		return turnMsg{turn, err}
	}
}

func (m ConsoleUI) sendGroupMessage(text string) tea.Cmd {
	return func() tea.Msg {
		turn, err := postGroupMessage(m.client, m.config.APIBaseURL, m.group.ID, m.config.Player.ID, text)
		return groupTurnMsg{turn, err}
	}
}

func (m ConsoleUI) sendNextSpeaker() tea.Cmd {
	return func() tea.Msg {
		speaker, err := nextSpeaker(m.client, m.config.APIBaseURL, m.group.ID)
		return nextSpeakerMsg{speaker, err}
	}
}

func (m ConsoleUI) sendEnd() tea.Cmd {
	id := m.session.ID
	if m.isGroup() {
		id = m.group.ID
	}
	return func() tea.Msg {
		summary, err := endSession(m.client, m.config.APIBaseURL, id)
		return summaryMsg{summary, err}
	}
}

func (m ConsoleUI) refreshSession() tea.Cmd {
	return func() tea.Msg {
		sess, err := getSession(m.client, m.config.APIBaseURL, m.session.ID)
		return sessionRefreshMsg{sess, err}
	}
}

func (m ConsoleUI) loadCharacters() tea.Cmd {
	return func() tea.Msg {
		characters, err := listCharacters(m.client, m.config.APIBaseURL)
		return charactersLoadedMsg{characters, err}
	}
}

func (m ConsoleUI) startPickedSession() tea.Cmd {
	var ids []string
	for i, c := range m.characters {
		if m.picked[i] {
			ids = append(ids, c)
		}
	}
	if len(ids) == 0 {
		ids = []string{m.characters[m.selectedCharacter]}
	}
	return func() tea.Msg {
		resp, err := startSession(m.client, m.config.APIBaseURL, m.config.Player, ids, "")
		if err != nil {
			return sessionStartedMsg{err: err}
		}
		return sessionStartedMsg{session: resp.Session, group: resp.Group, options: resp.Options}
	}
}

func (m ConsoleUI) updateCharacterModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case charactersLoadedMsg:
		m.loadingCharacters = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.characters = msg.characters
		}

	case sessionStartedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session
		m.group = msg.group
		m.options = msg.options
		m.showCharacterModal = false

		sess := m.session
		if m.isGroup() {
			sess = &m.group.Session
		}
		m.transcript = append([]conversation.Message(nil), sess.Messages...)

		if m.width > 0 && m.height > 0 {
			m.resize()
		}
		m.writeChatContent()
		m.writeMetadata()
		m.textarea.Focus()
		m.ready = true
		return m, textarea.Blink

	case tea.KeyMsg:
		if m.loadingCharacters {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}
		if m.err != nil {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedCharacter > 0 {
				m.selectedCharacter--
			}
		case tea.KeyDown:
			if m.selectedCharacter < len(m.characters)-1 {
				m.selectedCharacter++
			}
		case tea.KeySpace:
			m.picked[m.selectedCharacter] = !m.picked[m.selectedCharacter]
		case tea.KeyEnter:
			if len(m.characters) > 0 {
				m.loading = true
				return m, m.startPickedSession()
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if !m.showCharacterModal {
					m.textarea.Focus()
					return m, textarea.Blink
				}
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the Tavern?"))
	content.WriteString("\n\n")
	content.WriteString("Walk out mid-conversation?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to stay, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderCharacterModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	if m.loadingCharacters {
		content.WriteString(modalTitleStyle.Render("Looking Around..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Seeing who's in the tavern tonight..."))
	} else if m.err != nil {
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to load characters: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	} else if m.loading {
		content.WriteString(modalTitleStyle.Render("Walking Over..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Catching their attention..."))
	} else {
		content.WriteString(modalTitleStyle.Render("Who do you approach?"))
		content.WriteString("\n\n")

		for i, c := range m.characters {
			mark := "  "
			if m.picked[i] {
				mark = "✓ "
			}
			if i == m.selectedCharacter {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s%s", mark, c)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s%s", mark, c)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("↑/↓ to move, Space to invite more than one, Enter to start"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showCharacterModal {
		return m.renderCharacterModal()
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 10))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
