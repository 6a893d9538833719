package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/palemoky/puzzle-together/internal/client"
	"github.com/palemoky/puzzle-together/internal/logger"
	"github.com/palemoky/puzzle-together/internal/protocol"
)

const (
	pollInterval = 500 * time.Millisecond
	maxFeedLines = 12
)

var difficulties = []string{"easy", "medium", "hard"}

type sessionState int

const (
	stateLobby sessionState = iota
	stateGame
)

// Messages produced by async commands
type (
	sessionStartedMsg struct{ status *protocol.RoomStatusResponse }
	eventsMsg         struct{ events []*protocol.GameEvent }
	pollTickMsg       time.Time
	apiErrMsg         struct{ err error }
)

// Model is the terminal puzzle board. It drives the polling client:
// the lobby form creates or joins a room, then the board view follows
// the shared puzzle through the event feed.
type Model struct {
	api   *client.API
	board *client.Board

	state  sessionState
	width  int
	height int

	// Lobby form
	nameInput textinput.Model
	roomInput textinput.Model
	focusIdx  int // 0=name, 1=room code, 2=difficulty
	diffIdx   int
	errMsg    string

	// Board view
	feed      []string
	polling   bool
	completed bool
}

// NewModel creates the UI model bound to a server API client
func NewModel(api *client.API) *Model {
	nameInput := textinput.New()
	nameInput.Placeholder = "你的昵称"
	nameInput.CharLimit = 20
	nameInput.Width = 24
	nameInput.Focus()

	roomInput := textinput.New()
	roomInput.Placeholder = "房间号 (留空则创建新房间)"
	roomInput.CharLimit = 6
	roomInput.Width = 24

	return &Model{
		api:       api,
		board:     client.NewBoard(),
		nameInput: nameInput,
		roomInput: roomInput,
	}
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.state == stateGame {
				m.leave()
			}
			return m, tea.Quit
		}
		if m.state == stateLobby {
			return m.updateLobby(msg)
		}
		return m.updateGame(msg)

	case sessionStartedMsg:
		m.state = stateGame
		m.errMsg = ""
		m.board.LoadSnapshot(msg.status)
		m.pushFeed(fmt.Sprintf("%s 进入房间 %s", PuzzleIcon, msg.status.RoomID))
		m.polling = true
		return m, pollTick()

	case pollTickMsg:
		if !m.polling {
			return m, nil
		}
		return m, m.pollCmd()

	case eventsMsg:
		for _, ev := range msg.events {
			m.board.Apply(ev)
			if line := m.feedLine(ev); line != "" {
				m.pushFeed(line)
			}
		}
		if m.board.IsCompleted && !m.completed {
			m.completed = true
			m.polling = false
			return m, nil
		}
		return m, pollTick()

	case apiErrMsg:
		m.errMsg = msg.err.Error()
		logger.LogError("api error: %v", msg.err)
		if m.state == stateGame {
			// Keep polling through transient failures
			return m, pollTick()
		}
		return m, nil
	}

	return m, m.updateInputs(msg)
}

func (m *Model) updateLobby(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		m.setFocus((m.focusIdx + 1) % 3)
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.setFocus((m.focusIdx + 2) % 3)
		return m, nil
	case tea.KeyLeft, tea.KeyRight:
		if m.focusIdx == 2 {
			if msg.Type == tea.KeyRight {
				m.diffIdx = (m.diffIdx + 1) % len(difficulties)
			} else {
				m.diffIdx = (m.diffIdx + 2) % len(difficulties)
			}
			return m, nil
		}
	case tea.KeyEnter:
		name := strings.TrimSpace(m.nameInput.Value())
		if name == "" {
			m.errMsg = "请输入昵称"
			return m, nil
		}
		m.errMsg = ""
		return m, m.startCmd(name, strings.TrimSpace(m.roomInput.Value()))
	}
	return m, m.updateInputs(msg)
}

func (m *Model) updateGame(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.leave()
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) setFocus(idx int) {
	m.focusIdx = idx
	m.nameInput.Blur()
	m.roomInput.Blur()
	switch idx {
	case 0:
		m.nameInput.Focus()
	case 1:
		m.roomInput.Focus()
	}
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	cmds = append(cmds, cmd)
	m.roomInput, cmd = m.roomInput.Update(msg)
	cmds = append(cmds, cmd)
	return tea.Batch(cmds...)
}

// --- Commands ---

func pollTick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

// startCmd creates a room, or joins one when a room code was entered
func (m *Model) startCmd(name, roomCode string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var err error
		if roomCode == "" {
			_, err = m.api.CreateRoom(ctx, name, "default.jpg", difficulties[m.diffIdx])
		} else {
			_, err = m.api.JoinRoom(ctx, roomCode, name)
		}
		if err != nil {
			return apiErrMsg{err}
		}

		status, err := m.api.Status(ctx)
		if err != nil {
			return apiErrMsg{err}
		}
		return sessionStartedMsg{status}
	}
}

func (m *Model) pollCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		events, err := m.api.Poll(ctx)
		if err != nil {
			return apiErrMsg{err}
		}
		return eventsMsg{events}
	}
}

func (m *Model) leave() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = m.api.Leave(ctx)
}

// --- Feed ---

func (m *Model) pushFeed(line string) {
	m.feed = append(m.feed, line)
	if len(m.feed) > maxFeedLines {
		m.feed = m.feed[len(m.feed)-maxFeedLines:]
	}
}

func (m *Model) playerName(playerID string) string {
	if pl, ok := m.board.Players[playerID]; ok {
		return pl.Name
	}
	return playerID
}

func (m *Model) feedLine(ev *protocol.GameEvent) string {
	name := m.playerName(ev.PlayerID)
	switch ev.Type {
	case protocol.EventPlayerJoined:
		return fmt.Sprintf("%s %s 加入了房间", PlayerIcon, name)
	case protocol.EventPlayerLeft:
		if d, _ := ev.Data["disconnected"].(bool); d {
			return fmt.Sprintf("📴 %s 掉线了", name)
		}
		return fmt.Sprintf("%s %s 离开了房间", PlayerIcon, name)
	case protocol.EventPieceLocked:
		return fmt.Sprintf("%s %s 拿起了拼图块", LockIcon, name)
	case protocol.EventPiecePlaced:
		return placedStyle.Render(fmt.Sprintf("✅ %s 完成了一块拼图", name))
	case protocol.EventGameCompleted:
		return successStyle.Render(fmt.Sprintf("%s 拼图完成！", DoneIcon))
	default:
		// Drag and cursor chatter stays off the feed
		return ""
	}
}

// --- Views ---

func (m *Model) View() string {
	if m.state == stateLobby {
		return docStyle.Render(m.lobbyView())
	}
	return docStyle.Render(m.gameView())
}

func (m *Model) lobbyView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle(PuzzleIcon + " 拼图一起玩"))
	sb.WriteString("\n\n")
	sb.WriteString("昵称:   " + m.nameInput.View() + "\n")
	sb.WriteString("房间:   " + m.roomInput.View() + "\n")

	diffLine := "难度:   "
	for i, d := range difficulties {
		if i == m.diffIdx {
			diffLine += successStyle.Render("[" + d + "]")
		} else {
			diffLine += dimStyle.Render(" " + d + " ")
		}
	}
	cursor := "  "
	if m.focusIdx == 2 {
		cursor = "▶ "
	}
	sb.WriteString(cursor + diffLine + "\n")

	sb.WriteString(promptStyle.Render(dimStyle.Render("Tab 切换 / ←→ 选难度 / Enter 开始 / Ctrl+C 退出")))
	if m.errMsg != "" {
		sb.WriteString("\n" + errorStyle.Render("⚠️  "+m.errMsg))
	}
	return sb.String()
}

func (m *Model) gameView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle(fmt.Sprintf("%s 房间 %s", PuzzleIcon, m.board.RoomID)))
	sb.WriteString("\n\n")

	sb.WriteString(m.progressLine())
	sb.WriteString("\n")
	sb.WriteString(m.playersLine())
	sb.WriteString("\n\n")
	sb.WriteString(m.boardGrid())
	sb.WriteString("\n")

	if len(m.feed) > 0 {
		sb.WriteString(boxStyle.Render(strings.Join(m.feed, "\n")))
		sb.WriteString("\n")
	}

	if m.completed {
		sb.WriteString("\n" + successStyle.Render(DoneIcon+" 拼图完成！按 q 退出"))
	} else {
		sb.WriteString("\n" + dimStyle.Render("q 退出"))
	}
	return sb.String()
}

func (m *Model) progressLine() string {
	total := m.board.TotalPieces
	done := m.board.CompletedPieces
	const barWidth = 24
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return progressStyle.Render(fmt.Sprintf("进度 %s %d/%d (%.0f%%)", bar, done, total, m.board.CompletionPercentage))
}

func (m *Model) playersLine() string {
	ids := make([]string, 0, len(m.board.Players))
	for id := range m.board.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		pl := m.board.Players[id]
		label := PlayerIcon + " " + pl.Name
		if !pl.IsConnected {
			label = dimStyle.Render(label + " (离线)")
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "   ")
}

// boardGrid draws one cell per piece: green when placed,
// orange while someone is dragging it, gray otherwise
func (m *Model) boardGrid() string {
	rows, cols := 0, 0
	for _, p := range m.board.Pieces {
		if p.Row+1 > rows {
			rows = p.Row + 1
		}
		if p.Col+1 > cols {
			cols = p.Col + 1
		}
	}
	if rows == 0 || cols == 0 {
		return ""
	}

	grid := make(map[[2]int]*client.PieceView, len(m.board.Pieces))
	for _, p := range m.board.Pieces {
		grid[[2]int{p.Row, p.Col}] = p
	}

	var sb strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			p := grid[[2]int{r, c}]
			switch {
			case p == nil:
				sb.WriteString("  ")
			case p.IsPlaced:
				sb.WriteString(placedStyle.Render("■ "))
			case p.IsLocked:
				sb.WriteString(lockedStyle.Render("▣ "))
			default:
				sb.WriteString(dimStyle.Render("□ "))
			}
		}
		sb.WriteString("\n")
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.TrimRight(sb.String(), "\n"))
}
