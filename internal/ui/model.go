package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertwitch/randacc/internal/queue"
	"github.com/dustin/go-humanize"
)

const maxLogLines = 100

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	// infoStyle defines the style for a panel's text.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	// helpStyle defines the style for the help panel's text.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// QueueProgressMsg is a [tea.Msg] containing [queue.Progress] information.
type QueueProgressMsg struct {
	t            time.Time
	requestData  queue.Progress
	transferData queue.Progress
}

// TeaModel is the principal [tea.Model] for the command-line user interface.
type TeaModel struct {
	width  int
	height int

	cancel context.CancelFunc

	uiHandler *Handler

	fullWidthWithBorders  int
	splitWidthWithBorders int

	requestData  queue.Progress
	transferData queue.Progress

	requestProgress  progress.Model
	transferProgress progress.Model
	logsViewport     viewport.Model
	logs             []string

	ready bool
}

// NewTeaModel returns an initial new [TeaModel].
//
//nolint:mnd
func NewTeaModel(uiHandler *Handler, cancel context.CancelFunc) TeaModel {
	return TeaModel{
		uiHandler: uiHandler,
		requestProgress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(80),
		),
		transferProgress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(80),
		),
		logsViewport: viewport.New(80, 20),
		logs:         make([]string, 0, maxLogLines),
		cancel:       cancel,
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		updateQueueProgress(m.uiHandler),
	)
}

// updateQueueProgress produces a [tea.Cmd] that, when executed, returns a
// [QueueProgressMsg] with the current progress of the [Handler]'s reporters.
func updateQueueProgress(h *Handler) tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { //nolint:mnd
		msg := QueueProgressMsg{t: t}

		if h.requests != nil {
			msg.requestData = h.requests.Progress()
		}
		if h.transfer != nil {
			msg.transferData = h.transfer.Progress()
		}

		return msg
	})
}

func (m *TeaModel) renderLogs() {
	logs := lipgloss.NewStyle().
		Width(m.logsViewport.Width).
		Render(strings.Join(m.logs, "\n"))

	m.logsViewport.SetContent(logs)
	m.logsViewport.GotoBottom()
}

// Update is the principal message handling method of the model.
//
//nolint:mnd,ireturn
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()

			return m, tea.Quit
		case "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.fullWidthWithBorders = m.width - 2
		m.splitWidthWithBorders = (m.width / 2) - 2

		m.requestProgress.Width = m.splitWidthWithBorders
		m.transferProgress.Width = m.splitWidthWithBorders

		// Upper panels take about 40% of the height.
		upperHeight := m.height * 2 / 5
		lowerHeight := m.height - upperHeight

		m.logsViewport.Width = m.fullWidthWithBorders
		m.logsViewport.Height = lowerHeight - 3

		if len(m.logs) > 0 {
			m.renderLogs()
		}

		if !m.ready {
			m.ready = true
			m.uiHandler.Ready.Store(true)
		}

	case QueueProgressMsg:
		m.requestData = msg.requestData
		m.transferData = msg.transferData

		cmds = append(cmds,
			m.requestProgress.SetPercent(m.requestData.ProgressPct/100),
			m.transferProgress.SetPercent(m.transferData.ProgressPct/100),
			updateQueueProgress(m.uiHandler),
		)

	case LogMsg:
		m.logs = append(m.logs, msg...)
		if excess := len(m.logs) - maxLogLines; excess > 0 {
			m.logs = m.logs[excess:]
		}

		m.renderLogs()

	case progress.FrameMsg:
		updatedReq, cmd := m.requestProgress.Update(msg)
		if progressModel, ok := updatedReq.(progress.Model); ok {
			m.requestProgress = progressModel
		}
		cmds = append(cmds, cmd)

		updatedTr, cmd := m.transferProgress.Update(msg)
		if progressModel, ok := updatedTr.(progress.Model); ok {
			m.transferProgress = progressModel
		}
		cmds = append(cmds, cmd)
	}

	m.logsViewport, cmd = m.logsViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View is the principal rendering function of the model.
func (m TeaModel) View() string {
	if !m.ready {
		return "Loading the GUI..."
	}

	progressSection := lipgloss.JoinHorizontal(
		lipgloss.Top,
		borderStyle.Width(m.splitWidthWithBorders).Render(
			m.formatProgressView("Requests", m.requestProgress.View(), m.requestData),
		),
		borderStyle.Width(m.splitWidthWithBorders).Render(
			m.formatProgressView("Transfer", m.transferProgress.View(), m.transferData),
		),
	)

	logsSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.fullWidthWithBorders).Render("Process Information"),
				lipgloss.NewStyle().Width(m.fullWidthWithBorders).Render(m.logsViewport.View()),
			),
		)

	helpSection := helpStyle.
		Width(m.fullWidthWithBorders).
		Render("q: quit gui • ctrl+c: quit program")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		progressSection,
		logsSection,
		helpSection,
	)
}

// formatProgressView is a helper function for rendering the progress panels.
func (m TeaModel) formatProgressView(title string, progressBar string, p queue.Progress) string {
	bytesUnit := p.TransferSpeedUnit == "bytes/sec"

	count := fmt.Sprintf("%d/%d", p.ProcessedItems, p.TotalItems)
	speed := fmt.Sprintf("%.1f %s", p.TransferSpeed, p.TransferSpeedUnit)

	if bytesUnit {
		count = humanize.IBytes(uint64(max(p.ProcessedItems, 0))) + "/" + humanize.IBytes(uint64(max(p.TotalItems, 0)))
		speed = humanize.IBytes(uint64(max(p.TransferSpeed, 0))) + "/s"
	}

	var details string
	if !p.HasFinished {
		details = fmt.Sprintf(
			"Progress: %.2f%% (%s)\n"+
				"Items: InProgress=%d, Success=%d, Failed=%d\n"+
				"Time: Started=%v, ETA=%v (%s left)\n"+
				"Speed: %s\n",
			p.ProgressPct,
			count,
			p.InProgressItems,
			p.SuccessItems,
			p.FailedItems,
			p.StartTime.Format("15:04:05"),
			p.ETA.Format("15:04:05"),
			p.TimeLeft.Round(time.Second),
			speed,
		)
	} else {
		details = fmt.Sprintf(
			"Progress: %.2f%% (%s)\n"+
				"Items: InProgress=%d, Success=%d, Failed=%d\n"+
				"Time: Started=%v, Finished=%v\n\n",
			p.ProgressPct,
			count,
			p.InProgressItems,
			p.SuccessItems,
			p.FailedItems,
			p.StartTime.Format("15:04:05"),
			p.FinishTime.Format("15:04:05"),
		)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Width(m.splitWidthWithBorders).Render(title),
		"",
		progressBar,
		"",
		infoStyle.Width(m.splitWidthWithBorders).Render(details),
	)
}
