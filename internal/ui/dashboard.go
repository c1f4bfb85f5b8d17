package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/leshan-fleet/internal/events"
)

// eventMsg carries one bus event into the model
type eventMsg events.Event

// streamClosedMsg is sent once the subscription channel is closed
type streamClosedMsg struct{}

// deviceRow is the latest known state of one endpoint
type deviceRow struct {
	endpoint string
	phase    string
	state    string
	status   string
	ds       int
	ur       int
	message  string
}

// Dashboard is a live view of a fleet run fed by the event bus
type Dashboard struct {
	title  string
	stream <-chan events.Event

	// OnInterrupt is called when the user presses ctrl+c. The dashboard
	// keeps running until the stream closes so the aborted devices show up.
	OnInterrupt func()

	rows        map[string]*deviceRow
	order       []string
	runID       string
	interrupted bool
	closed      bool

	spinner spinner.Model
	bar     progress.Model
	width   int
	height  int
}

// NewDashboard creates a dashboard reading from stream
func NewDashboard(title string, stream <-chan events.Event) *Dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	width, height := GetTerminalSize()
	return &Dashboard{
		title:   title,
		stream:  stream,
		rows:    make(map[string]*deviceRow),
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		width:   width,
		height:  height,
	}
}

// Init implements tea.Model
func (m *Dashboard) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

// next waits for the next event on the stream
func (m *Dashboard) next() tea.Cmd {
	stream := m.stream
	return func() tea.Msg {
		e, ok := <-stream
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(e)
	}
}

// Update implements tea.Model
func (m *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.record(events.Event(msg))
		return m, m.next()

	case streamClosedMsg:
		m.closed = true
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.interrupted {
			m.interrupted = true
			if m.OnInterrupt != nil {
				m.OnInterrupt()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Dashboard) record(e events.Event) {
	if e.RunID != "" {
		m.runID = e.RunID
	}
	if e.Endpoint == "" {
		return
	}

	row, ok := m.rows[e.Endpoint]
	if !ok {
		row = &deviceRow{endpoint: e.Endpoint, ds: events.Unknown, ur: events.Unknown}
		m.rows[e.Endpoint] = row
		m.order = append(m.order, e.Endpoint)
	}

	row.phase = e.Phase
	row.state = e.State
	row.message = e.Message
	if e.Terminal() {
		row.status = e.Status
	} else {
		row.status = ""
	}
	if e.DownloadStatus != events.Unknown {
		row.ds = e.DownloadStatus
	}
	if e.UpdateResult != events.Unknown {
		row.ur = e.UpdateResult
	}
}

// Counts returns the number of devices seen and how many have finished
func (m *Dashboard) Counts() (total, finished int) {
	for _, row := range m.rows {
		if row.state == events.StateFinished {
			finished++
		}
	}
	return len(m.rows), finished
}

// View implements tea.Model
func (m *Dashboard) View() string {
	var b strings.Builder

	total, finished := m.Counts()
	percent := 0.0
	if total > 0 {
		percent = float64(finished) / float64(total)
	}

	head := m.spinner.View() + " " + HeaderTitleStyle.UnsetPaddingLeft().Render(strings.ToUpper(m.title))
	if m.closed {
		head = SuccessMarker + " " + HeaderTitleStyle.UnsetPaddingLeft().Render(strings.ToUpper(m.title))
	}
	if m.runID != "" {
		head += "  " + DetailStyle.Render(m.runID)
	}
	b.WriteString(head + "\n\n")
	b.WriteString(fmt.Sprintf("  %s  %d/%d finished\n", m.bar.ViewAs(percent), finished, total))
	if m.interrupted {
		b.WriteString("  " + WarningTitleStyle.Render("Interrupted, waiting for workers to stop...") + "\n")
	}
	b.WriteString("\n")

	limit := len(m.order)
	if m.height > 10 && limit > m.height-8 {
		limit = m.height - 8
	}
	for _, ep := range m.order[:limit] {
		b.WriteString(m.renderRow(m.rows[ep]))
		b.WriteString("\n")
	}
	if hidden := len(m.order) - limit; hidden > 0 {
		b.WriteString(DetailStyle.Render(fmt.Sprintf("  ... and %d more", hidden)) + "\n")
	}

	return b.String()
}

func (m *Dashboard) renderRow(row *deviceRow) string {
	marker := RunningMarker
	style := lipgloss.NewStyle().Foreground(WarningColor)
	state := row.state
	if row.state == events.StateFinished {
		switch row.status {
		case "SUCCESS":
			marker, style = SuccessMarker, SuccessTitleStyle
		case "ABORTED":
			marker, style = AbortMarker, WarningTitleStyle
		default:
			marker, style = FailureMarker, ErrorTitleStyle
		}
		state = row.status
	} else if row.state == events.StateQueued {
		marker, style = PendingMarker, DetailStyle
	}

	codes := ""
	if row.ds != events.Unknown {
		codes += fmt.Sprintf(" ds=%d", row.ds)
	}
	if row.ur != events.Unknown {
		codes += fmt.Sprintf(" ur=%d", row.ur)
	}

	line := fmt.Sprintf("  %s %s %s %s%s",
		style.Render(marker),
		EndpointStyle.Render(fmt.Sprintf("%-24s", row.endpoint)),
		DetailStyle.Render(fmt.Sprintf("%-8s", row.phase)),
		style.Render(state),
		DetailStyle.Render(codes),
	)
	if row.message != "" {
		line += "  " + DetailStyle.Render(row.message)
	}
	return line
}
