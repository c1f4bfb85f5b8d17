package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/leshan-fleet/internal/events"
)

func ev(ep, phase, state string, ds, ur int) eventMsg {
	return eventMsg(events.Event{
		RunID:          "run-1",
		Endpoint:       ep,
		Phase:          phase,
		State:          state,
		DownloadStatus: ds,
		UpdateResult:   ur,
	})
}

func finished(ep, status string) eventMsg {
	e := ev(ep, "apply", events.StateFinished, 2, 1)
	e.Status = status
	return e
}

func TestDashboard_Update(t *testing.T) {
	stream := make(chan events.Event)
	m := NewDashboard("update", stream)
	m.height = 40

	m.Update(ev("dev-1", "download", events.StateQueued, events.Unknown, events.Unknown))
	m.Update(ev("dev-2", "download", events.StateQueued, events.Unknown, events.Unknown))
	m.Update(ev("dev-1", "download", events.StateDownloading, 1, 0))

	total, done := m.Counts()
	if total != 2 || done != 0 {
		t.Fatalf("Counts() = %d, %d; want 2, 0", total, done)
	}

	_, cmd := m.Update(finished("dev-1", "SUCCESS"))
	if cmd == nil {
		t.Fatal("Update(event) should wait for the next event")
	}
	m.Update(finished("dev-2", "FAILED"))

	total, done = m.Counts()
	if total != 2 || done != 2 {
		t.Fatalf("Counts() = %d, %d; want 2, 2", total, done)
	}

	view := m.View()
	for _, want := range []string{"UPDATE", "run-1", "dev-1", "dev-2", "SUCCESS", "FAILED", "2/2 finished", "ds=2 ur=1"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q in:\n%s", want, view)
		}
	}
}

func TestDashboard_UnknownCodesKeepLastValue(t *testing.T) {
	m := NewDashboard("update", nil)
	m.Update(ev("dev-1", "download", events.StateDownloading, 1, 0))
	m.Update(ev("dev-1", "download", events.StateUnavailable, events.Unknown, events.Unknown))

	row := m.rows["dev-1"]
	if row.ds != 1 || row.ur != 0 {
		t.Errorf("row codes = ds %d ur %d; want 1, 0", row.ds, row.ur)
	}
	if row.state != events.StateUnavailable {
		t.Errorf("row.state = %q, want %q", row.state, events.StateUnavailable)
	}
}

func TestDashboard_RunEventsHaveNoRow(t *testing.T) {
	m := NewDashboard("update", nil)
	m.Update(eventMsg(events.Event{RunID: "run-9", State: events.StateAborting}))

	if total, _ := m.Counts(); total != 0 {
		t.Errorf("Counts() total = %d, want 0", total)
	}
	if m.runID != "run-9" {
		t.Errorf("runID = %q, want run-9", m.runID)
	}
}

func TestDashboard_Interrupt(t *testing.T) {
	calls := 0
	m := NewDashboard("update", nil)
	m.OnInterrupt = func() { calls++ }

	ctrlC := tea.KeyMsg{Type: tea.KeyCtrlC}
	_, cmd := m.Update(ctrlC)
	if cmd != nil {
		t.Error("ctrl+c should not quit before the stream closes")
	}
	m.Update(ctrlC)

	if calls != 1 {
		t.Errorf("OnInterrupt called %d times, want 1", calls)
	}
	if !strings.Contains(m.View(), "Interrupted") {
		t.Errorf("View() missing interrupt notice:\n%s", m.View())
	}
}

func TestDashboard_QuitsWhenStreamCloses(t *testing.T) {
	stream := make(chan events.Event, 1)
	stream <- events.Event{Endpoint: "dev-1", State: events.StateQueued}
	close(stream)

	m := NewDashboard("toggle", stream)

	msg := m.next()()
	if _, ok := msg.(eventMsg); !ok {
		t.Fatalf("first message = %T, want eventMsg", msg)
	}
	msg = m.next()()
	if _, ok := msg.(streamClosedMsg); !ok {
		t.Fatalf("second message = %T, want streamClosedMsg", msg)
	}

	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatal("Update(streamClosedMsg) returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Update(streamClosedMsg) should quit")
	}
}

func TestDashboard_HidesRowsBeyondHeight(t *testing.T) {
	m := NewDashboard("update", nil)
	m.height = 12
	for _, ep := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		m.Update(ev(ep, "download", events.StateQueued, events.Unknown, events.Unknown))
	}

	if view := m.View(); !strings.Contains(view, "... and 3 more") {
		t.Errorf("View() missing overflow line:\n%s", view)
	}
}
