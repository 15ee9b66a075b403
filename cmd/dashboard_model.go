// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kestrel Grid Systems

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kestrel-grid/pcsctl/pkg/canbus"
	"github.com/kestrel-grid/pcsctl/pkg/pcs"
	"github.com/kestrel-grid/pcsctl/pkg/ystech"
)

// Focus states
const (
	focusModeList = iota
	focusParamsInput
)

// eventLogEntry is one line in the dashboard event log
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// modeItem wraps a working mode for the bubbles list
type modeItem struct {
	mode ystech.WorkingMode
}

func (i modeItem) Title() string { return i.mode.String() }

func (i modeItem) Description() string {
	params := i.mode.Params()
	if len(params) == 0 {
		return "no setpoints"
	}
	names := make([]string, len(params))
	for j, p := range params {
		names[j] = fmt.Sprintf("%s [%s]", p.Name, p.Unit)
	}
	return strings.Join(names, ", ")
}

func (i modeItem) FilterValue() string { return i.mode.String() }

// dashboardModel is the Bubble Tea model for the dashboard TUI
type dashboardModel struct {
	ctl      *pcs.Controller
	tr       canbus.Transport
	connInfo string

	// Telemetry
	state      ystech.DeviceState
	frameCount uint64
	lastFault  uint16

	// Event log
	eventLog      []eventLogEntry
	maxLogEntries int

	// Control
	modeList    list.Model
	paramsInput textinput.Model
	focused     int
	busy        bool

	// UI state
	width    int
	height   int
	quitting bool
}

// Messages
type dashTickMsg time.Time

type telemetryMsg struct {
	name   string
	record any
}

type cmdResultMsg struct {
	label string
	err   error
}

func initialDashboardModel(ctl *pcs.Controller, tr canbus.Transport, connInfo string) dashboardModel {
	ti := textinput.New()
	ti.Placeholder = "setpoints, e.g. 400.0 50.0"
	ti.CharLimit = 48
	ti.Width = 28

	items := []list.Item{}
	for _, mode := range ystech.AllModes() {
		items = append(items, modeItem{mode: mode})
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	modeList := list.New(items, delegate, 44, 12)
	modeList.Title = "Working modes"
	modeList.SetShowStatusBar(false)
	modeList.SetShowHelp(false)
	modeList.SetFilteringEnabled(false)

	return dashboardModel{
		ctl:           ctl,
		tr:            tr,
		connInfo:      connInfo,
		state:         ctl.State(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		modeList:      modeList,
		paramsInput:   ti,
		focused:       focusModeList,
		width:         80,
		height:        24,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(dashTickCmd(), tea.EnterAltScreen)
}

func dashTickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - 14
		if listHeight < 6 {
			listHeight = 6
		}
		m.modeList.SetSize(44, listHeight)

	case dashTickMsg:
		m.state = m.ctl.State()
		return m, dashTickCmd()

	case telemetryMsg:
		m.frameCount++
		if status, ok := msg.record.(ystech.Status); ok {
			if status.FaultCode != m.lastFault {
				if status.FaultCode != 0 {
					m.addLogEntry(fmt.Sprintf("FAULT 0x%04X: %s",
						status.FaultCode, ystech.FaultDescription(status.FaultCode)), true)
				} else {
					m.addLogEntry("Fault cleared", false)
				}
				m.lastFault = status.FaultCode
			}
		}

	case cmdResultMsg:
		m.busy = false
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.label, msg.err), true)
		} else {
			m.addLogEntry(msg.label+" ok", false)
		}
	}

	// Update child components
	var cmd tea.Cmd
	if m.focused == focusParamsInput {
		m.paramsInput, cmd = m.paramsInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.focused == focusModeList {
		m.modeList, cmd = m.modeList.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m dashboardModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab", "shift+tab":
		if m.focused == focusModeList {
			m.focused = focusParamsInput
			m.paramsInput.Focus()
		} else {
			m.focused = focusModeList
			m.paramsInput.Blur()
		}
		return m, nil

	case "enter":
		return m.applySelectedMode()
	}

	// Single-key commands only act while the text input is not focused,
	// otherwise typing "400.5" would disable the device.
	if m.focused != focusParamsInput {
		switch msg.String() {
		case "q":
			m.quitting = true
			return m, tea.Quit
		case "e":
			return m.runCommand("enable", func() error { return m.ctl.Enable(true) })
		case "d":
			return m.runCommand("disable", func() error { return m.ctl.Disable() })
		case "r":
			return m.runCommand("reset faults", func() error { return m.ctl.ResetFaults() })
		}
	}

	var cmd tea.Cmd
	if m.focused == focusParamsInput {
		m.paramsInput, cmd = m.paramsInput.Update(msg)
	} else {
		m.modeList, cmd = m.modeList.Update(msg)
	}
	return m, cmd
}

// runCommand fires a controller command off the UI goroutine and reports
// its outcome back as a cmdResultMsg.
func (m dashboardModel) runCommand(label string, fn func() error) (tea.Model, tea.Cmd) {
	if m.busy {
		m.addLogEntry("busy: previous command still running", true)
		return m, nil
	}
	m.busy = true
	m.addLogEntry(label+"...", false)
	return m, func() tea.Msg {
		return cmdResultMsg{label: label, err: fn()}
	}
}

func (m dashboardModel) applySelectedMode() (tea.Model, tea.Cmd) {
	item, ok := m.modeList.SelectedItem().(modeItem)
	if !ok {
		return m, nil
	}
	mode := item.mode

	fields := strings.FieldsFunc(m.paramsInput.Value(), func(r rune) bool {
		return r == ' ' || r == ','
	})
	params, err := parseFloats(fields)
	if err != nil {
		m.addLogEntry(err.Error(), true)
		return m, nil
	}
	if want := len(mode.Params()); len(params) > want {
		m.addLogEntry(fmt.Sprintf("mode %s takes at most %d setpoints", mode, want), true)
		return m, nil
	}

	label := fmt.Sprintf("set mode %s", mode)
	return m.runCommand(label, func() error {
		if err := m.ctl.SetWorkingMode(mode); err != nil {
			return err
		}
		if len(params) > 0 {
			return m.ctl.SetModeParameters(mode, params...)
		}
		return nil
	})
}

func (m *dashboardModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m dashboardModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("PCSCTL - DASHBOARD"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf(
		"%s | Device 0x%02X | e enable  d disable  r reset  tab focus  enter apply  q quit",
		m.connInfo, deviceAddr)))
	s.WriteString("\n\n")

	// Telemetry pane
	telemetry := strings.Builder{}
	status := m.state.Status
	stateRender := valueStyle.Render(status.RunningState.String())
	if status.IsFault() {
		stateRender = errorStyle.Render(status.RunningState.String())
	}
	telemetry.WriteString(fmt.Sprintf("%s %s   %s ", labelStyle.Render("State:"), stateRender,
		labelStyle.Render("Fault:")))
	if status.FaultCode != 0 {
		telemetry.WriteString(errorStyle.Render(fmt.Sprintf("0x%04X %s",
			status.FaultCode, status.FaultDescription())))
	} else {
		telemetry.WriteString(valueStyle.Render("none"))
	}
	telemetry.WriteString("\n")
	telemetry.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("DC:   "),
		valueStyle.Render(ystech.FormatRecord(m.state.DC))))
	telemetry.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Grid: "),
		valueStyle.Render(ystech.FormatRecord(m.state.GridVoltage))))
	telemetry.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Power:"),
		valueStyle.Render(ystech.FormatRecord(m.state.SystemPower))))

	since := m.ctl.SecondsSinceLastRx()
	link := valueStyle.Render(fmt.Sprintf("%.1fs ago", since))
	if since > 5 {
		link = errorStyle.Render("STALE")
	}
	stats := transportStats(m.tr)
	telemetry.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Last frame:"), link,
		labelStyle.Render("Bus:"),
		headerStyle.Render(fmt.Sprintf("tx=%d rx=%d err=%d dropped=%d (%d decoded)",
			stats.TxFrames, stats.RxFrames, stats.TxErrors+stats.RxErrors,
			stats.RxDropped, m.frameCount))))
	s.WriteString(boxStyle.Width(m.width - 4).Render(telemetry.String()))
	s.WriteString("\n")

	// Control pane: mode list on the left, setpoint entry on the right
	inputPane := strings.Builder{}
	inputPane.WriteString(labelStyle.Render("Setpoints"))
	inputPane.WriteString("\n")
	inputPane.WriteString(m.paramsInput.View())
	inputPane.WriteString("\n\n")
	if m.busy {
		inputPane.WriteString(warningStyle.Render("command in flight..."))
	} else if m.focused == focusParamsInput {
		inputPane.WriteString(headerStyle.Render("enter applies mode + setpoints"))
	} else {
		inputPane.WriteString(headerStyle.Render("tab to edit setpoints"))
	}

	control := lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(m.modeList.View()),
		boxStyle.Render(inputPane.String()),
	)
	s.WriteString(control)
	s.WriteString("\n")

	// Event log
	s.WriteString(labelStyle.Render("Events:"))
	s.WriteString("\n")

	logHeight := m.height - 24
	if logHeight < 4 {
		logHeight = 4
	}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	logContent := strings.Builder{}
	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message)))
			}
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

// transportStats reads the counters if the transport exposes them.
func transportStats(tr canbus.Transport) canbus.Snapshot {
	if st, ok := tr.(interface{ Stats() canbus.Snapshot }); ok {
		return st.Stats()
	}
	return canbus.Snapshot{}
}
