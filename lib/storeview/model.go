// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storeview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/objstore/lib/client"
	"github.com/bureau-foundation/objstore/lib/objectid"
)

// maxEvents bounds the event list. Older events scroll off.
const maxEvents = 500

// defaultHeight is the assumed terminal height before the first
// WindowSizeMsg arrives.
const defaultHeight = 24

// chromeLines is the number of rows used by everything except the
// event list: header, capacity bar, counters, blank line, help.
const chromeLines = 5

// notificationMsg wraps a store notification for delivery through the
// bubbletea message loop.
type notificationMsg struct {
	notification client.Notification
}

// sourceClosedMsg is sent once the notification channel is closed.
type sourceClosedMsg struct{}

// heatTickMsg drives the fade animation. While any event is hot, a
// new tick is scheduled after each one.
type heatTickMsg struct{}

// event is one row of the event list.
type event struct {
	notification client.Notification
	at           time.Time
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	title    string
	capacity int64
	source   <-chan client.Notification

	theme Theme
	keys  KeyMap
	now   func() time.Time

	// sizes holds data plus metadata bytes of objects sealed since the
	// dashboard started, so deletions can be subtracted.
	sizes   map[objectid.ID]int64
	stored  int64
	sealed  int
	deleted int

	events  []event // newest first
	heat    *heatTracker
	ticking bool
	closed  bool

	width  int
	height int
}

// NewModel creates a dashboard for a store of the given capacity that
// reads notifications from source until it is closed. The title is
// shown in the header, typically the store socket path.
func NewModel(title string, capacity int64, source <-chan client.Notification) Model {
	return Model{
		title:    title,
		capacity: capacity,
		source:   source,
		theme:    DefaultTheme,
		keys:     DefaultKeyMap,
		now:      time.Now,
		sizes:    make(map[objectid.ID]int64),
		heat:     newHeatTracker(),
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return listenForNotification(model.source)
}

// listenForNotification returns a tea.Cmd that blocks until a
// notification arrives on the channel.
func listenForNotification(channel <-chan client.Notification) tea.Cmd {
	return func() tea.Msg {
		notification, ok := <-channel
		if !ok {
			return sourceClosedMsg{}
		}
		return notificationMsg{notification: notification}
	}
}

func scheduleHeatTick() tea.Cmd {
	return tea.Tick(heatTickInterval, func(time.Time) tea.Msg {
		return heatTickMsg{}
	})
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		return model, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(message, model.keys.Quit):
			return model, tea.Quit
		case key.Matches(message, model.keys.Clear):
			model.events = nil
		}
		return model, nil

	case notificationMsg:
		return model.handleNotification(message.notification)

	case sourceClosedMsg:
		model.closed = true
		return model, nil

	case heatTickMsg:
		if model.heat.hasHot(model.now()) {
			return model, scheduleHeatTick()
		}
		model.ticking = false
		return model, nil
	}
	return model, nil
}

func (model Model) handleNotification(notification client.Notification) (tea.Model, tea.Cmd) {
	now := model.now()

	if notification.Deleted {
		model.deleted++
		if size, known := model.sizes[notification.ID]; known {
			model.stored -= size
			delete(model.sizes, notification.ID)
		}
	} else {
		model.sealed++
		size := notification.DataSize + notification.MetadataSize
		model.stored += size - model.sizes[notification.ID]
		model.sizes[notification.ID] = size
	}

	model.events = append([]event{{notification: notification, at: now}}, model.events...)
	if len(model.events) > maxEvents {
		model.events = model.events[:maxEvents]
	}
	model.heat.ignite(notification.ID, now)

	commands := []tea.Cmd{listenForNotification(model.source)}
	if !model.ticking {
		model.ticking = true
		commands = append(commands, scheduleHeatTick())
	}
	return model, tea.Batch(commands...)
}

// View implements tea.Model.
func (model Model) View() string {
	now := model.now()
	lines := []string{
		model.renderHeader(),
		model.renderCapacity(),
		model.renderCounters(),
		"",
	}

	height := model.height
	if height == 0 {
		height = defaultHeight
	}
	rows := max(height-chromeLines, 1)
	for index, entry := range model.events {
		if index == rows {
			break
		}
		lines = append(lines, model.renderEvent(entry, now))
	}
	for len(lines) < chromeLines-1+rows {
		lines = append(lines, "")
	}
	lines = append(lines, model.renderHelp())

	if model.width > 0 {
		for index, line := range lines {
			lines[index] = ansi.Truncate(line, model.width, "…")
		}
	}
	return strings.Join(lines, "\n")
}

func (model Model) renderHeader() string {
	style := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	return style.Render("objstore") + " " + faint.Render(model.title)
}

func (model Model) renderCapacity() string {
	width := model.width
	if width == 0 {
		width = 80
	}
	barWidth := max(width-40, 10)

	fraction := 0.0
	if model.capacity > 0 {
		fraction = float64(model.stored) / float64(model.capacity)
	}
	fraction = min(max(fraction, 0), 1)
	filled := int(fraction * float64(barWidth))

	bar := lipgloss.NewStyle().Foreground(model.theme.BarFilled).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(model.theme.BarEmpty).Render(strings.Repeat("░", barWidth-filled))

	return fmt.Sprintf("%s %s / %s (%.0f%%)", bar,
		humanize.IBytes(uint64(max(model.stored, 0))),
		humanize.IBytes(uint64(model.capacity)),
		fraction*100)
}

func (model Model) renderCounters() string {
	style := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	return style.Render(fmt.Sprintf("sealed %s  deleted %s  live %s",
		humanize.Comma(int64(model.sealed)),
		humanize.Comma(int64(model.deleted)),
		humanize.Comma(int64(len(model.sizes)))))
}

func (model Model) renderEvent(entry event, now time.Time) string {
	notification := entry.notification
	color := model.theme.eventColor(notification.Deleted, model.heat.heat(notification.ID, now))
	style := lipgloss.NewStyle().Foreground(color)

	if notification.Deleted {
		return style.Render(fmt.Sprintf("%s  deleted  %s", entry.at.Format("15:04:05"), notification.ID))
	}
	return style.Render(fmt.Sprintf("%s  sealed   %s  %s + %s",
		entry.at.Format("15:04:05"), notification.ID,
		humanize.IBytes(uint64(notification.DataSize)),
		humanize.IBytes(uint64(notification.MetadataSize))))
}

func (model Model) renderHelp() string {
	var parts []string
	for _, binding := range model.keys.bindings() {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	help := " " + strings.Join(parts, "  ")
	if model.closed {
		help += "  [notification stream closed]"
	}
	return lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(help)
}
