// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storeview

import (
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/objstore/lib/client"
	"github.com/bureau-foundation/objstore/lib/objectid"
)

func TestMain(m *testing.M) {
	// Plain output keeps View assertions independent of the terminal.
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

// testModel returns a model with a controllable clock.
func testModel(capacity int64) (Model, *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	model := NewModel("/run/objstore/store.sock", capacity, make(chan client.Notification))
	model.now = func() time.Time { return now }
	return model, &now
}

func update(t *testing.T, model Model, message tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, command := model.Update(message)
	result, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	return result, command
}

func sealedMsg(id objectid.ID, dataSize, metadataSize int64) notificationMsg {
	return notificationMsg{notification: client.Notification{ID: id, DataSize: dataSize, MetadataSize: metadataSize}}
}

func deletedMsg(id objectid.ID) notificationMsg {
	return notificationMsg{notification: client.Notification{ID: id, DataSize: -1, MetadataSize: -1, Deleted: true}}
}

func TestNotificationsUpdateTotals(t *testing.T) {
	model, _ := testModel(1 << 20)
	first, second := objectid.Random(), objectid.Random()

	model, command := update(t, model, sealedMsg(first, 1000, 24))
	if command == nil {
		t.Fatal("seal notification returned no command; the model must keep listening")
	}
	model, _ = update(t, model, sealedMsg(second, 2000, 0))
	if model.stored != 3024 || model.sealed != 2 {
		t.Fatalf("stored = %d, sealed = %d, want 3024 and 2", model.stored, model.sealed)
	}

	model, _ = update(t, model, deletedMsg(first))
	if model.stored != 2000 || model.deleted != 1 || len(model.sizes) != 1 {
		t.Errorf("after delete: stored = %d, deleted = %d, live = %d, want 2000, 1, 1",
			model.stored, model.deleted, len(model.sizes))
	}

	// Objects sealed before the dashboard started have no known size.
	model, _ = update(t, model, deletedMsg(objectid.Random()))
	if model.stored != 2000 || model.deleted != 2 {
		t.Errorf("after unknown delete: stored = %d, deleted = %d, want 2000 and 2", model.stored, model.deleted)
	}
}

func TestEventsNewestFirst(t *testing.T) {
	model, _ := testModel(1 << 20)
	ids := []objectid.ID{objectid.Random(), objectid.Random(), objectid.Random()}
	for _, id := range ids {
		model, _ = update(t, model, sealedMsg(id, 10, 0))
	}

	if len(model.events) != 3 {
		t.Fatalf("events = %d, want 3", len(model.events))
	}
	for index, entry := range model.events {
		want := ids[len(ids)-1-index]
		if entry.notification.ID != want {
			t.Errorf("events[%d] = %s, want %s", index, entry.notification.ID, want)
		}
	}
}

func TestEventListBounded(t *testing.T) {
	model, _ := testModel(1 << 30)
	for range maxEvents + 10 {
		model, _ = update(t, model, sealedMsg(objectid.Random(), 1, 0))
	}
	if len(model.events) != maxEvents {
		t.Errorf("events = %d, want %d", len(model.events), maxEvents)
	}
	if model.sealed != maxEvents+10 {
		t.Errorf("sealed = %d, want %d", model.sealed, maxEvents+10)
	}
}

func TestKeys(t *testing.T) {
	model, _ := testModel(1 << 20)
	model, _ = update(t, model, sealedMsg(objectid.Random(), 1, 0))

	model, command := update(t, model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if command != nil {
		t.Error("clear returned a command")
	}
	if len(model.events) != 0 {
		t.Errorf("events after clear = %d, want 0", len(model.events))
	}
	if model.sealed != 1 {
		t.Errorf("clear reset the counters: sealed = %d", model.sealed)
	}

	_, command = update(t, model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if command == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := command().(tea.QuitMsg); !ok {
		t.Error("quit command did not produce tea.QuitMsg")
	}
}

func TestHeatTicksStopWhenCold(t *testing.T) {
	model, now := testModel(1 << 20)
	model, _ = update(t, model, sealedMsg(objectid.Random(), 1, 0))
	if !model.ticking {
		t.Fatal("a new event did not start the heat animation")
	}

	model, command := update(t, model, heatTickMsg{})
	if command == nil {
		t.Fatal("tick while hot did not schedule another tick")
	}

	*now = now.Add(heatDecayDuration)
	model, command = update(t, model, heatTickMsg{})
	if command != nil {
		t.Error("tick after decay scheduled another tick")
	}
	if model.ticking {
		t.Error("model still ticking after every event cooled")
	}
}

func TestListenForNotification(t *testing.T) {
	channel := make(chan client.Notification, 1)
	id := objectid.Random()
	channel <- client.Notification{ID: id, DataSize: 5}

	message := listenForNotification(channel)()
	received, ok := message.(notificationMsg)
	if !ok || received.notification.ID != id {
		t.Fatalf("message = %#v, want notification for %s", message, id)
	}

	close(channel)
	if _, ok := listenForNotification(channel)().(sourceClosedMsg); !ok {
		t.Error("closed channel did not produce sourceClosedMsg")
	}
}

func TestView(t *testing.T) {
	model, _ := testModel(4096)
	model, _ = update(t, model, tea.WindowSizeMsg{Width: 100, Height: 12})
	sealedID, deletedID := objectid.Random(), objectid.Random()
	model, _ = update(t, model, sealedMsg(sealedID, 1024, 0))
	model, _ = update(t, model, deletedMsg(deletedID))
	model, _ = update(t, model, sourceClosedMsg{})

	view := model.View()
	lines := strings.Split(view, "\n")
	if len(lines) != 12 {
		t.Errorf("view has %d lines, want the window height 12", len(lines))
	}
	for _, want := range []string{
		"/run/objstore/store.sock",
		"1.0 KiB / 4.0 KiB (25%)",
		"sealed 1  deleted 1  live 1",
		"sealed   " + sealedID.String(),
		"deleted  " + deletedID.String(),
		"stream closed",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Index(view, deletedID.String()) > strings.Index(view, sealedID.String()) {
		t.Error("newest event is not listed first")
	}
}

func TestViewFitsWidth(t *testing.T) {
	model, _ := testModel(1 << 20)
	model, _ = update(t, model, tea.WindowSizeMsg{Width: 40, Height: 8})
	for range 10 {
		model, _ = update(t, model, sealedMsg(objectid.Random(), 123456, 789))
	}

	lines := strings.Split(model.View(), "\n")
	if len(lines) != 8 {
		t.Errorf("view has %d lines, want 8", len(lines))
	}
	for index, line := range lines {
		if width := ansi.StringWidth(line); width > 40 {
			t.Errorf("line %d is %d cells wide, want at most 40: %q", index, width, line)
		}
	}
}
