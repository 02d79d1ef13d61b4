// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storeview

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard key bindings.
type KeyMap struct {
	Clear key.Binding
	Quit  key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear events"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// bindings returns the bindings shown in the help line, in order.
func (keys KeyMap) bindings() []key.Binding {
	return []key.Binding{keys.Clear, keys.Quit}
}
