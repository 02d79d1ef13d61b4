// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storeview

import "github.com/charmbracelet/lipgloss"

// Theme defines the dashboard colors. All colors use lipgloss ANSI
// 256-color codes for broad terminal compatibility.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	HeaderForeground lipgloss.Color
	HelpText         lipgloss.Color

	// Capacity bar: filled and empty cells.
	BarFilled lipgloss.Color
	BarEmpty  lipgloss.Color

	// Heat accents for fresh events. Hot is used while an event is
	// young, Warm while it fades.
	SealHot    lipgloss.Color
	SealWarm   lipgloss.Color
	DeleteHot  lipgloss.Color
	DeleteWarm lipgloss.Color
}

// DefaultTheme is the built-in palette for dark terminals.
var DefaultTheme = Theme{
	NormalText:       lipgloss.Color("252"),
	FaintText:        lipgloss.Color("243"),
	HeaderForeground: lipgloss.Color("39"),
	HelpText:         lipgloss.Color("241"),
	BarFilled:        lipgloss.Color("35"),
	BarEmpty:         lipgloss.Color("238"),
	SealHot:          lipgloss.Color("214"),
	SealWarm:         lipgloss.Color("179"),
	DeleteHot:        lipgloss.Color("196"),
	DeleteWarm:       lipgloss.Color("131"),
}

// eventColor returns the foreground for an event row with the given
// heat.
func (theme Theme) eventColor(deleted bool, heat float64) lipgloss.Color {
	switch {
	case heat > 0.5 && deleted:
		return theme.DeleteHot
	case heat > 0.5:
		return theme.SealHot
	case heat > 0 && deleted:
		return theme.DeleteWarm
	case heat > 0:
		return theme.SealWarm
	}
	return theme.NormalText
}
