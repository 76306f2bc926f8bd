// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"strings"

	"github.com/rivo/tview"
)

type HelpWidget struct {
	Root *tview.Flex

	columns     *tview.Flex
	keys, extra *tview.TextView

	// whether the modal is shown
	visible bool

	// external references
	ui *Ui
}

func (ui *Ui) createHelpWidget() *HelpWidget {
	h := &HelpWidget{ui: ui}

	h.keys = tview.NewTextView().SetDynamicColors(true)
	h.extra = tview.NewTextView().SetDynamicColors(true)
	h.columns = tview.NewFlex().SetDirection(tview.FlexColumn)

	h.Root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(h.columns, 0, 1, false)
	h.Root.SetBorder(true).SetTitle(" Help (ESC to close) ")

	return h
}

// RenderHelp fills the modal with the playback keys and, next to them, the
// keys of the active page.
func (h *HelpWidget) RenderHelp(page string, hasWindow bool) {
	h.keys.SetText(helpLeftText())
	extra := helpRightText(page, hasWindow)
	h.extra.SetText(extra)

	h.columns.Clear()
	if extra == "" {
		h.columns.AddItem(h.keys, 0, 1, false)
		return
	}
	h.columns.AddItem(h.keys, 38, 0, false).
		AddItem(h.extra, 0, 1, true)
}

func helpSection(title, body string) string {
	return "[::b]" + title + "[::-]\n" + tview.Escape(strings.TrimSpace(body))
}

func helpLeftText() string {
	return helpSection("Playback", helpPlayback)
}

func helpRightText(page string, hasWindow bool) string {
	switch {
	case page == PagePlayer && hasWindow:
		return helpSection("Window", helpWindow)
	case page == PageLog:
		return helpSection("Log", helpPageLog)
	}
	return ""
}
