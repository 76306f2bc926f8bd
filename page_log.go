// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

const maxLogLines = 200

type LogPage struct {
	Root *tview.Flex

	lines *tview.List

	// external refs
	ui *Ui
}

func (ui *Ui) createLogPage() *LogPage {
	p := &LogPage{ui: ui}

	p.lines = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	p.lines.SetBorder(true)
	p.retitle()

	p.Root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(p.lines, 0, 1, true)

	return p
}

func (p *LogPage) retitle() {
	p.lines.SetTitle(fmt.Sprintf(" log (%d) ", p.lines.GetItemCount()))
}

// Print adds a timestamped line on top and trims the oldest ones.
func (p *LogPage) Print(line string) {
	entry := fmt.Sprintf("[gray]%s[-] %s", time.Now().Format("15:04:05"), tview.Escape(line))
	p.ui.app.QueueUpdateDraw(func() {
		p.lines.InsertItem(0, entry, "", 0, nil)
		for p.lines.GetItemCount() > maxLogLines {
			p.lines.RemoveItem(-1)
		}
		p.retitle()
	})
}

func (p *LogPage) Clear() {
	p.ui.app.QueueUpdateDraw(func() {
		p.lines.Clear()
		p.retitle()
	})
}
