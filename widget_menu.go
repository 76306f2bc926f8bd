// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// pageTab is a page reachable from the bottom bar by its number key.
type pageTab struct {
	key   rune
	page  string
	label string
}

var pageTabs = []pageTab{
	{'1', PagePlayer, "player"},
	{'2', PageLog, "log"},
}

type MenuWidget struct {
	Root *tview.Flex

	tabs    *tview.Flex
	actions *tview.Flex

	active  string
	buttons map[string]*tview.Button

	idleStyle   tcell.Style
	activeStyle tcell.Style
	quitStyle   tcell.Style

	// external references
	ui *Ui
}

func (ui *Ui) createMenuWidget() *MenuWidget {
	m := &MenuWidget{
		active:  PagePlayer,
		buttons: make(map[string]*tview.Button, len(pageTabs)),

		idleStyle:   tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite),
		activeStyle: tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorYellow).Bold(true),
		quitStyle:   tcell.StyleDefault.Background(tcell.ColorWhite).Foreground(tcell.ColorRed),

		ui: ui,
	}

	m.tabs = tview.NewFlex().SetDirection(tview.FlexColumn)
	for _, tab := range pageTabs {
		button := tview.NewButton("").
			SetSelectedFunc(func() { ui.ShowPage(tab.page) })
		m.buttons[tab.page] = button
		m.tabs.AddItem(button, len(tab.label)+4, 0, false).
			AddItem(nil, 1, 0, false)
	}
	m.restyle()

	m.actions = tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(nil, 0, 1, false) // right-align
	if ui.window != nil {
		m.addAction("w: window", m.idleStyle, ui.toggleWindow)
	}
	m.addAction("?: help", m.idleStyle, ui.ShowHelp)
	m.addAction("Q: quit", m.quitStyle, ui.Quit)

	m.Root = tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(m.tabs, 0, 1, false).
		AddItem(m.actions, 0, 1, false)
	m.Root.Box = tview.NewBox()

	return m
}

func (m *MenuWidget) addAction(label string, activated tcell.Style, fn func()) {
	button := tview.NewButton(label).
		SetStyle(m.idleStyle).
		SetActivatedStyle(activated).
		SetSelectedFunc(fn)
	m.actions.AddItem(nil, 1, 0, false).
		AddItem(button, len(label), 0, false)
}

// restyle marks the active tab.
func (m *MenuWidget) restyle() {
	for _, tab := range pageTabs {
		style := m.idleStyle
		if tab.page == m.active {
			style = m.activeStyle
		}
		m.buttons[tab.page].
			SetLabel(fmt.Sprintf("%c: %s", tab.key, tab.label)).
			SetStyle(style).
			SetActivatedStyle(style)
	}
}

func (m *MenuWidget) SetActivePage(name string) {
	if _, ok := m.buttons[name]; !ok {
		return
	}
	m.active = name
	m.restyle()
}

func (m *MenuWidget) GetActivePage() string {
	return m.active
}

// pageForKey returns the page bound to a number key.
func pageForKey(r rune) (string, bool) {
	for _, tab := range pageTabs {
		if tab.key == r {
			return tab.page, true
		}
	}
	return "", false
}
