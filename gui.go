// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spezifisch/vplay/clock"
	"github.com/spezifisch/vplay/engine"
	"github.com/spezifisch/vplay/logger"
	"github.com/spezifisch/vplay/remote"
	"github.com/spezifisch/vplay/settings"
)

// Ui holds the widgets and everything the key handlers act on.
type Ui struct {
	app   *tview.Application
	pages *tview.Pages

	// status line: engine state on the left, rate/volume/time on the right
	stateText *tview.TextView
	clockText *tview.TextView

	menuWidget *MenuWidget
	playerPage *PlayerPage
	logPage    *LogPage

	alert      *tview.Modal
	helpModal  tview.Primitive
	helpWidget *HelpWidget

	eventLoop    *eventLoop
	engineEvents chan engine.Event
	mprisPlayer  *remote.MprisPlayer

	mediaPath    string
	player       *engine.Engine
	window       *engine.WindowEngine // nil without a video window
	windowHidden atomic.Bool
	store        *settings.Store
	statePath    string
	clock        *clock.Driver
	logger       *logger.Logger

	quitOnce sync.Once
}

const (
	PagePlayer = "player"
	PageLog    = "log"

	// overlays
	PageAlert   = "alert"
	PageHelpBox = "helpBox"
)

func InitGui(mediaPath string,
	player *engine.Engine,
	window *engine.WindowEngine,
	logger *logger.Logger) *Ui {
	ui := &Ui{
		engineEvents: make(chan engine.Event, 16),
		mediaPath:    mediaPath,
		player:       player,
		window:       window,
		logger:       logger,
	}
	ui.initEventLoops()

	ui.app = tview.NewApplication()
	ui.pages = tview.NewPages()

	ui.playerPage = ui.createPlayerPage()
	ui.logPage = ui.createLogPage()
	ui.menuWidget = ui.createMenuWidget()
	ui.helpWidget = ui.createHelpWidget()
	ui.createOverlays()

	ui.pages.AddPage(PagePlayer, ui.playerPage.Root, true, true).
		AddPage(PageLog, ui.logPage.Root, true, false).
		AddPage(PageAlert, ui.alert, true, false).
		AddPage(PageHelpBox, ui.helpModal, true, false)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.createStatusLine(), 1, 0, false).
		AddItem(ui.pages, 0, 1, true).
		AddItem(ui.menuWidget.Root, 1, 0, false)
	layout.SetInputCapture(ui.handlePageInput)

	ui.app.SetRoot(layout, true).
		SetFocus(layout).
		EnableMouse(true)

	// events queue up in engineEvents until Run starts the loop
	ui.player.AddStateListener(ui)
	ui.player.AddErrorListener(ui)
	if ui.window != nil {
		ui.window.AddKeyListener(ui)
	}

	return ui
}

func (ui *Ui) createStatusLine() *tview.Flex {
	ui.stateText = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false).
		SetText(formatStateForStatusBar(ui.player.State(), filepath.Base(ui.mediaPath)))
	// clicks would otherwise steal focus from the pages
	ui.stateText.SetMouseCapture(func(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
		return action, nil
	})

	ui.clockText = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false).
		SetTextAlign(tview.AlignRight).
		SetText(ui.statusText())

	return tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(ui.stateText, 0, 1, false).
		AddItem(ui.clockText, 36, 0, false)
}

func (ui *Ui) createOverlays() {
	ui.alert = tview.NewModal().
		AddButtons([]string{"OK"}).
		SetBackgroundColor(tcell.ColorBlack).
		SetDoneFunc(func(int, string) {
			ui.pages.HidePage(PageAlert)
			ui.focusFrontPage()
		})

	ui.helpModal = makeModal(ui.helpWidget.Root, 80, 20)
	ui.helpWidget.Root.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// only ESC closes the help
		if ui.helpWidget.visible && event.Key() == tcell.KeyEscape {
			ui.CloseHelp()
			return nil
		}
		return event
	})
}

func (ui *Ui) Run() error {
	ui.runEventLoops()

	// blocks until Quit
	return ui.app.Run()
}

func (ui *Ui) ShowHelp() {
	ui.helpWidget.RenderHelp(ui.menuWidget.GetActivePage(), ui.window != nil)
	ui.helpWidget.visible = true
	ui.pages.ShowPage(PageHelpBox).SendToFront(PageHelpBox)
	ui.app.SetFocus(ui.helpModal)
}

func (ui *Ui) CloseHelp() {
	ui.helpWidget.visible = false
	ui.pages.HidePage(PageHelpBox)
	ui.focusFrontPage()
}

func (ui *Ui) focusFrontPage() {
	if _, prim := ui.pages.GetFrontPage(); prim != nil {
		ui.app.SetFocus(prim)
	}
}

// showAlert must run on the ui goroutine.
func (ui *Ui) showAlert(text string) {
	ui.alert.SetText(text)
	ui.pages.ShowPage(PageAlert).SendToFront(PageAlert)
	ui.app.SetFocus(ui.alert)
}

// statusText renders the right side of the status line from the engine getters.
func (ui *Ui) statusText() string {
	return formatPlayerStatus(ui.player.Rate(), ui.player.Volume(), ui.player.Mute(),
		ui.player.PresentationTime(), ui.playerPage.duration())
}

func (ui *Ui) showHalt(message string) {
	ui.showAlert(fmt.Sprintf("Playback halted:\n%s", message))
}
