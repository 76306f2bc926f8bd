// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package remote

import (
	"errors"
	"math"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/spezifisch/vplay/engine"
	"github.com/spezifisch/vplay/logger"
	"github.com/spezifisch/vplay/rate"
	"github.com/spf13/cast"
)

const (
	objectPath  = "/org/mpris/MediaPlayer2"
	rootIface   = "org.mpris.MediaPlayer2"
	playerIface = "org.mpris.MediaPlayer2.Player"
	busName     = "org.mpris.MediaPlayer2.vplay"

	trackID = dbus.ObjectPath("/org/spezifisch/vplay/track/1")
)

var (
	minRate = rate.ThirtySecond.Value()
	maxRate = rate.ThirtyTwo.Value()
)

type MprisPlayer struct {
	dbus   *dbus.Conn
	props  propertySetter
	player ControlledPlayer
	logger logger.LoggerInterface
	token  engine.Token
	title  string
}

var _ engine.StateListener = (*MprisPlayer)(nil)

// root serves org.mpris.MediaPlayer2; the console owns its lifecycle.
type root struct{}

func (root) Raise() *dbus.Error { return nil }
func (root) Quit() *dbus.Error  { return nil }

func RegisterMprisPlayer(player ControlledPlayer, title string, logger_ logger.LoggerInterface) (mpp *MprisPlayer, err error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return
	}

	mpp = &MprisPlayer{
		dbus:   conn,
		player: player,
		logger: logger_,
		title:  title,
	}
	defer func() {
		if err != nil {
			conn.Close()
			mpp = nil
		}
	}()

	if err = conn.Export(root{}, objectPath, rootIface); err != nil {
		return
	}
	if err = conn.Export(mpp.methods(), objectPath, playerIface); err != nil {
		return
	}

	mprisPlayer := map[string]*prop.Prop{
		"CanControl":     {Value: true, Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"CanGoNext":      {Value: false, Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"CanGoPrevious":  {Value: false, Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"CanPause":       {Value: true, Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"CanPlay":        {Value: true, Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"CanSeek":        {Value: true, Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"Metadata":       {Value: mpp.metadata(player.Duration()), Writable: false, Emit: prop.EmitTrue, Callback: nil},
		"PlaybackStatus": {Value: playbackStatus(player.State()), Writable: false, Emit: prop.EmitTrue, Callback: nil},
		"Position":       {Value: int64(0), Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"Rate":           {Value: 1.0, Writable: true, Emit: prop.EmitTrue, Callback: mpp.rateChange},
		"MinimumRate":    {Value: minRate, Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"MaximumRate":    {Value: maxRate, Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"Volume":         {Value: 1.0, Writable: true, Emit: prop.EmitTrue, Callback: mpp.volumeChange},
	}

	mediaPlayer := map[string]*prop.Prop{
		"CanQuit":             {Value: false, Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"CanRaise":            {Value: false, Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"HasTrackList":        {Value: false, Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"Identity":            {Value: "vplay", Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"SupportedUriSchemes": {Value: []string{"file"}, Writable: false, Emit: prop.EmitFalse, Callback: nil},
		"SupportedMimeTypes":  {Value: []string{}, Writable: false, Emit: prop.EmitFalse, Callback: nil},
	}

	props, err := prop.Export(
		conn,
		objectPath,
		map[string]map[string]*prop.Prop{
			rootIface:   mediaPlayer,
			playerIface: mprisPlayer,
		},
	)
	if err != nil {
		return
	}
	mpp.props = props

	n := &introspect.Node{
		Name: objectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       rootIface,
				Methods:    introspect.Methods(root{}),
				Properties: props.Introspection(rootIface),
			},
			{
				Name:       playerIface,
				Methods:    introspect.Methods(mpp.methods()),
				Properties: props.Introspection(playerIface),
			},
		},
	}
	err = conn.Export(introspect.NewIntrospectable(n), objectPath, "org.freedesktop.DBus.Introspectable")
	if err != nil {
		return
	}

	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		err = errors.New("name already owned")
		return
	}

	mpp.token = player.AddStateListener(mpp)
	// the player may be loaded already
	mpp.refresh(playbackStatus(player.State()), max(player.PresentationTime(), 0))
	return
}

func (m *MprisPlayer) Close() {
	if m.token != 0 {
		m.player.RemoveStateListener(m.token)
	}
	if m.dbus == nil {
		return
	}
	if err := m.dbus.Close(); err != nil {
		m.logger.PrintError("mpp Close", err)
	}
}

// playerMethods is the object exported on the Player interface, so that
// only the MPRIS methods are callable over the bus.
type playerMethods struct {
	m *MprisPlayer
}

func (m *MprisPlayer) methods() playerMethods {
	return playerMethods{m: m}
}

// Mandatory functions
func (p playerMethods) Stop() *dbus.Error {
	p.m.player.Stop()
	return nil
}

// set paused
func (p playerMethods) Pause() *dbus.Error {
	if s := p.m.player.State(); s == engine.StatePlaying || s == engine.StateStalled {
		p.m.player.Pause()
	}
	return nil
}

// set playing
func (p playerMethods) Play() *dbus.Error {
	if p.m.player.State() != engine.StatePlaying {
		p.m.player.Play()
	}
	return nil
}

func (p playerMethods) PlayPause() *dbus.Error {
	p.m.player.TogglePause()
	return nil
}

// Seek moves by offset microseconds.
func (p playerMethods) Seek(offset int64) *dbus.Error {
	pos := p.m.player.PresentationTime()
	if pos < 0 {
		return nil
	}
	p.m.player.Seek(max(pos+float64(offset)/1e6, 0))
	return nil
}

// SetPosition is ignored for stale track ids.
func (p playerMethods) SetPosition(track dbus.ObjectPath, position int64) *dbus.Error {
	if track != trackID || position < 0 {
		return nil
	}
	p.m.player.Seek(float64(position) / 1e6)
	return nil
}

// single file, no track list
func (p playerMethods) Next() *dbus.Error          { return nil }
func (p playerMethods) Previous() *dbus.Error      { return nil }
func (p playerMethods) OpenUri(string) *dbus.Error { return nil }

func (m *MprisPlayer) volumeChange(c *prop.Change) *dbus.Error {
	v, err := cast.ToFloat64E(c.Value)
	if err != nil || math.IsNaN(v) {
		return prop.ErrInvalidArg
	}
	m.player.SetVolume(v)
	m.logger.Printf("mpris: adjust volume %.0f%%", v*100)
	return nil
}

// rateChange snaps to the nearest supported speed; 0 pauses.
func (m *MprisPlayer) rateChange(c *prop.Change) *dbus.Error {
	v, err := cast.ToFloat64E(c.Value)
	if err != nil || math.IsNaN(v) {
		return prop.ErrInvalidArg
	}
	if v == 0 {
		m.player.Pause()
		return nil
	}
	r := rate.Nearest(min(max(v, minRate), maxRate))
	m.player.SetRate(r.Value())
	m.logger.Printf("mpris: rate %s", r)
	return nil
}

func (m *MprisPlayer) metadata(duration float64) map[string]interface{} {
	return map[string]interface{}{
		"mpris:trackid": trackID,
		"mpris:length":  int64(max(duration, 0) * 1e6),
		"xesam:title":   m.title,
	}
}

// refresh publishes status along with the values the console may have changed.
func (m *MprisPlayer) refresh(status string, t float64) {
	if m.props == nil {
		return
	}
	m.props.SetMust(playerIface, "PlaybackStatus", status)
	m.props.SetMust(playerIface, "Position", int64(t*1e6))
	if r := m.player.Rate(); r > 0 {
		m.props.SetMust(playerIface, "Rate", min(max(r, minRate), maxRate))
	}
	if v := m.player.Volume(); v >= 0 {
		m.props.SetMust(playerIface, "Volume", v)
	}
}

// playbackStatus maps engine states onto the three MPRIS statuses.
func playbackStatus(s engine.State) string {
	switch s {
	case engine.StatePlaying, engine.StateStalled:
		// buffering still counts as playing
		return "Playing"
	case engine.StatePaused:
		return "Paused"
	default:
		return "Stopped"
	}
}

func (m *MprisPlayer) OnReady(t float64) {
	if m.props != nil {
		m.props.SetMust(playerIface, "Metadata", m.metadata(m.player.Duration()))
	}
	m.refresh(playbackStatus(engine.StateReady), t)
}

func (m *MprisPlayer) OnPlaying(t float64) { m.refresh(playbackStatus(engine.StatePlaying), t) }
func (m *MprisPlayer) OnPause(t float64)   { m.refresh(playbackStatus(engine.StatePaused), t) }
func (m *MprisPlayer) OnStop(t float64)    { m.refresh(playbackStatus(engine.StateStopped), t) }
func (m *MprisPlayer) OnStall(t float64)   { m.refresh(playbackStatus(engine.StateStalled), t) }
func (m *MprisPlayer) OnFinish(t float64)  { m.refresh(playbackStatus(engine.StateFinished), t) }

func (m *MprisPlayer) OnHalt(message string) {
	m.logger.Printf("mpris: player halted: %s", message)
	m.refresh(playbackStatus(engine.StateHalted), 0)
}
