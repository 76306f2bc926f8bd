// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package engine

// State is the playback state last reported by the native player.
//
//	UNKNOWN --init--> READY
//	READY --play--> PLAYING
//	PLAYING --pause--> PAUSED ; --stop--> STOPPED ; --stall--> STALLED ; --end--> FINISHED
//	PAUSED --play--> PLAYING ; --stop--> STOPPED
//	STOPPED --play--> PLAYING
//	STALLED --resume--> PLAYING | PAUSED | STOPPED
//	any --fatal error--> HALTED
//
// The engine never rejects a command based on this diagram. The native layer
// decides which transitions are legal and reports the outcome as a state event.
type State int32

const (
	StateUnknown State = iota
	StateReady
	StatePlaying
	StatePaused
	StateStopped
	StateStalled
	StateFinished
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StatePlaying:
		return "PLAYING"
	case StatePaused:
		return "PAUSED"
	case StateStopped:
		return "STOPPED"
	case StateStalled:
		return "STALLED"
	case StateFinished:
		return "FINISHED"
	case StateHalted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}
