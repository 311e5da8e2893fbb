package network

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/muurk/smartoutlet/internal/logging"
)

// State is a bootstrap state
type State string

const (
	StateIdle        State = "idle"
	StateScanning    State = "scanning"
	StateConfiguring State = "configuring"
	StateConnecting  State = "connecting"
	StateVerifying   State = "verifying"
	StateConnected   State = "connected"
	StateFailed      State = "failed"
)

const (
	eventScan      = "scan"
	eventConfigure = "configure"
	eventConnect   = "connect"
	eventVerify    = "verify"
	eventSucceed   = "succeed"
	eventFail      = "fail"
)

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == StateConnected || s == StateFailed
}

// TransitionFunc observes bootstrap state changes
type TransitionFunc func(from, to State)

func newMachine(observe TransitionFunc) *fsm.FSM {
	running := []string{
		string(StateScanning),
		string(StateConfiguring),
		string(StateConnecting),
		string(StateVerifying),
	}

	events := fsm.Events{
		{Name: eventScan, Src: []string{string(StateIdle)}, Dst: string(StateScanning)},
		{Name: eventConfigure, Src: []string{string(StateScanning)}, Dst: string(StateConfiguring)},
		{Name: eventConnect, Src: []string{string(StateConfiguring)}, Dst: string(StateConnecting)},
		{Name: eventVerify, Src: []string{string(StateConnecting)}, Dst: string(StateVerifying)},
		{Name: eventSucceed, Src: []string{string(StateVerifying)}, Dst: string(StateConnected)},
		{Name: eventFail, Src: running, Dst: string(StateFailed)},
	}

	callbacks := fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			logging.LogTransition(e.Src, e.Dst)
			if observe != nil {
				observe(State(e.Src), State(e.Dst))
			}
		},
	}

	return fsm.NewFSM(string(StateIdle), events, callbacks)
}
