package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/facescan/internal/auth"
	"github.com/desertthunder/facescan/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgHealthChecked MsgKind = iota
	MsgImageLoaded
	MsgLoginFinished
	MsgScanFinished
)

type imageLoaded struct {
	state session.State
	err   error
}

type loginFinished struct {
	credential auth.Credential
	err        error
}

// healthCheckedMsg is the constructor for [MsgHealthChecked]
func healthCheckedMsg(healthy bool) Msg {
	return Msg{kind: MsgHealthChecked, data: healthy}
}

// imageLoadedMsg is the constructor for [MsgImageLoaded]
func imageLoadedMsg(state session.State, err error) Msg {
	return Msg{kind: MsgImageLoaded, data: imageLoaded{state, err}}
}

// loginFinishedMsg is the constructor for [MsgLoginFinished]
func loginFinishedMsg(credential auth.Credential, err error) Msg {
	return Msg{kind: MsgLoginFinished, data: loginFinished{credential, err}}
}

// scanFinishedMsg is the constructor for [MsgScanFinished]
func scanFinishedMsg(state session.State) Msg {
	return Msg{kind: MsgScanFinished, data: state}
}
