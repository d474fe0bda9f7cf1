package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/tasks"
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
	MsgCartFetched MsgKind = iota
	MsgProductRemoved
	MsgProductFetched
	MsgProgressUpdate
	MsgTrackingComplete
	MsgBrowserOpened
)

type cartResult struct {
	summary *models.CartSummary
	err     error
}

type productResult struct {
	product *models.ProductSnapshot
	err     error
}

type trackingResult struct {
	result *tasks.TrackingResult
	err    error
}

// cartFetchedMsg is the constructor for [MsgCartFetched]
func cartFetchedMsg(summary *models.CartSummary, err error) Msg {
	return Msg{kind: MsgCartFetched, data: cartResult{summary, err}}
}

// productRemovedMsg is the constructor for [MsgProductRemoved]
func productRemovedMsg(summary *models.CartSummary, err error) Msg {
	return Msg{kind: MsgProductRemoved, data: cartResult{summary, err}}
}

// productFetchedMsg is the constructor for [MsgProductFetched]
func productFetchedMsg(product *models.ProductSnapshot, err error) Msg {
	return Msg{kind: MsgProductFetched, data: productResult{product, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// trackingCompleteMsg is the constructor for [MsgTrackingComplete]
func trackingCompleteMsg(result *tasks.TrackingResult, err error) Msg {
	return Msg{kind: MsgTrackingComplete, data: trackingResult{result, err}}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: err}
}
