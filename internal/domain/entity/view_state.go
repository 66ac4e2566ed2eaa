package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ViewState is everything the widget page renders from
type ViewState struct {
	SessionID       string        `json:"sessionId"`
	ShowData        bool          `json:"showData"`
	ShowHistory     bool          `json:"showHistory"`
	ModalOpen       bool          `json:"modalOpen"`
	Loading         bool          `json:"loading"`
	LoadingSince    time.Time     `json:"loadingSince,omitempty"`
	LoadingID       string        `json:"loadingId,omitempty"`
	Loaded          bool          `json:"loaded"`
	Rate            ExchangeRate  `json:"rate"`
	History         []HistoryItem `json:"history"`
	Editor          *Editor       `json:"editor,omitempty"`
	PendingDeleteID *int64        `json:"pendingDeleteId,omitempty"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// NewViewState returns the state of a widget that has not fetched anything yet
func NewViewState(sessionID string) *ViewState {
	return &ViewState{
		SessionID: sessionID,
		History:   []HistoryItem{},
	}
}

// FindHistoryItem looks up a history row by id
func (s *ViewState) FindHistoryItem(id int64) (HistoryItem, bool) {
	for _, item := range s.History {
		if item.ID == id {
			return item, true
		}
	}
	return HistoryItem{}, false
}

// Busy reports whether a backend call started less than maxAge ago is still in flight
func (s *ViewState) Busy(now time.Time, maxAge time.Duration) bool {
	if !s.Loading {
		return false
	}
	return now.Sub(s.LoadingSince) < maxAge
}

// StartLoading marks a backend call identified by id as in flight
func (s *ViewState) StartLoading(id string, now time.Time) {
	s.Loading = true
	s.LoadingSince = now
	s.LoadingID = id
}

// StopLoading clears the in-flight call
func (s *ViewState) StopLoading() {
	s.Loading = false
	s.LoadingSince = time.Time{}
	s.LoadingID = ""
}

// Editor holds the history item being edited in the modal
type Editor struct {
	Item         HistoryItem `json:"item"`
	ExchangeBuy  float64     `json:"exchangeBuy"`
	ExchangeSell float64     `json:"exchangeSell"`
	InitialBuy   float64     `json:"initialBuy"`
	InitialSell  float64     `json:"initialSell"`
}

// NewEditor opens an editor on item, remembering its initial amounts
func NewEditor(item HistoryItem) *Editor {
	return &Editor{
		Item:         item,
		ExchangeBuy:  item.Record.ExchangeBuy,
		ExchangeSell: item.Record.ExchangeSell,
		InitialBuy:   item.Record.ExchangeBuy,
		InitialSell:  item.Record.ExchangeSell,
	}
}

// Changed reports whether buy or sell differs from the value the editor opened with
func (e *Editor) Changed() bool {
	return !decimal.NewFromFloat(e.ExchangeBuy).Equal(decimal.NewFromFloat(e.InitialBuy)) ||
		!decimal.NewFromFloat(e.ExchangeSell).Equal(decimal.NewFromFloat(e.InitialSell))
}

// Record returns the edited record as it will be sent to the backend
func (e *Editor) Record() RateRecord {
	record := e.Item.Record
	record.ExchangeBuy = e.ExchangeBuy
	record.ExchangeSell = e.ExchangeSell
	return record
}
