package handler

import (
	"strconv"

	"github.com/damon-houk/exchange-rate-widget/internal/application/service"
	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
)

// editorMaxLength limits what can be typed in the editor inputs
const editorMaxLength = 4

// PageView is what the widget template renders
type PageView struct {
	Loading       bool
	ShowData      bool
	ShowHistory   bool
	Rate          RateView
	History       []entity.HistoryItem
	Editor        *EditorView
	ConfirmDelete bool
	DeleteID      int64
	Notifications []entity.Notification
}

// RateView is the current rate panel
type RateView struct {
	Date string
	Buy  string
	Sell string
}

// EditorView is the modal editor
type EditorView struct {
	ID          int64
	Date        string
	Buy         string
	Sell        string
	InitialBuy  string
	InitialSell string
	CanSave     bool
	MaxLength   int
}

func newPageView(state *entity.ViewState, notes []entity.Notification) PageView {
	view := PageView{
		Loading:       state.Loading,
		ShowData:      state.ShowData && !state.ShowHistory,
		ShowHistory:   state.ShowHistory,
		History:       state.History,
		Notifications: notes,
		Rate: RateView{
			Date: state.Rate.RequestDate,
			Buy:  formatNumber(state.Rate.ExchangeBuy),
			Sell: formatNumber(state.Rate.ExchangeSell),
		},
	}

	if state.ModalOpen && state.Editor != nil {
		view.Editor = &EditorView{
			ID:          state.Editor.Item.ID,
			Date:        state.Editor.Item.RequestDate,
			Buy:         formatNumber(state.Editor.ExchangeBuy),
			Sell:        formatNumber(state.Editor.ExchangeSell),
			InitialBuy:  formatNumber(state.Editor.InitialBuy),
			InitialSell: formatNumber(state.Editor.InitialSell),
			CanSave:     service.CanSaveEdit(state) && !state.Loading,
			MaxLength:   editorMaxLength,
		}
	}

	if state.PendingDeleteID != nil {
		view.ConfirmDelete = true
		view.DeleteID = *state.PendingDeleteID
	}

	return view
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
