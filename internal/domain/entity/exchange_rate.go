package entity

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Validation errors for a rate about to be saved
var (
	ErrIncompleteRate = errors.New("exchange rate data is incomplete")
	ErrInvalidDate    = errors.New("exchange rate date is not valid")
	ErrInvalidAmount  = errors.New("exchange rate amounts are not valid")
)

// ISODateLayout is the layout requestDate is sent to the backend with
const ISODateLayout = "2006-01-02T15:04:05.000Z07:00"

// ExchangeRate represents the current buy/sell rate shown by the widget
type ExchangeRate struct {
	RequestDate  string  `json:"requestDate"`
	ExchangeBuy  float64 `json:"exchangeBuy"`
	ExchangeSell float64 `json:"exchangeSell"`
}

// Validate ensures the rate can be sent to the backend
func (r *ExchangeRate) Validate() error {
	if r.ExchangeBuy == 0 || r.ExchangeSell == 0 || strings.TrimSpace(r.RequestDate) == "" {
		return ErrIncompleteRate
	}

	if _, err := ParseRequestDate(r.RequestDate); err != nil {
		return ErrInvalidDate
	}

	if !validAmount(r.ExchangeBuy) || !validAmount(r.ExchangeSell) {
		return ErrInvalidAmount
	}

	return nil
}

// Normalized returns a copy with requestDate rewritten in ISO-8601 UTC
func (r ExchangeRate) Normalized() (ExchangeRate, error) {
	date, err := ParseRequestDate(r.RequestDate)
	if err != nil {
		return r, ErrInvalidDate
	}
	r.RequestDate = FormatRequestDate(date)
	return r, nil
}

// RateRecord is a stored rate as listed by the backend
type RateRecord struct {
	ID           int64   `json:"id"`
	RequestDate  string  `json:"requestDate"`
	ExchangeBuy  float64 `json:"exchangeBuy"`
	ExchangeSell float64 `json:"exchangeSell"`
}

// Validate ensures an edited record can be sent to the backend
func (r *RateRecord) Validate() error {
	if strings.TrimSpace(r.RequestDate) == "" {
		return ErrIncompleteRate
	}

	if _, err := ParseRequestDate(r.RequestDate); err != nil {
		return ErrInvalidDate
	}

	if !validAmount(r.ExchangeBuy) || !validAmount(r.ExchangeSell) {
		return ErrInvalidAmount
	}

	return nil
}

// HistoryItem is a history row formatted for display
type HistoryItem struct {
	ID           int64      `json:"id"`
	RequestDate  string     `json:"requestDate"`
	ExchangeBuy  string     `json:"exchangeBuy"`
	ExchangeSell string     `json:"exchangeSell"`
	Record       RateRecord `json:"record"`
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

var requestDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2/1/2006",
}

// ParseRequestDate parses the date formats the backend is known to send.
// Dates without a zone are read as UTC.
func ParseRequestDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	var lastErr error
	for _, layout := range requestDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}

	return time.Time{}, lastErr
}

// FormatRequestDate renders a date the way the backend expects it
func FormatRequestDate(t time.Time) string {
	return t.UTC().Format(ISODateLayout)
}
