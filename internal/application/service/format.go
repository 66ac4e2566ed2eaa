// Package service internal/application/service/format.go
package service

import (
	"strings"

	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const (
	// HistoryDateLayout renders dates the es-CR short way, day first without padding
	HistoryDateLayout = "2/1/2006"

	// currencyFormat groups thousands with a no-break space and uses a decimal comma
	currencyFormat = "#\u00a0###,##"

	colonSign    = "₡"
	notAvailable = "N/A"
)

// FormatCurrency renders an amount in colones, or N/A when there is none
func FormatCurrency(value float64) string {
	if value == 0 {
		return notAvailable
	}
	return colonSign + humanize.FormatFloat(currencyFormat, value)
}

// FormatHistoryDate renders a backend date as d/m/yyyy. Unparsable dates are
// shown as received.
func FormatHistoryDate(raw string) string {
	t, err := entity.ParseRequestDate(raw)
	if err != nil {
		return raw
	}
	return t.Format(HistoryDateLayout)
}

// FormatHistory turns backend records into display rows
func FormatHistory(records []entity.RateRecord) []entity.HistoryItem {
	items := make([]entity.HistoryItem, 0, len(records))
	for _, record := range records {
		items = append(items, entity.HistoryItem{
			ID:           record.ID,
			RequestDate:  FormatHistoryDate(record.RequestDate),
			ExchangeBuy:  FormatCurrency(record.ExchangeBuy),
			ExchangeSell: FormatCurrency(record.ExchangeSell),
			Record:       record,
		})
	}
	return items
}

// ParseInputAmount reads an amount typed in the editor the way a browser's
// parseFloat does: the longest leading number counts and anything without
// one reads as 0. A comma is accepted as decimal separator.
func ParseInputAmount(input string) float64 {
	input = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), colonSign))
	input = numericPrefix(strings.Replace(input, ",", ".", 1))
	if input == "" {
		return 0
	}

	d, err := decimal.NewFromString(input)
	if err != nil {
		return 0
	}

	f, _ := d.Float64()
	return f
}

// numericPrefix returns the leading [sign]digits[.digits][e[sign]digits] of
// input, or "" when it does not start with a number
func numericPrefix(input string) string {
	i := 0
	if i < len(input) && (input[i] == '+' || input[i] == '-') {
		i++
	}

	start := i
	i = skipDigits(input, i)
	intDigits := i - start

	fracDigits := 0
	if i < len(input) && input[i] == '.' {
		j := skipDigits(input, i+1)
		fracDigits = j - i - 1
		if fracDigits > 0 {
			i = j
		} else if intDigits > 0 {
			i++
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return ""
	}

	if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
		j := i + 1
		if j < len(input) && (input[j] == '+' || input[j] == '-') {
			j++
		}
		if k := skipDigits(input, j); k > j {
			i = k
		}
	}

	return strings.TrimSuffix(input[:i], ".")
}

func skipDigits(s string, i int) int {
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}
