package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// amount accepts a rate sent either as a JSON number or as a string such as
// "₡512,35"; the colón sign and commas are dropped before parsing.
type amount float64

var amountReplacer = strings.NewReplacer("₡", "", ",", "", " ", "", "\u00a0", "")

func (a *amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = amountReplacer.Replace(raw)
		if raw == "" {
			*a = 0
			return nil
		}
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", raw, err)
	}

	f, _ := d.Float64()
	*a = amount(f)
	return nil
}
