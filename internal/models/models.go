package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for trade dates (dd-MM-yyyy).
const DateLayout = "02-01-2006"

// TradeDate is a day-granularity date serialized as dd-MM-yyyy.
type TradeDate struct {
	time.Time
}

func NewTradeDate(year int, month time.Month, day int) TradeDate {
	return TradeDate{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d TradeDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *TradeDate) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected dd-MM-yyyy: %w", s, err)
	}
	d.Time = parsed
	return nil
}

// StockTrade is one stock trade record, keyed by its integer id.
// A zero value in any field means "unset".
type StockTrade struct {
	ID       int       `json:"id"`
	Security string    `json:"security"`
	Date     TradeDate `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	AdjClose float64   `json:"adjClose"`
}

// IsValid reports whether the record carries every required field.
func (t *StockTrade) IsValid() bool {
	return t.ID != 0 &&
		t.Security != "" &&
		!t.Date.IsZero() &&
		t.Open != 0 &&
		t.High != 0 &&
		t.Low != 0 &&
		t.Close != 0 &&
		t.Volume != 0 &&
		t.AdjClose != 0
}

// ApplyPartial overwrites each field of t with the corresponding field of
// patch when the patch value is set. The id is never altered, and volume is
// deliberately excluded from merging: it can only be set on creation or via
// a full update.
func (t *StockTrade) ApplyPartial(patch *StockTrade) {
	if patch.Security != "" {
		t.Security = patch.Security
	}
	if !patch.Date.IsZero() {
		t.Date = patch.Date
	}
	if patch.Open != 0 {
		t.Open = patch.Open
	}
	if patch.High != 0 {
		t.High = patch.High
	}
	if patch.Low != 0 {
		t.Low = patch.Low
	}
	if patch.Close != 0 {
		t.Close = patch.Close
	}
	if patch.AdjClose != 0 {
		t.AdjClose = patch.AdjClose
	}
}

func (t *StockTrade) String() string {
	return fmt.Sprintf("StockTrade{id=%d, security=%s, date=%s, open=%g, high=%g, low=%g, close=%g, volume=%g, adjClose=%g}",
		t.ID, t.Security, t.Date.Format(DateLayout), t.Open, t.High, t.Low, t.Close, t.Volume, t.AdjClose)
}
