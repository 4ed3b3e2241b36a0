package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Decimal is a monetary amount as the backend sends it. Laravel serializes
// decimal columns as strings ("25000.00") but some endpoints return numbers,
// so both forms are accepted.
type Decimal string

func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Decimal(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = Decimal(n.String())
	return nil
}

// Float returns the amount as float64, or 0 when it cannot be parsed.
func (d Decimal) Float() float64 {
	f, err := strconv.ParseFloat(string(d), 64)
	if err != nil {
		return 0
	}
	return f
}

// DecimalFromFloat formats f with two decimal places.
func DecimalFromFloat(f float64) Decimal {
	return Decimal(strconv.FormatFloat(f, 'f', 2, 64))
}

func (d Decimal) String() string {
	return string(d)
}
