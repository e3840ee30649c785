package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Address is the shipping/billing blob stored on an order. Every field
// defaults to "".
type Address struct {
	Name       FlexString `json:"name"`
	Email      FlexString `json:"email"`
	Phone      FlexString `json:"phone"`
	Address    FlexString `json:"address"`
	City       FlexString `json:"city"`
	PostalCode FlexString `json:"postal_code"`
	State      FlexString `json:"state"`
	Country    FlexString `json:"country"`
}

// ParseAddress never fails: an absent, null or malformed blob yields the
// zero Address.
func ParseAddress(raw []byte) Address {
	var a Address
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return a
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return Address{}
	}
	return a
}

// FlexString accepts a JSON string, number or bool and keeps it as text.
// null and objects decode to "".
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == 'n' || b[0] == '{' || b[0] == '[' {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(string(b))
	return nil
}

func (f FlexString) String() string { return string(f) }

func (f FlexString) Blank() bool { return strings.TrimSpace(string(f)) == "" }

// Int64 parses the value as an integer; ok is false when it is not one.
func (f FlexString) Int64() (int64, bool) {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || fl != float64(int64(fl)) {
			return 0, false
		}
		return int64(fl), true
	}
	return n, true
}
