package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DomainDTO is one entry of the getDomains "zones" or "popular" arrays.
type DomainDTO struct {
	Name  string `json:"name"`
	Cost  *Float `json:"cost"`
	Count *Int   `json:"count"`
}

// DomainsResponse represents the getDomains payload.
type DomainsResponse struct {
	Zones   []DomainDTO `json:"zones"`
	Popular []DomainDTO `json:"popular"`
}

// MailActivationDTO represents the buyMailActivation and
// reorderMailActivation payloads.
type MailActivationDTO struct {
	ID    Int    `json:"id"`
	Email string `json:"email"`
}

// HistoryEntryDTO is one entry of the getMailHistory list.
type HistoryEntryDTO struct {
	ID          Int     `json:"id"`
	Email       string  `json:"email"`
	Site        String  `json:"site"`
	Status      Int     `json:"status"`
	Value       String  `json:"value"`
	Cost        Float   `json:"cost"`
	Date        Time    `json:"date"`
	FullMessage *String `json:"full_message"`
}

// HistoryResponse represents the getMailHistory payload.
type HistoryResponse struct {
	List []HistoryEntryDTO `json:"list"`
}

// HistoryParams are the getMailHistory query parameters.
type HistoryParams struct {
	Page    int
	PerPage int
	Search  string
	Sort    string
}

// CheckResult is the interpreted checkMailActivation payload.
type CheckResult struct {
	// Received reports whether the payload carried a message.
	Received    bool
	FullMessage string
}

// The service is inconsistent about quoting numbers, so the scalar types
// below accept both JSON numbers and numeric strings.

// Int is an integer that may be encoded as a JSON number or string.
type Int int64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Int) UnmarshalJSON(data []byte) error {
	s, isNull := scalarText(data)
	if isNull || s == "" {
		*n = 0
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = Int(v)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s", data)
	}
	*n = Int(f)
	return nil
}

// Float is a decimal that may be encoded as a JSON number or string.
type Float float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(data []byte) error {
	s, isNull := scalarText(data)
	if isNull || s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	*f = Float(v)
	return nil
}

// String is a string that tolerates JSON numbers, booleans and null.
type String string

// UnmarshalJSON implements json.Unmarshaler.
func (s *String) UnmarshalJSON(data []byte) error {
	text, isNull := scalarText(data)
	if isNull {
		*s = ""
		return nil
	}
	*s = String(text)
	return nil
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Time is a timestamp encoded as a date string or unix seconds.
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	s, isNull := scalarText(data)
	if isNull || s == "" {
		t.Time = time.Time{}
		return nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.Unix(secs, 0).UTC()
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid time %s", data)
}

// scalarText returns the text of a JSON scalar, unquoting strings.
func scalarText(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", true
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return strings.TrimSpace(s), false
		}
	}
	return string(data), false
}

// Truthy reports whether a JSON value is truthy: false, null, zero, the
// empty string and empty arrays or objects are not. Any other string is,
// including "0" and "false".
func Truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}

	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	}
	return true
}
