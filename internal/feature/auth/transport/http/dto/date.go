package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ErrInvalidDate is returned when dateOfBirth is neither a date nor a timestamp.
var ErrInvalidDate = errors.New("dateOfBirth must be YYYY-MM-DD or an RFC 3339 timestamp")

// ParseOptionalDate decodes a raw dateOfBirth field.
// present is false when the field was omitted. A null or empty string yields
// (nil, true, nil), which callers treat as "clear the date".
func ParseOptionalDate(raw json.RawMessage) (t *time.Time, present bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(raw, []byte("null")) {
		return nil, true, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, true, ErrInvalidDate
	}
	if s == "" {
		return nil, true, nil
	}

	var d openapi_types.Date
	if err := d.UnmarshalJSON(raw); err == nil {
		return &d.Time, true, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, true, ErrInvalidDate
	}
	return &ts, true, nil
}
