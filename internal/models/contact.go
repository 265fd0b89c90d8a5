package models

import (
	"strings"
	"time"
)

// TimestampLayout is the layout written to column A. The spreadsheet parses it
// as a date only when no zone or offset marker is present.
const TimestampLayout = "2006-01-02 15:04"

// ContactRequest is the JSON body accepted by POST /contact and produced by
// the contact form.
type ContactRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Handle   string `json:"handle,omitempty"`
}

// HandleValue returns the messaging handle, preferring the telegram key.
func (r ContactRequest) HandleValue() string {
	if r.Telegram != "" {
		return r.Telegram
	}
	return r.Handle
}

// HasContact reports whether at least one contact channel is set.
func (r ContactRequest) HasContact() bool {
	return r.Email != "" || r.Phone != "" || r.HandleValue() != ""
}

// Contact is one submission as stored in the sheet.
type Contact struct {
	CreatedAt string
	Name      string
	Email     string
	Phone     string
	Handle    string
}

// NewContact builds the record for req stamped at now.
func NewContact(req ContactRequest, now time.Time) Contact {
	return Contact{
		CreatedAt: FormatTimestamp(now),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Handle:    req.HandleValue(),
	}
}

// Row returns the record in header column order.
func (c Contact) Row() [5]string {
	return [5]string{c.CreatedAt, c.Name, c.Email, c.Phone, c.Handle}
}

// FormatTimestamp renders t in its own location as YYYY-MM-DD HH:MM.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
