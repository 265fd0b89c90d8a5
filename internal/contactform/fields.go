// Package contactform shapes and validates contact form input before it is
// submitted to the contact endpoint.
package contactform

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// PhoneDigits is the number of significant digits kept for a phone number.
const PhoneDigits = 10

// PhonePrefix is the country prefix shown in the mask and sent on submit.
const PhonePrefix = "+7"

// SanitizeEmail lower-cases raw, drops whitespace and characters outside
// [a-z0-9@._%+-], and keeps only the first '@'.
func SanitizeEmail(raw string) string {
	var b strings.Builder
	seenAt := false
	for _, r := range strings.ToLower(raw) {
		switch {
		case r == '@':
			if seenAt {
				continue
			}
			seenAt = true
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case strings.ContainsRune("._%+-", r):
		default:
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PhoneField holds the significant digits of a phone number as typed into a
// masked input.
type PhoneField struct {
	digits  string
	focused bool
}

// Input applies the raw text of the input after an edit. deleteBackward
// reports a backspace; when it removed only a mask separator the last
// stored digit is dropped instead.
func (p *PhoneField) Input(raw string, deleteBackward bool) {
	digits := onlyDigits(raw)
	if strings.HasPrefix(strings.TrimSpace(raw), PhonePrefix) {
		digits = strings.TrimPrefix(digits, "7")
	}
	if len(digits) > PhoneDigits {
		digits = digits[len(digits)-PhoneDigits:]
	}
	if deleteBackward && digits == p.digits && p.digits != "" {
		digits = p.digits[:len(p.digits)-1]
	}
	p.digits = digits
}

// Set replaces the stored digits.
func (p *PhoneField) Set(digits string) {
	p.digits = ""
	p.Input(digits, false)
}

func (p *PhoneField) Digits() string { return p.digits }

func (p *PhoneField) Focus() { p.focused = true }

// Blur leaves the mask visible while any digit is stored.
func (p *PhoneField) Blur() {
	if p.digits == "" {
		p.focused = false
	}
}

// Display returns the masked text shown in the input.
func (p *PhoneField) Display() string {
	if !p.focused && p.digits == "" {
		return ""
	}
	return FormatPhone(p.digits)
}

// Value returns the number as submitted, or "" when no digit is stored.
func (p *PhoneField) Value() string {
	if p.digits == "" {
		return ""
	}
	return PhonePrefix + p.digits
}

// FormatPhone renders up to ten digits as +7 (XXX) XXX-XX-XX, emitting only
// the groups that have started.
func FormatPhone(digits string) string {
	d := onlyDigits(digits)
	if len(d) > PhoneDigits {
		d = d[:PhoneDigits]
	}
	group := func(from, to int) string {
		if len(d) <= from {
			return ""
		}
		return d[from:min(to, len(d))]
	}

	var b strings.Builder
	b.WriteString(PhonePrefix + " (")
	b.WriteString(group(0, 3))
	if len(d) >= 3 {
		b.WriteString(")")
	}
	if g := group(3, 6); g != "" {
		b.WriteString(" " + g)
	}
	if g := group(6, 8); g != "" {
		b.WriteString("-" + g)
	}
	if g := group(8, 10); g != "" {
		b.WriteString("-" + g)
	}
	return b.String()
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeHandle strips every leading '@' from a messaging handle.
func NormalizeHandle(raw string) string {
	return strings.TrimLeft(strings.TrimSpace(raw), "@")
}

// SubmitHandle returns the handle with exactly one leading '@', or "".
func SubmitHandle(raw string) string {
	h := NormalizeHandle(raw)
	if h == "" {
		return ""
	}
	return "@" + h
}

var namePolicy = bluemonday.StrictPolicy()

// NormalizeName trims the name and strips any markup from it.
func NormalizeName(raw string) string {
	clean := html.UnescapeString(namePolicy.Sanitize(raw))
	return strings.TrimFunc(clean, unicode.IsSpace)
}
