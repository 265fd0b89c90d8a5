package contactform

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/timtanatarov/daydi-spa/internal/models"
)

// Validation messages keyed by field in Form.Validate.
const (
	MsgInvalidEmail = "invalid email"
	MsgShortHandle  = "username is too short"
	MsgInvalidPhone = "invalid phone number"
	MsgShortName    = "name is too short"
)

// Form is the state of the contact form.
type Form struct {
	Name   string
	Email  string
	Handle string
	Phone  PhoneField
}

// SetEmail stores the sanitized form of raw.
func (f *Form) SetEmail(raw string) { f.Email = SanitizeEmail(raw) }

// SetHandle stores raw without leading '@'.
func (f *Form) SetHandle(raw string) { f.Handle = NormalizeHandle(raw) }

func (f *Form) SetName(raw string) { f.Name = raw }

// Validate returns a message per invalid field; an empty map means the form
// can be submitted.
func (f *Form) Validate() map[string]string {
	errs := make(map[string]string)
	if !ValidEmail(f.Email) {
		errs["email"] = MsgInvalidEmail
	}
	if h := NormalizeHandle(f.Handle); h != "" && utf8.RuneCountInString(h) < 2 {
		errs["telegram"] = MsgShortHandle
	}
	if d := f.Phone.Digits(); d != "" && len(d) != PhoneDigits {
		errs["phone"] = MsgInvalidPhone
	}
	if utf8.RuneCountInString(NormalizeName(f.Name)) < 2 {
		errs["name"] = MsgShortName
	}
	return errs
}

// Payload returns the request body sent to the contact endpoint.
func (f *Form) Payload() models.ContactRequest {
	return models.ContactRequest{
		Name:     NormalizeName(f.Name),
		Email:    f.Email,
		Phone:    f.Phone.Value(),
		Telegram: SubmitHandle(f.Handle),
	}
}

// ValidEmail reports whether s is a bare address with a dotted domain.
func ValidEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	domain := s[at+1:]
	return at > 0 && strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
