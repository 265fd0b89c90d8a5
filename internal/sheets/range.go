package sheets

import (
	"regexp"
	"strings"
)

// DefaultRange is used when neither the caller nor the configuration names a
// target range.
const DefaultRange = "A1"

// HeaderRange covers the five header cells of row 1.
const HeaderRange = "A1:E1"

// cellOrRange matches A1 cells and ranges. Columns stop at three letters (XFD
// is the last column) so titles like Sheet1 are not read as cells.
var cellOrRange = regexp.MustCompile(`^[A-Za-z]{1,3}\d+(?::[A-Za-z]{1,3}\d+)?$`)

var plainTitle = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Ref is a parsed "Title!A1:B2" style reference. Either part may be empty.
type Ref struct {
	Title string
	Range string
}

// ParseRef splits s into an optional sheet title and an optional cell range.
//
// "Sheet1!A1" has title Sheet1 and range A1. A bare cell or cell range such as
// "A1" or "A1:E1" has no title. Anything else is taken as a sheet title with
// no explicit range.
func ParseRef(s string) Ref {
	if s == "" {
		return Ref{}
	}
	if i := strings.Index(s, "!"); i >= 0 {
		return Ref{Title: s[:i], Range: s[i+1:]}
	}
	if cellOrRange.MatchString(s) {
		return Ref{Range: s}
	}
	return Ref{Title: s}
}

// SheetTitle returns the sheet title carried by s, or "" when s names no sheet.
func SheetTitle(s string) string {
	return ParseRef(s).Title
}

// Qualify prefixes rng with title, quoting titles that A1 notation would
// otherwise misread.
func Qualify(title, rng string) string {
	if title == "" {
		return rng
	}
	if !plainTitle.MatchString(title) && !isQuoted(title) {
		title = "'" + strings.ReplaceAll(title, "'", "''") + "'"
	}
	return title + "!" + rng
}

// Unquote strips A1 quoting from a sheet title.
func Unquote(title string) string {
	if !isQuoted(title) {
		return title
	}
	return strings.ReplaceAll(title[1:len(title)-1], "''", "'")
}

func isQuoted(title string) bool {
	return len(title) >= 2 && title[0] == '\'' && title[len(title)-1] == '\''
}

// ResolveRange picks the effective target: explicit, then configured, then
// DefaultRange. Whitespace-only values count as unset.
func ResolveRange(explicit, configured string) string {
	if r := strings.TrimSpace(explicit); r != "" {
		return r
	}
	if r := strings.TrimSpace(configured); r != "" {
		return r
	}
	return DefaultRange
}
