// Package datefmt converts custom date patterns such as "yyyy_MM_dd" into
// Go reference-time layouts.
//
// Supported tokens: yyyy yy MMMM MMM MM M dddd ddd dd d HH hh h mm m ss s
// fff ff f tt zzz. Text inside single or double quotes and characters escaped
// with a backslash are copied literally; every other character is literal too.
package datefmt

import (
	"fmt"
	"strings"
	"time"
)

// Default is the sortable calendar-day pattern used for blob names.
const Default = "yyyy_MM_dd"

type token struct {
	pattern string
	layout  string
}

// Longest tokens first so "yyyy" wins over "yy" and "MMMM" over "MM".
var tokens = []token{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dddd", "Monday"},
	{"ddd", "Mon"},
	{"dd", "02"},
	{"d", "2"},
	{"HH", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"fff", "000"},
	{"ff", "00"},
	{"f", "0"},
	{"tt", "PM"},
	{"zzz", "-07:00"},
}

// Layout translates pattern into a Go time layout.
// It fails on unsupported tokens (currently a bare "H"), unterminated quotes
// and patterns whose translated tokens Go would read back differently once
// joined, such as "Ms" ("15" is the hour) or "ssfff" (fractions need a
// leading "." or ",").
func Layout(pattern string) (string, error) {
	var parts []part
	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch c {
		case '\'', '"':
			end := strings.IndexByte(pattern[i+1:], c)
			if end < 0 {
				return "", fmt.Errorf("datefmt: unterminated quote in %q", pattern)
			}
			if err := checkLiteral(pattern[i+1 : i+1+end]); err != nil {
				return "", fmt.Errorf("datefmt: %q: %w", pattern, err)
			}
			parts = append(parts, part{text: pattern[i+1 : i+1+end]})
			i += end + 2
			continue
		case '\\':
			if i+1 >= len(pattern) {
				return "", fmt.Errorf("datefmt: trailing escape in %q", pattern)
			}
			if err := checkLiteral(pattern[i+1 : i+2]); err != nil {
				return "", fmt.Errorf("datefmt: %q: %w", pattern, err)
			}
			parts = append(parts, part{text: pattern[i+1 : i+2]})
			i += 2
			continue
		}
		if t, ok := matchToken(pattern[i:]); ok {
			parts = append(parts, part{text: t.layout, token: true})
			i += len(t.pattern)
			continue
		}
		if c == 'H' {
			return "", fmt.Errorf("datefmt: token %q is not supported in %q", "H", pattern)
		}
		if err := checkLiteral(pattern[i : i+1]); err != nil {
			return "", fmt.Errorf("datefmt: %q: %w", pattern, err)
		}
		parts = append(parts, part{text: pattern[i : i+1]})
		i++
	}

	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.text)
	}
	layout := b.String()
	for _, ref := range references {
		if got, want := ref.Format(layout), render(ref, parts); got != want {
			return "", fmt.Errorf("datefmt: %q: layout %q renders %q instead of %q", pattern, layout, got, want)
		}
	}
	return layout, nil
}

// part is a translated token or a literal run.
type part struct {
	text  string
	token bool
}

// references have a distinct value in every field so a misread layout
// element shows up in the rendered text.
var references = []time.Time{
	time.Date(2009, time.November, 23, 13, 47, 58, 123456789, time.FixedZone("", 5*3600+30*60)),
	time.Date(1987, time.April, 6, 8, 9, 7, 5000000, time.FixedZone("", -3*3600)),
}

func matchToken(s string) (token, bool) {
	for _, t := range tokens {
		if strings.HasPrefix(s, t.pattern) {
			return t, true
		}
	}
	return token{}, false
}

// render formats every token on its own, which is what the pattern means.
func render(t time.Time, parts []part) string {
	var b strings.Builder
	for _, p := range parts {
		switch {
		case !p.token:
			b.WriteString(p.text)
		case strings.Trim(p.text, "0") == "":
			// Go only formats fractions behind a separator.
			b.WriteString(t.Format("." + p.text)[1:])
		default:
			b.WriteString(t.Format(p.text))
		}
	}
	return b.String()
}

// Format renders t with pattern.
func Format(t time.Time, pattern string) (string, error) {
	l, err := Layout(pattern)
	if err != nil {
		return "", err
	}
	return t.Format(l), nil
}

// checkLiteral rejects literals that time.Format would read back as a
// layout element, which Go offers no way to escape.
func checkLiteral(s string) error {
	if strings.ContainsAny(s, "0123456789") {
		return fmt.Errorf("literal %q contains digits", s)
	}
	for _, elem := range []string{"Jan", "Mon", "MST", "PM", "pm", "-07", "Z07"} {
		if strings.Contains(s, elem) {
			return fmt.Errorf("literal %q collides with layout element %q", s, elem)
		}
	}
	return nil
}
