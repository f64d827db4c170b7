package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	labelSerialPrefix = regexp.MustCompile(`^\d+_`)
	labelDiscSuffix   = regexp.MustCompile(`(?i)[_ ](S\d+_)?DIS[CK]_?\d+$`)
	labelTVSuffix     = regexp.MustCompile(`(?i)_TV$`)
	labelDigitsOnly   = regexp.MustCompile(`^\d+$`)
)

// DisplayLabel turns a raw volume label such as "THE_MATRIX_DISC_1" into a
// human readable title ("The Matrix"). Returns "" when the label carries no
// usable name.
func DisplayLabel(volumeLabel string) string {
	title := strings.TrimSpace(volumeLabel)
	if title == "" {
		return ""
	}
	title = labelSerialPrefix.ReplaceAllString(title, "")
	title = labelDiscSuffix.ReplaceAllString(title, "")
	title = labelTVSuffix.ReplaceAllString(title, "")

	var cleaned strings.Builder
	prevSpace := false
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title = strings.TrimSpace(cleaned.String())
	if title == "" || labelDigitsOnly.MatchString(title) {
		return ""
	}
	return cases.Title(language.Und).String(strings.ToLower(title))
}

// DiscName derives the sanitized disc identifier used for scratch and backup
// directory names. Falls back to fallback when the label is unusable.
func DiscName(volumeLabel, fallback string) string {
	name := SanitizeFileName(DisplayLabel(volumeLabel))
	if name == "" {
		name = SanitizeFileName(volumeLabel)
	}
	if name == "" {
		name = SanitizeFileName(fallback)
	}
	if name == "" {
		name = "disc"
	}
	return name
}
