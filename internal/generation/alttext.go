package generation

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AltText describes an image from the spec id that requested it and the
// identity name, e.g. "Homepage Welcome image for Riverside Borough Council".
func AltText(specID, identityName string) string {
	words := strings.FieldsFunc(specID, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == ' '
	})
	subject := cases.Title(language.BritishEnglish).String(strings.Join(words, " "))
	name := strings.TrimSpace(identityName)
	switch {
	case subject == "" && name == "":
		return "Generated image"
	case subject == "":
		return "Image for " + name
	case name == "":
		return subject + " image"
	default:
		return subject + " image for " + name
	}
}
