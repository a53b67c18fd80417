package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	tag     string // OpenSubtitles query tag (lowercase)
	code3   string // ISO 639-2/B code Stremio expects
	display string
}

// Regional variants come first so lookup prefers them over the base language.
var languages = []entry{
	{"pt-br", "pob", "Portuguese (Brazil)"},
	{"zh-cn", "chi", "Chinese (Simplified)"},
	{"zh-tw", "zht", "Chinese (Traditional)"},
	{"en", "eng", "English"},
	{"es", "spa", "Spanish"},
	{"fr", "fre", "French"},
	{"de", "ger", "German"},
	{"it", "ita", "Italian"},
	{"pt", "por", "Portuguese"},
	{"ja", "jpn", "Japanese"},
	{"ko", "kor", "Korean"},
	{"ru", "rus", "Russian"},
	{"ar", "ara", "Arabic"},
	{"nl", "dut", "Dutch"},
	{"pl", "pol", "Polish"},
	{"sv", "swe", "Swedish"},
	{"tr", "tur", "Turkish"},
	{"el", "ell", "Greek"},
	{"he", "heb", "Hebrew"},
	{"cs", "cze", "Czech"},
	{"hu", "hun", "Hungarian"},
	{"ro", "rum", "Romanian"},
}

var byTag = func() map[string]*entry {
	m := make(map[string]*entry, len(languages))
	for i := range languages {
		m[languages[i].tag] = &languages[i]
	}
	return m
}()

// Normalize canonicalizes a user-supplied language tag into the lowercase
// form OpenSubtitles expects ("PT_br" -> "pt-br"). Unparseable input is
// lowercased and passed through.
func Normalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(tag, "_", "-")))
	if tag == "" {
		return ""
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	return strings.ToLower(parsed.String())
}

// ToStremioCode converts an OpenSubtitles language tag into the ISO 639-2/B
// code used in Stremio subtitle entries. Unknown tags fall back to "und".
func ToStremioCode(tag string) string {
	tag = Normalize(tag)
	if tag == "" {
		return "und"
	}
	if e, ok := byTag[tag]; ok {
		return e.code3
	}
	// Strip the region and retry with the base language.
	if idx := strings.IndexByte(tag, '-'); idx > 0 {
		if e, ok := byTag[tag[:idx]]; ok {
			return e.code3
		}
	}
	if len(tag) == 3 {
		return tag
	}
	return "und"
}

// DisplayName returns a human-readable name for a language tag.
func DisplayName(tag string) string {
	tag = Normalize(tag)
	if tag == "" {
		return "Unknown"
	}
	if e, ok := byTag[tag]; ok {
		return e.display
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return strings.ToUpper(tag)
	}
	if name := display.English.Tags().Name(parsed); name != "" {
		return name
	}
	return strings.ToUpper(tag)
}
