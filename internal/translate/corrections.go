package translate

import (
	"strings"

	"github.com/dkeye/Parley/internal/domain"
)

// corrections fixes recurring machine-translation mistakes per target language.
var corrections = map[string][]struct{ wrong, right string }{
	"en": {
		{"comment ça va tu", "how are you"},
		{"comment vas-tu", "how are you"},
		{"le le", "the"},
		{"la la", "the"},
	},
	"es": {
		{"el el", "el"},
		{"la la", "la"},
		{"como estas tu", "cómo estás"},
	},
	"de": {
		{"wie geht es du", "wie geht es dir"},
		{"der der", "der"},
		{"die die", "die"},
	},
}

func Correct(text, target string) string {
	for _, c := range corrections[domain.BaseLanguage(target)] {
		text = strings.ReplaceAll(text, c.wrong, c.right)
	}
	return text
}
