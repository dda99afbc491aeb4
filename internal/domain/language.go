package domain

import (
	"strings"

	"golang.org/x/text/language"
)

// AutoLanguage asks a provider to detect the source language itself.
const AutoLanguage = "auto"

// CanonicalLanguage normalizes a user supplied language code ("ZH-cn" -> "zh-CN").
// Codes x/text cannot parse are returned trimmed but otherwise untouched.
func CanonicalLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if strings.EqualFold(code, AutoLanguage) {
		return AutoLanguage
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	return tag.String()
}

// BaseLanguage returns the primary subtag of code ("pt-BR" -> "pt").
func BaseLanguage(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	base, _ := tag.Base()
	return base.String()
}
