package tts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedLanguage is returned for display names missing from Languages.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language pairs a target-language display name with its synthesis code.
type Language struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Languages lists the supported target languages in display order.
var Languages = []Language{
	{Name: "English", Code: "en"},
	{Name: "Spanish", Code: "es"},
	{Name: "French", Code: "fr"},
	{Name: "German", Code: "de"},
	{Name: "Portuguese", Code: "pt"},
	{Name: "Italian", Code: "it"},
	{Name: "Chinese (Simplified)", Code: "zh-CN"},
	{Name: "Japanese", Code: "ja"},
	{Name: "Korean", Code: "ko"},
	{Name: "Arabic", Code: "ar"},
	{Name: "Russian", Code: "ru"},
	{Name: "Hindi", Code: "hi"},
	{Name: "Nepali", Code: "ne"},
	{Name: "Bengali", Code: "bn"},
}

var languageCodes = func() map[string]string {
	m := make(map[string]string, len(Languages))
	for _, l := range Languages {
		m[strings.ToLower(l.Name)] = l.Code
	}
	return m
}()

// DefaultLanguage is preselected in the UI.
const DefaultLanguage = "Spanish"

// LanguageCode resolves a display name (case-insensitive) to its code.
func LanguageCode(name string) (string, error) {
	if code, ok := languageCodes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return code, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, name)
}
