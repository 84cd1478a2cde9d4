package llm

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/en.txt
	promptEN string
	//go:embed prompts/fr.txt
	promptFR string
)

// PromptTemplate returns the feedback prompt template for a language and
// whether the language was recognized.
func PromptTemplate(lang string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "fr":
		return promptFR, true
	case "en":
		return promptEN, true
	default:
		return promptEN, false
	}
}

// BuildFeedbackPrompt renders the feedback prompt for the given CV text.
func BuildFeedbackPrompt(lang string, cvText string) string {
	template, _ := PromptTemplate(lang)
	return strings.ReplaceAll(template, "{{CV_TEXT}}", cvText)
}
