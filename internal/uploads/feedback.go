package uploads

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Feedback is the structured review payload. JSON keys stay snake_case to
// match the stored jsonb shape.
type Feedback struct {
	OverallScore        int             `json:"overall_score"`
	Summary             string          `json:"summary"`
	Strengths           []string        `json:"strengths"`
	AreasForImprovement []string        `json:"areas_for_improvement"`
	SpecificSuggestions []Suggestion    `json:"specific_suggestions"`
	FormattingFeedback  string          `json:"formatting_feedback"`
	KeywordAnalysis     KeywordAnalysis `json:"keyword_analysis"`
}

type Suggestion struct {
	Section    string `json:"section"`
	Suggestion string `json:"suggestion"`
	Impact     string `json:"impact"`
}

type KeywordAnalysis struct {
	MissingKeywords    []string `json:"missing_keywords"`
	SuggestedAdditions []string `json:"suggested_additions"`
}

var errNoJSONFound = errors.New("no valid JSON found in model response")

// ParseFeedback parses raw model output into Feedback. It tries the raw text
// as-is, then with markdown fences stripped, then the first balanced object
// between the outermost braces.
func ParseFeedback(raw string) (Feedback, error) {
	var fb Feedback
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Feedback{}, errNoJSONFound
	}

	if err := json.Unmarshal([]byte(trimmed), &fb); err == nil {
		return fb, nil
	}

	stripped := stripFences(trimmed)
	if err := json.Unmarshal([]byte(stripped), &fb); err == nil {
		return fb, nil
	}

	block, ok := extractObject(stripped)
	if !ok {
		return Feedback{}, errNoJSONFound
	}
	if err := json.Unmarshal([]byte(block), &fb); err != nil {
		return Feedback{}, fmt.Errorf("parse feedback JSON: %w", err)
	}
	return fb, nil
}

// Validate checks the minimal feedback contract.
func (f Feedback) Validate() error {
	if f.OverallScore < 1 || f.OverallScore > 10 {
		return fmt.Errorf("feedback schema: overall_score %d out of range", f.OverallScore)
	}
	if strings.TrimSpace(f.Summary) == "" {
		return errors.New("feedback schema: summary is empty")
	}
	return nil
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func extractObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
