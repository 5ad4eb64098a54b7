package recap

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Analysis is the fixed-shape object the model is instructed to return.
// Mood tolerates both a plain string and a list of mood words.
type Analysis struct {
	Summary      string       `json:"summary"`
	Mood         flexibleText `json:"mood"`
	Feeling      string       `json:"How You Have Been Feeling"`
	Contributing string       `json:"What Might Be Contributing"`
	Moments      string       `json:"Moments That Stood Out"`
	Cope         string       `json:"What Helped You Cope"`
	Remember     string       `json:"Remember"`
}

// flexibleText accepts either a JSON string or a list of strings, joining
// list items with commas.
type flexibleText string

func (f *flexibleText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleText(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = flexibleText(strings.Join(list, ", "))
		return nil
	}
	return fmt.Errorf("expected string or string list, got %s", string(data))
}

// parseStrategies are tried in order, short-circuiting on the first clean
// step whose output parses.
var parseStrategies = []struct {
	name  string
	clean func(string) string
}{
	{"direct", strings.TrimSpace},
	{"code_fence", stripCodeFence},
	{"brace_extract", extractBraces},
}

// parseAnalysis decodes the model's completion text. Failure of every
// strategy is fatal and carries both the raw and the last cleaned text so
// the bad output can be diagnosed from logs.
func parseAnalysis(raw string) (*Analysis, error) {
	var lastCleaned string
	for _, strat := range parseStrategies {
		cleaned := strat.clean(raw)
		if cleaned == "" {
			continue
		}
		lastCleaned = cleaned

		var analysis Analysis
		if err := json.Unmarshal([]byte(cleaned), &analysis); err == nil {
			return &analysis, nil
		}
	}
	return nil, fmt.Errorf("completion is not valid JSON; raw=%q cleaned=%q", raw, lastCleaned)
}

// stripCodeFence removes a Markdown fence wrapper, with or without a
// language tag.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractBraces cuts the text down to the outermost brace pair, salvaging a
// JSON object embedded in surrounding prose.
func extractBraces(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
