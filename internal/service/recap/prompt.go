package recap

import (
	"fmt"
	"strings"

	"github.com/mindmap-app/mindmap-api/internal/models"
)

const systemPrompt = `You are a reflective journaling companion. You write warm, grounded weekly recaps addressed to the journal's author in strict second person ("you", "your"). Never refer to yourself and never use first-person pronouns. Respond with a single JSON object and nothing else.`

const promptTemplate = `Below are the summaries of journal entries written between %s and %s, newest first.

%s

Write a recap of this week in strict second person, without self-referential pronouns. Respond with exactly this JSON shape:

{
  "summary": "a short narrative recap of the week",
  "mood": "comma-separated mood words that describe the week",
  "How You Have Been Feeling": "...",
  "What Might Be Contributing": "...",
  "Moments That Stood Out": "...",
  "What Helped You Cope": "...",
  "Remember": "one gentle thing worth remembering"
}`

// buildAnalysisData flattens the gathered summaries into the prompt body,
// newest first, with per-entry date and kind markers.
func buildAnalysisData(summaries []models.JournalSummary) string {
	var b strings.Builder
	for i, s := range summaries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s, %s entry] %s", s.DateCreated.Format(dateLayout), s.JournalType, s.Summary)
	}
	return b.String()
}

func buildPrompt(data string, window Window) string {
	return fmt.Sprintf(promptTemplate, window.Start.Format(dateLayout), window.End.Format(dateLayout), data)
}
