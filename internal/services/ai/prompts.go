package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/benvon/productivity-assistant/internal/models"
)

const promptTimeLayout = "2006-01-02 15:04:05 (Monday)"

// buildParseSystemPrompt anchors the extraction instructions to now so that
// relative expressions resolve against the real current time.
func buildParseSystemPrompt(now time.Time) string {
	today := now.Format("2006-01-02")
	return fmt.Sprintf(`You are a productivity assistant. Extract structured items from natural language.

Current datetime: %s

Rules:
1. Respond with a single JSON object and nothing else.
2. Each item has a type: "task" (something to do), "reminder" (a time alert, "remind me", "don't forget") or "note" (information, "note that", "FYI").
3. Extract title, description, datetime, priority and tags.

Datetime:
- Format YYYY-MM-DDTHH:MM:SS, or null when the input has no date or time.
- No explicit date means today (%s). No explicit time means 09:00.
- "tonight" and "this evening" mean today at 20:00.
- "tomorrow" is the next day, "next week" is 7 days later, a weekday name is its next occurrence.
- 12-hour times convert to 24-hour: 3pm is 15:00, 5:30am is 05:30, noon is 12:00, midnight is 00:00.

Priority:
- "urgent", "important", "asap", "critical", "deadline" mean high.
- "later", "sometime", "eventually", "maybe" mean low.
- Otherwise medium.

Format:
{"items": [{"type": "task", "title": "short title", "description": "details or null", "datetime": "%sT09:00:00 or null", "priority": "medium", "tags": ["tag"], "completed": false}]}

Several things in the input mean several objects in "items".`, now.Format(promptTimeLayout), today, today)
}

func buildParseUserPrompt(text string) string {
	return fmt.Sprintf("Input: %q\n\nReturn only the JSON object.", text)
}

func buildEnrichPrompt(now time.Time, rec models.ExternalRecord, snippet string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are analyzing a %s message to find actionable items.\n\n", rec.Source)
	fmt.Fprintf(&b, "Current datetime: %s\n\n", now.Format(promptTimeLayout))
	fmt.Fprintf(&b, "Subject: %s\n", rec.Subject)
	if rec.Sender != "" {
		fmt.Fprintf(&b, "From: %s\n", rec.Sender)
	}
	fmt.Fprintf(&b, "Snippet: %s\n\n", snippet)
	b.WriteString(`Decide whether the message is actionable (a meeting, deadline, seminar or request).
If it is, extract:
- type: "task" for something to do, "reminder" for a meeting or event, "note" for information
- title: a brief, clear summary
- description: the key details
- datetime: when it is due or scheduled, YYYY-MM-DDTHH:MM:SS or null
- priority: "low", "medium" or "high" based on urgency

Return only JSON:
{"relevant": true, "type": "task", "title": "...", "description": "...", "datetime": null, "priority": "medium"}

If the message is spam, a newsletter or not actionable return:
{"relevant": false}`)
	return b.String()
}
