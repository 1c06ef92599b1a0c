package ai

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/productivity-assistant/internal/models"
)

const (
	// DefaultHour is used when a date is known but no time is given
	DefaultHour = 9
	// EveningHour is used for "tonight" and "this evening"
	EveningHour = 20
)

var (
	highPriorityPattern = regexp.MustCompile(`\b(urgent|urgently|important|asap|critical|deadline)\b`)
	lowPriorityPattern  = regexp.MustCompile(`\b(later|sometime|someday|eventually|maybe)\b`)

	reminderPattern = regexp.MustCompile(`\b(remind me|don'?t forget|do not forget)\b`)
	notePattern     = regexp.MustCompile(`(\bnote that\b|\bnote:|\bfyi\b|\bfor your information\b)`)
	taskPattern     = regexp.MustCompile(`\b(buy|call|email|send|submit|finish|complete|write|pay|book|schedule|clean|fix|prepare|review|read|pick up|order|visit|check|update|plan|file|renew|cancel|return|reply|text|draft|organize|register|apply|do|make|get)\b`)

	isoDatePattern  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	weekdayPattern  = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	meridiemPattern = regexp.MustCompile(`\b(\d{1,2})(?::([0-5]\d))?\s*(a\.?m\.?|p\.?m\.?)(?:[^a-z]|$)`)
	clockPattern    = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	bareAtPattern   = regexp.MustCompile(`\bat\s+(\d{1,2})\b`)
	eveningPattern  = regexp.MustCompile(`\b(tonight|this evening|evening)\b`)
	// afternoonPattern shifts bare hours to the afternoon but keeps the default hour
	afternoonPattern = regexp.MustCompile(`\bafternoon\b`)
	noonPattern      = regexp.MustCompile(`\bnoon\b`)
	midnightPattern  = regexp.MustCompile(`\bmidnight\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// InferPriority returns the priority signalled by urgency or deferral words.
// ok is false when the text carries no priority cue, in which case medium is returned.
func InferPriority(text string) (p models.Priority, ok bool) {
	lower := strings.ToLower(text)
	switch {
	case highPriorityPattern.MatchString(lower):
		return models.PriorityHigh, true
	case lowPriorityPattern.MatchString(lower):
		return models.PriorityLow, true
	default:
		return models.PriorityMedium, false
	}
}

// InferType returns the item type signalled by the phrasing of text.
// ok is false when no cue is present.
func InferType(text string) (t models.ItemType, ok bool) {
	lower := strings.ToLower(text)
	switch {
	case reminderPattern.MatchString(lower):
		return models.ItemTypeReminder, true
	case notePattern.MatchString(lower):
		return models.ItemTypeNote, true
	case taskPattern.MatchString(lower):
		return models.ItemTypeTask, true
	default:
		return "", false
	}
}

// ResolveDateTime resolves date and time expressions in text against now.
// Missing dates default to now's date and missing times to 09:00 (20:00 for
// evening expressions). ok is false when text has no temporal cue at all.
func ResolveDateTime(text string, now time.Time) (value string, ok bool) {
	lower := strings.ToLower(text)
	evening := eveningPattern.MatchString(lower)
	pm := evening || afternoonPattern.MatchString(lower)

	date, dateFound := resolveDate(lower, now)
	hour, minute, timeFound := resolveTime(lower, pm)
	if !dateFound && !timeFound && !evening {
		return "", false
	}
	if !timeFound {
		hour, minute = DefaultHour, 0
		if evening {
			hour = EveningHour
		}
	}

	resolved := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, now.Location())
	return resolved.Format(models.DateTimeLayout), true
}

func resolveDate(lower string, now time.Time) (time.Time, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if m := isoDatePattern.FindStringSubmatch(lower); m != nil {
		if d, err := time.ParseInLocation("2006-01-02", m[0], now.Location()); err == nil {
			return d, true
		}
	}

	switch {
	case strings.Contains(lower, "day after tomorrow"):
		return today.AddDate(0, 0, 2), true
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1), true
	case strings.Contains(lower, "tonight"), strings.Contains(lower, "this evening"),
		strings.Contains(lower, "this afternoon"), strings.Contains(lower, "today"):
		return today, true
	case strings.Contains(lower, "next week"):
		return today.AddDate(0, 0, 7), true
	}

	if m := weekdayPattern.FindStringSubmatch(lower); m != nil {
		delta := (int(weekdays[m[1]]) - int(today.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return today.AddDate(0, 0, delta), true
	}

	return today, false
}

// resolveTime reads a stated time. pm moves bare hours before 12 into the
// afternoon or evening.
func resolveTime(lower string, pm bool) (hour, minute int, ok bool) {
	if m := meridiemPattern.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h >= 1 && h <= 12 {
			mins := 0
			if m[2] != "" {
				mins, _ = strconv.Atoi(m[2])
			}
			return to24Hour(h, strings.HasPrefix(m[3], "p")), mins, true
		}
	}

	switch {
	case noonPattern.MatchString(lower):
		return 12, 0, true
	case midnightPattern.MatchString(lower):
		return 0, 0, true
	}

	if m := clockPattern.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		if pm && h < 12 {
			h += 12
		}
		return h, mins, true
	}

	if m := bareAtPattern.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h <= 23 {
			if pm && h < 12 {
				h += 12
			}
			return h, 0, true
		}
	}

	return 0, 0, false
}

// to24Hour converts a 12-hour clock value. 12am is midnight and 12pm is noon.
func to24Hour(h int, pm bool) int {
	h %= 12
	if pm {
		h += 12
	}
	return h
}

// ApplyInference overlays the deterministic cues found in the source text on
// model-produced drafts. Cues win over model values; without a cue the model
// value is kept. A single draft is resolved against the whole input, several
// drafts each against their own title and description.
func ApplyInference(drafts []models.Draft, input string, now time.Time) []models.Draft {
	for i := range drafts {
		text := input
		if len(drafts) > 1 {
			text = draftText(drafts[i])
		}

		if p, ok := InferPriority(text); ok {
			drafts[i].Priority = string(p)
		}
		if t, ok := InferType(text); ok {
			drafts[i].Type = string(t)
		}
		if dt, ok := ResolveDateTime(text, now); ok {
			drafts[i].Datetime = &dt
		}
	}
	return drafts
}

func draftText(d models.Draft) string {
	if d.Description == nil {
		return d.Title
	}
	return d.Title + " " + *d.Description
}
