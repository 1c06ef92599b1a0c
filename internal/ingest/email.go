package ingest

import (
	"context"
	"strings"

	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/models"
	"go.uber.org/zap"
)

const (
	emailPrefix = "email"
	// MaxEmailTitleChars bounds a provisional title taken from the subject
	MaxEmailTitleChars = 100
	// MaxEmailSnippetChars bounds a provisional description taken from the snippet
	MaxEmailSnippetChars = 300
)

// EmailMessage is an email in the shape of a Gmail metadata listing
type EmailMessage struct {
	ID      RecordID `json:"id"`
	Subject string   `json:"subject"`
	From    string   `json:"from"`
	Snippet string   `json:"snippet"`
	Date    string   `json:"date,omitempty"`
}

// RecordID returns the upstream message id
func (m EmailMessage) RecordID() string {
	return string(m.ID)
}

// ExternalRecord returns the view of the message handed to enrichment
func (m EmailMessage) ExternalRecord() models.ExternalRecord {
	return models.ExternalRecord{
		Source:   models.SourceEmail,
		RecordID: m.RecordID(),
		Subject:  m.Subject,
		Snippet:  m.Snippet,
		Sender:   m.From,
	}
}

var _ Enrichable = EmailMessage{}

// EmailSource turns email messages into provisional drafts that must be enriched before persistence
type EmailSource struct {
	loader Loader
	logger *zap.Logger
}

var _ Source = (*EmailSource)(nil)

// NewEmailSource creates an email source reading through loader
func NewEmailSource(loader Loader, log *zap.Logger) *EmailSource {
	return &EmailSource{loader: loader, logger: logger.OrNop(log)}
}

// Name returns models.SourceEmail
func (s *EmailSource) Name() models.Source {
	return models.SourceEmail
}

// Fetch loads the raw messages
func (s *EmailSource) Fetch(ctx context.Context) ([]Record, error) {
	data, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	messages, err := decodeRecords[EmailMessage](data)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(messages))
	for _, m := range messages {
		records = append(records, m)
	}
	return records, nil
}

// ToDrafts builds provisional drafts, keeping each raw message for enrichment
func (s *EmailSource) ToDrafts(records []Record) []Pending {
	out := make([]Pending, 0, len(records))
	for _, rec := range records {
		msg, ok := rec.(EmailMessage)
		if !ok {
			continue
		}
		if msg.RecordID() == "" {
			s.logger.Warn("email_message_without_id", zap.String("subject", logger.Preview(msg.Subject)))
			continue
		}
		out = append(out, Pending{Draft: emailDraft(msg), Raw: msg})
	}
	return out
}

func emailDraft(msg EmailMessage) models.Draft {
	itemType, priority := classifySubject(msg.Subject)
	d := models.Draft{
		Type:       string(itemType),
		Title:      truncateRunes(msg.Subject, MaxEmailTitleChars),
		Priority:   string(priority),
		Tags:       models.Tags{"email"},
		Source:     string(models.SourceEmail),
		ExternalID: models.StringPtr(ExternalID(emailPrefix, msg.RecordID())),
	}
	if snippet := truncateRunes(msg.Snippet, MaxEmailSnippetChars); snippet != "" {
		d.Description = models.StringPtr(snippet)
	}
	return d
}

// classifySubject is the first-pass guess refined later by enrichment
func classifySubject(subject string) (models.ItemType, models.Priority) {
	lower := strings.ToLower(subject)
	switch {
	case containsAny(lower, "deadline", "submit"):
		return models.ItemTypeTask, models.PriorityHigh
	case containsAny(lower, "meeting", "interview"):
		return models.ItemTypeReminder, models.PriorityHigh
	case containsAny(lower, "seminar", "workshop"):
		return models.ItemTypeReminder, models.PriorityMedium
	default:
		return models.ItemTypeNote, models.PriorityMedium
	}
}
