package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/productivity-assistant/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("item_type", validateItemType); err != nil {
		panic(fmt.Sprintf("failed to register item_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("priority", validatePriority); err != nil {
		panic(fmt.Sprintf("failed to register priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("item_source", validateSource); err != nil {
		panic(fmt.Sprintf("failed to register item_source validator: %v", err))
	}
}

func validateItemType(fl validator.FieldLevel) bool {
	return models.ItemType(fl.Field().String()).Valid()
}

func validatePriority(fl validator.FieldLevel) bool {
	return models.Priority(fl.Field().String()).Valid()
}

func validateSource(fl validator.FieldLevel) bool {
	return models.Source(fl.Field().String()).Valid()
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateItemType validates an item type string value
func ValidateItemType(value string) error {
	if !models.ItemType(value).Valid() {
		return fmt.Errorf("invalid type: %s (must be 'task', 'note', or 'reminder')", value)
	}
	return nil
}

// ValidatePriority validates a priority string value
func ValidatePriority(value string) error {
	if !models.Priority(value).Valid() {
		return fmt.Errorf("invalid priority: %s (must be 'low', 'medium', or 'high')", value)
	}
	return nil
}
