package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/benvon/day-timeline/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate

	dateKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("date_key", validateDateKey); err != nil {
		panic(fmt.Sprintf("failed to register date_key validator: %v", err))
	}
}

func validateDateKey(fl validator.FieldLevel) bool {
	return IsDateKey(fl.Field().String())
}

// IsDateKey reports whether s is a YYYY-MM-DD string naming a real
// calendar day.
func IsDateKey(s string) bool {
	if !dateKeyPattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(models.DateLayout, s)
	return err == nil
}

// ValidateDayState checks a client-supplied day document: version 1, a valid
// date key, and every block carrying an id and label with non-negative
// estimates. The error message lists each failing field.
func ValidateDayState(state *models.DayState) error {
	if state == nil {
		return errors.New("day state is required")
	}
	if err := Validate.Struct(state); err != nil {
		return errors.New(FormatErrors(err))
	}
	return checkUniqueBlockIDs(state.Blocks)
}

func checkUniqueBlockIDs(blocks []models.Block) error {
	seen := make(map[string]struct{}, len(blocks))
	for _, block := range blocks {
		if _, ok := seen[block.ID]; ok {
			return fmt.Errorf("duplicate block id: %s", block.ID)
		}
		seen[block.ID] = struct{}{}
	}
	return nil
}

// FormatErrors flattens validator errors into "Field: rule" pairs. Other
// errors are returned as their message.
func FormatErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), rule))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// SanitizeText trims whitespace and removes control characters other than
// newline and tab.
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
