package validation

import (
	"fmt"
	"regexp"
	"strings"

	"familypoints/internal/models"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._\-]{2,31}$`)
	deadlineRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

const (
	MaxLastDays       = 365
	MaxHomeworkPoints = 1000
	MaxRewardCost     = 1000000
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateOptionalEmail accepts nil or a valid address
func ValidateOptionalEmail(email *string) error {
	if email == nil || strings.TrimSpace(*email) == "" {
		return nil
	}
	return ValidateEmail(*email)
}

// ValidateUsername checks login names: 3-32 characters of letters, digits, dot, dash or underscore
func ValidateUsername(username string) error {
	if username == "" {
		return ValidationError{Field: "username", Message: "username is required"}
	}
	if !usernameRegex.MatchString(username) {
		return ValidationError{Field: "username", Message: "username must be 3-32 letters, digits, '.', '-' or '_'"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	if len(password) > 72 {
		return ValidationError{Field: "password", Message: "password must be at most 72 characters"}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	if len(name) > 100 {
		return ValidationError{Field: "name", Message: "name must be at most 100 characters"}
	}
	return nil
}

// ValidateRole checks that role is admin, parent or child
func ValidateRole(role models.Role) error {
	if !role.Valid() {
		return ValidationError{Field: "role", Message: "role must be admin, parent or child"}
	}
	return nil
}

// ValidateDeadlineSettings checks is_deadline, deadline and integral
func ValidateDeadlineSettings(s models.DeadlineSettings) error {
	if s.IsDeadline != "0" && s.IsDeadline != "1" {
		return ValidationError{Field: "is_deadline", Message: `is_deadline must be "0" or "1"`}
	}
	if !deadlineRegex.MatchString(s.Deadline) {
		return ValidationError{Field: "deadline", Message: "deadline must be HH:MM"}
	}
	if s.Integral <= 0 {
		return ValidationError{Field: "integral", Message: "integral must be a positive integer"}
	}
	return nil
}

// ValidateLastDays checks the statistics window length
func ValidateLastDays(days int) error {
	if days <= 0 || days > MaxLastDays {
		return ValidationError{Field: "lastDays", Message: fmt.Sprintf("lastDays must be between 1 and %d", MaxLastDays)}
	}
	return nil
}

// ValidateHomework checks the editable homework fields
func ValidateHomework(subject, title string, points int) error {
	if strings.TrimSpace(subject) == "" {
		return ValidationError{Field: "subject", Message: "subject is required"}
	}
	if strings.TrimSpace(title) == "" {
		return ValidationError{Field: "title", Message: "title is required"}
	}
	if len(title) > 200 {
		return ValidationError{Field: "title", Message: "title must be at most 200 characters"}
	}
	if points < 0 || points > MaxHomeworkPoints {
		return ValidationError{Field: "points", Message: fmt.Sprintf("points must be between 0 and %d", MaxHomeworkPoints)}
	}
	return nil
}

// ValidateReward checks a catalog item's name and cost
func ValidateReward(name string, cost int64) error {
	if strings.TrimSpace(name) == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if cost <= 0 || cost > MaxRewardCost {
		return ValidationError{Field: "costPoints", Message: "costPoints must be a positive integer"}
	}
	return nil
}
