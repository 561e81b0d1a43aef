package validation

import (
	"errors"
	"strings"
	"testing"

	"familypoints/internal/models"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "missing local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid name",
			input:   "John Doe",
			wantErr: false,
		},
		{
			name:    "single name",
			input:   "John",
			wantErr: false,
		},
		{
			name:    "empty name",
			input:   "",
			wantErr: true,
		},
		{
			name:    "name too short",
			input:   "J",
			wantErr: true,
		},
		{
			name:    "name with hyphen",
			input:   "Mary-Jane",
			wantErr: false,
		},
		{
			name:    "name with apostrophe",
			input:   "O'Brien",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "valid password",
			password: "password123",
			wantErr:  false,
		},
		{
			name:     "password exactly 8 characters",
			password: "pass1234",
			wantErr:  false,
		},
		{
			name:     "password too short",
			password: "pass123",
			wantErr:  true,
		},
		{
			name:     "empty password",
			password: "",
			wantErr:  true,
		},
		{
			name:     "long password",
			password: "thisIsAVeryLongPasswordThatShouldBeValid123",
			wantErr:  false,
		},
		{
			name:     "beyond bcrypt limit",
			password: strings.Repeat("a", 73),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"simple", "alice", false},
		{"generated child name", "happy-dragon-42", false},
		{"dots and underscores", "mum.smith_2", false},
		{"too short", "al", true},
		{"leading dash", "-alice", true},
		{"spaces", "alice smith", true},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 33), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.username, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDeadlineSettings(t *testing.T) {
	tests := []struct {
		name      string
		settings  models.DeadlineSettings
		wantField string
	}{
		{"valid", models.DeadlineSettings{IsDeadline: "1", Deadline: "20:30", Integral: 50}, ""},
		{"disabled", models.DeadlineSettings{IsDeadline: "0", Deadline: "00:00", Integral: 1}, ""},
		{"last minute of day", models.DeadlineSettings{IsDeadline: "1", Deadline: "23:59", Integral: 5}, ""},
		{"bad flag", models.DeadlineSettings{IsDeadline: "yes", Deadline: "20:30", Integral: 50}, "is_deadline"},
		{"hour out of range", models.DeadlineSettings{IsDeadline: "1", Deadline: "24:00", Integral: 50}, "deadline"},
		{"minute out of range", models.DeadlineSettings{IsDeadline: "1", Deadline: "20:60", Integral: 50}, "deadline"},
		{"single digit hour", models.DeadlineSettings{IsDeadline: "1", Deadline: "8:30", Integral: 50}, "deadline"},
		{"zero integral", models.DeadlineSettings{IsDeadline: "1", Deadline: "20:30", Integral: 0}, "integral"},
		{"negative integral", models.DeadlineSettings{IsDeadline: "1", Deadline: "20:30", Integral: -5}, "integral"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDeadlineSettings(tt.settings)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestValidateLastDays(t *testing.T) {
	for _, days := range []int{1, 7, 30, MaxLastDays} {
		if err := ValidateLastDays(days); err != nil {
			t.Errorf("ValidateLastDays(%d) error = %v", days, err)
		}
	}
	for _, days := range []int{0, -1, MaxLastDays + 1} {
		if err := ValidateLastDays(days); err == nil {
			t.Errorf("ValidateLastDays(%d) should fail", days)
		}
	}
}

func TestValidateReward(t *testing.T) {
	if err := ValidateReward("Ice cream", 30); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateReward("  ", 30); err == nil {
		t.Error("blank name should fail")
	}
	if err := ValidateReward("Free", 0); err == nil {
		t.Error("zero cost should fail")
	}
}

func TestValidateHomework(t *testing.T) {
	if err := ValidateHomework("Math", "Page 12", 10); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateHomework("Math", "", 10); err == nil {
		t.Error("missing title should fail")
	}
	if err := ValidateHomework("Math", "Page 12", -1); err == nil {
		t.Error("negative points should fail")
	}
}
