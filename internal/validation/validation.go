// Package validation holds the request schema rules shared by the handlers:
// the password strength policy, username format and error formatting.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes and x/crypto rejects it.
	maxPasswordBytes  = 72
	minUsernameLength = 4
	maxUsernameLength = 20
)

// New returns a validator with the strongpassword and username tags registered.
// Field names in errors are taken from json tags.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return len(PasswordIssues(fl.Field().String())) == 0
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidUsername(fl.Field().String())
	})
	return v
}

// PasswordIssues lists every rule p breaks. An empty result means p is strong.
func PasswordIssues(p string) []string {
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}

	var issues []string
	if len([]rune(p)) < minPasswordLength {
		issues = append(issues, "Password must be at least 8 characters.")
	}
	if len(p) > maxPasswordBytes {
		issues = append(issues, "Password must be at most 72 bytes.")
	}
	if !upper {
		issues = append(issues, "Password must contain at least one uppercase letter.")
	}
	if !lower {
		issues = append(issues, "Password must contain at least one lowercase letter.")
	}
	if !digit {
		issues = append(issues, "Password must contain at least one number.")
	}
	if !special {
		issues = append(issues, "Password must contain at least one special character.")
	}
	return issues
}

// NormalizeUsername drops a leading "@", trims and lowercases.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

func ValidUsername(s string) bool {
	s = strings.TrimPrefix(strings.TrimSpace(s), "@")
	if len(s) < minUsernameLength || len(s) > maxUsernameLength {
		return false
	}
	for _, r := range s {
		ok := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '.'
		if !ok {
			return false
		}
	}
	return true
}

// FieldErrors flattens validator errors into field -> failed rule.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		out[fe.Field()] = rule
	}
	return out
}

// HasField reports whether err contains a failure for the given json field.
func HasField(err error, field string) bool {
	_, ok := FieldErrors(err)[field]
	return ok
}
