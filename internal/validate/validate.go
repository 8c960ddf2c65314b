package validate

import "fmt"

// Text field length limits shared by the admin API handlers.
const (
	MaxTitleLength       = 500
	MaxDescriptionLength = 2000
	MaxUsernameLength    = 64
	MaxPasswordLength    = 72 // bcrypt input cap
	MinPasswordLength    = 6
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func Title(s string) string       { return checkLen(s, MaxTitleLength, "title") }
func Description(s string) string { return checkLen(s, MaxDescriptionLength, "description") }
func Username(s string) string    { return checkLen(s, MaxUsernameLength, "username") }

func Password(s string) string {
	if len(s) < MinPasswordLength {
		return fmt.Sprintf("password must be at least %d characters", MinPasswordLength)
	}
	return checkLen(s, MaxPasswordLength, "password")
}
