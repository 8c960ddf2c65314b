package validate

import (
	"strings"
	"testing"
)

func TestTitle_WithinLimit(t *testing.T) {
	if msg := Title("a perfectly normal title"); msg != "" {
		t.Errorf("unexpected message: %s", msg)
	}
	if msg := Title(strings.Repeat("x", MaxTitleLength)); msg != "" {
		t.Errorf("limit itself must pass: %s", msg)
	}
}

func TestTitle_TooLong(t *testing.T) {
	if msg := Title(strings.Repeat("x", MaxTitleLength+1)); msg == "" {
		t.Error("expected a message for over-limit title")
	}
}

func TestDescription_TooLong(t *testing.T) {
	if msg := Description(strings.Repeat("x", MaxDescriptionLength+1)); msg == "" {
		t.Error("expected a message for over-limit description")
	}
}

func TestUsername_TooLong(t *testing.T) {
	if msg := Username(strings.Repeat("x", MaxUsernameLength+1)); msg == "" {
		t.Error("expected a message for over-limit username")
	}
}

func TestPassword_Bounds(t *testing.T) {
	if msg := Password("short"); msg == "" {
		t.Error("expected a message for a too-short password")
	}
	if msg := Password("long enough"); msg != "" {
		t.Errorf("unexpected message: %s", msg)
	}
	if msg := Password(strings.Repeat("x", MaxPasswordLength+1)); msg == "" {
		t.Error("expected a message for an over-limit password")
	}
}
