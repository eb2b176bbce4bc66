package vault

import (
	"errors"
	"testing"

	"github.com/veleda/skald/internal/apperr"
)

func kindOf(t *testing.T, err error) apperr.ValidationKind {
	t.Helper()
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	return verr.Kind
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want apperr.ValidationKind // "" means valid
	}{
		{"plain", "note.md", ""},
		{"unicode", "заметка.md", ""},
		{"spaces inside", "my note.md", ""},
		{"empty", "", apperr.ValidationEmpty},
		{"whitespace only", "   ", apperr.ValidationEmpty},
		{"angle bracket", "a<b.md", apperr.ValidationForbiddenChar},
		{"pipe", "a|b.md", apperr.ValidationForbiddenChar},
		{"question mark", "what?.md", apperr.ValidationForbiddenChar},
		{"control char", "a\x01b.md", apperr.ValidationForbiddenChar},
		{"backslash", `a\b.md`, apperr.ValidationForbiddenChar},
		{"reserved con", "CON.md", apperr.ValidationReservedName},
		{"reserved com port", "com3.txt", apperr.ValidationReservedName},
		{"reserved lpt", "LPT9", apperr.ValidationReservedName},
		{"leading dot", ".hidden.md", apperr.ValidationDotSpaceEdge},
		{"trailing space", "note.md ", apperr.ValidationDotSpaceEdge},
		{"leading space", " note.md", apperr.ValidationDotSpaceEdge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.in)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("ValidateName(%q) = %v, want ok", tt.in, err)
				}
				return
			}
			if got := kindOf(t, err); got != tt.want {
				t.Errorf("kind = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateName_ConsoleNotReserved(t *testing.T) {
	// Only the exact device stem is reserved, not names containing it.
	if err := ValidateName("console.md"); err != nil {
		t.Errorf("console.md should pass: %v", err)
	}
	if err := ValidateName("nullable.md"); err != nil {
		t.Errorf("nullable.md should pass: %v", err)
	}
}

func TestValidatePath(t *testing.T) {
	if err := ValidatePath("proj/sub/note.md"); err != nil {
		t.Fatalf("valid path rejected: %v", err)
	}

	tests := []struct {
		in   string
		want apperr.ValidationKind
	}{
		{"", apperr.ValidationEmpty},
		{"/abs/note.md", apperr.ValidationTraversal},
		{"a/../b.md", apperr.ValidationTraversal},
		{"./b.md", apperr.ValidationTraversal},
		{`a\b.md`, apperr.ValidationTraversal},
		{"good/bad|seg/x.md", apperr.ValidationForbiddenChar},
	}
	for _, tt := range tests {
		if got := kindOf(t, ValidatePath(tt.in)); got != tt.want {
			t.Errorf("ValidatePath(%q) kind = %v, want %v", tt.in, got, tt.want)
		}
	}
}
