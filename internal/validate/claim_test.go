package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/claimcheck/internal/model"
)

func TestClaim(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"empty", "", "", true},
		{"whitespace only", "   \n\t ", "", true},
		{"five characters", "Hello", "", true},
		{"nine characters after trim", "   123456789   ", "", true},
		{"exactly ten", "1234567890", "1234567890", false},
		{"trimmed", "  The sky is blue today  ", "The sky is blue today", false},
		{"exactly max", strings.Repeat("a", model.MaxClaimLength), strings.Repeat("a", model.MaxClaimLength), false},
		{"over max", strings.Repeat("a", model.MaxClaimLength+1), "", true},
		{"multibyte counted as characters", strings.Repeat("é", 10), strings.Repeat("é", 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Claim(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if !errors.Is(err, model.ErrValidation) {
					t.Errorf("expected validation error, got %v", err)
				}
				if model.KindOf(err) != model.KindValidation {
					t.Errorf("expected kind validation, got %s", model.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClaim_MessageIsDescriptive(t *testing.T) {
	_, err := Claim("short")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "too short") {
		t.Errorf("expected 'too short' in message, got %q", err.Error())
	}
	if model.UserMessage(err) != err.Error() {
		t.Errorf("validation message should be shown verbatim, got %q", model.UserMessage(err))
	}
}

func TestID(t *testing.T) {
	if err := ID("6f1c2a8e-3d4b-4c5a-9e7f-0a1b2c3d4e5f"); err != nil {
		t.Errorf("unexpected error for valid id: %v", err)
	}
	for _, bad := range []string{"", "  ", "not-a-uuid", "../../etc/passwd"} {
		if err := ID(bad); !errors.Is(err, model.ErrValidation) {
			t.Errorf("ID(%q): expected validation error, got %v", bad, err)
		}
	}
}
