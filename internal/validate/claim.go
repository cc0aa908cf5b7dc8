package validate

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ppiankov/claimcheck/internal/model"
)

// Claim trims the claim text and checks its length bounds. The trimmed text
// is returned on success.
func Claim(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", model.Errorf(model.KindValidation, "claim text is required")
	}

	n := utf8.RuneCountInString(trimmed)
	if n < model.MinClaimLength {
		return "", model.Errorf(model.KindValidation,
			"claim text is too short: %d characters (minimum %d)", n, model.MinClaimLength)
	}
	if n > model.MaxClaimLength {
		return "", model.Errorf(model.KindValidation,
			"claim text is too long: %d characters (maximum %d)", n, model.MaxClaimLength)
	}

	return trimmed, nil
}

// ID checks that an analysis identifier is well formed
func ID(id string) error {
	if strings.TrimSpace(id) == "" {
		return model.Errorf(model.KindValidation, "analysis id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.Errorf(model.KindValidation, "malformed analysis id: %q", id)
	}
	return nil
}
