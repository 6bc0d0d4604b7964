package toolcall

import (
	"strings"
	"unicode"

	"github.com/tachyon-beep/filigree/internal/ferrors"
)

// validateActor enforces the tool-call boundary's actor name rule: non-
// empty after whitespace trim, at most 128 characters, and free of
// Unicode category-C (control or format) characters that could corrupt
// the event log or terminal output reading it back.
func validateActor(actor string) error {
	trimmed := strings.TrimSpace(actor)
	if trimmed == "" {
		return ferrors.New(ferrors.CodeValidation, "actor is required")
	}
	if len([]rune(trimmed)) > 128 {
		return ferrors.New(ferrors.CodeValidation, "actor must be 128 characters or less")
	}
	for _, r := range trimmed {
		if unicode.Is(unicode.Cc, r) || unicode.Is(unicode.Cf, r) {
			return ferrors.New(ferrors.CodeValidation, "actor must not contain control or format characters")
		}
	}
	return nil
}
