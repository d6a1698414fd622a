package runtime

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/krauseinafrica/leadchat/pkg/domain"
)

// emailPattern is deliberately loose: a local part, an @, and a domain with
// a dot. Real deliverability is the submission backend's problem.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// resolveInput validates a raw submission against the node's input kind and
// returns the value to record plus the text to echo as the visitor's turn.
// A validation failure returns domain.ErrInvalidInput; callers must treat it
// as a strict no-op.
func resolveInput(node domain.Node, raw string) (value, echo string, err error) {
	trimmed := strings.TrimSpace(raw)

	if trimmed == "" {
		if node.Optional {
			return domain.AnswerSkipped, domain.SkipPlaceholder, nil
		}
		return "", "", fmt.Errorf("%s is required: %w", node.Input, domain.ErrInvalidInput)
	}

	switch node.Input {
	case domain.InputEmail:
		if !emailPattern.MatchString(trimmed) {
			return "", "", fmt.Errorf("malformed email: %w", domain.ErrInvalidInput)
		}
	case domain.InputName, domain.InputPhone:
		// Non-empty after trimming is all we ask.
	default:
		return "", "", fmt.Errorf("unknown input kind %q: %w", node.Input, domain.ErrInvalidInput)
	}

	return trimmed, trimmed, nil
}
