package domain

// AnswerSkipped is the skip sentinel recorded when the visitor declines an
// optional field. It is distinct from an empty or unset value so downstream
// consumers can tell "declined" from "never asked".
const AnswerSkipped = "skipped"

// SkipPlaceholder is the text echoed as the visitor's turn when they skip
// an optional field by submitting nothing.
const SkipPlaceholder = "Skipped"

// Lead is the collected visitor-intent-and-contact record submitted once the
// conversation reaches the completion node. This is the component's only
// outbound wire format.
type Lead struct {
	Name    string            `json:"name"`
	Email   string            `json:"email"`
	Phone   string            `json:"phone"`
	Answers map[string]string `json:"answers"`
	Page    string            `json:"page"`
}

// NewLead assembles a lead from the accumulated answers plus the host page
// path. Contact fields are lifted out of the map; the full map rides along
// so choice answers (keyed by node id) are preserved.
func NewLead(answers map[string]string, page string) Lead {
	copied := make(map[string]string, len(answers))
	for k, v := range answers {
		copied[k] = v
	}
	return Lead{
		Name:    answers[string(InputName)],
		Email:   answers[string(InputEmail)],
		Phone:   answers[string(InputPhone)],
		Answers: copied,
		Page:    page,
	}
}
