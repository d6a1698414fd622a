package script

import "github.com/krauseinafrica/leadchat/pkg/domain"

// Default returns the built-in storescore lead-capture script: intent,
// topic, then contact details, with an explicit decline branch.
//
// The graph is compiled fresh on every call; it cannot fail validation, so
// a compile error here is a programming bug worth panicking on.
func Default() *Graph {
	g, err := NewBuilder().
		Start("greeting").
		Completion("thank-you").
		Node("greeting").
		Message("Hi! I'm the storescore assistant. What brings you here today?").
		Option("I have a specific question", "question", "question-topic").
		Option("I'd like a product demo", "demo", "ask-name").
		Option("Just browsing, thanks", "browsing", "goodbye").
		Done().
		Node("question-topic").
		Message("Happy to help. What is your question about?").
		Option("Pricing and plans", "pricing", "ask-name").
		Option("Store evaluations", "evaluations", "ask-name").
		Option("Team and role management", "teams", "ask-name").
		Option("Something else", "other", "ask-name").
		Done().
		Node("ask-name").
		Message("Great — I'll have someone follow up. What's your name?").
		Input(domain.InputName, "ask-email").
		Done().
		Node("ask-email").
		Message("Thanks! What email should we reach you at?").
		Input(domain.InputEmail, "ask-phone").
		Done().
		Node("ask-phone").
		Message("And a phone number, if you'd like a call back? (You can leave this empty.)").
		Input(domain.InputPhone, "thank-you").
		Skippable().
		Done().
		Node("thank-you").
		Message("All set! We'll be in touch shortly. Thanks for reaching out.").
		Done().
		Node("goodbye").
		Message("No worries — have a great day, and come back any time!").
		Done().
		Build()
	if err != nil {
		panic("script: default script failed validation: " + err.Error())
	}
	return g
}
