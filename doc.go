/*
Package leadchat is a scripted, branching guided-conversation engine for
lead-capture chat widgets. It walks a static dialogue graph, paces bot turns
with a simulated typing delay, validates contact inputs, and submits exactly
one lead when the conversation reaches its completion node.

The script is data, not code: a closed graph of choice, input and terminal
nodes validated once at load time. The engine is deterministic: for a fixed
script and a fixed sequence of visitor actions the transcript and collected
answers are always identical.

# Usage

Build an Engine from a script and a lead submitter, then open one
Conversation per widget session:

	eng, err := leadchat.New(script.Default(),
		leadchat.WithSubmitter(webhook.New("https://example.com/leads")),
	)
	if err != nil {
		log.Fatal(err)
	}

	conv := eng.Open("/pricing")
	defer conv.Close()

	// The host maps its two UI events 1:1 onto the engine:
	conv.Activate(ctx)                              // widget became visible
	conv.SelectOption(ctx, "greeting", "question")  // option clicked
	conv.SubmitInput(ctx, "jane@example.com")       // text submitted

Bot turns are delivered asynchronously after a typing delay; subscribe via
lifecycle hooks (or poll State) to render them. Closing the conversation
cancels any pending delivery.
*/
package leadchat
