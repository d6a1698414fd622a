package domain

// Speaker attributes a transcript turn to one side of the conversation.
type Speaker string

const (
	SpeakerBot  Speaker = "bot"
	SpeakerUser Speaker = "user"
)

// Turn is one rendered message of the transcript.
// The ordered sequence of turns is the sole rendering state: replaying it
// must reconstruct the visible conversation exactly.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}
