// Package conversation models the role-tagged message sequences handed to the
// decoding pipeline and the two payload shapes the endpoint accepts.
package conversation

import "strings"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single dialogue turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StripTrailingAssistant returns msgs with trailing assistant turns removed so
// a generation request always continues from a non-assistant turn. Idempotent.
func StripTrailingAssistant(msgs []Message) []Message {
	end := len(msgs)
	for end > 0 && msgs[end-1].Role == RoleAssistant {
		end--
	}
	return msgs[:end]
}

// FlattenQA renders the conversation in the plain Q/A prompt shape used by the
// generate endpoint. Content is inserted verbatim; roles other than user and
// assistant are skipped.
func FlattenQA(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case RoleUser:
			b.WriteString("Q: ")
			b.WriteString(m.Content)
			b.WriteString("\nA:")
		case RoleAssistant:
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// HasUserMessage reports whether there is anything to answer at all.
func HasUserMessage(msgs []Message) bool {
	for _, m := range msgs {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}
