package ai

import (
	"fmt"
	"strings"
)

// maxRequestChars truncates request text to avoid token limits
const maxRequestChars = 5000

// BuildDraftPrompt renders the drafting prompt shared by every provider
func BuildDraftPrompt(req DraftRequest) string {
	text := req.RequestText
	if len(text) > maxRequestChars {
		text = text[:maxRequestChars]
	}

	name := strings.TrimSpace(req.RecipientName)
	if name == "" {
		name = "the sender"
	}

	tone := "friendly and helpful"
	switch req.Severity {
	case "moderate":
		tone = "careful and supportive, suggesting professional help where appropriate"
	case "urgent":
		tone = "calm and supportive, encouraging the person to contact emergency services or a crisis line"
	}

	return fmt.Sprintf(`You are a support assistant drafting an email reply that a human reviewer may edit before it is sent.

INSTRUCTIONS:
- Address the reply to %s
- Tone: %s
- Answer the request directly in plain text, no markdown
- Do not add a signature or a disclaimer; one is appended automatically
- Keep it under 250 words

SUBJECT: %s

REQUEST:
%s

REPLY:`, name, tone, req.Subject, text)
}

// cleanDraft trims whitespace and wrapping quotes some models emit
func cleanDraft(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"")
	return strings.TrimSpace(s)
}
