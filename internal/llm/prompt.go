package llm

import (
	"fmt"
	"strings"

	"github.com/arden/townsim/internal/townsim"
)

// BuildPrompt renders a ConversationLineRequest into the text prompt sent
// to the reasoning service, grounded on the teacher's buildPrompt
// (internal/llm/prompt.go) but replacing the tile-claiming action context
// (position/HP/energy/visible tiles/valid moves) with conversational
// context: who is speaking, their personality, their recent memories, and
// the transcript so far.
func BuildPrompt(req townsim.ConversationLineRequest) string {
	var sb strings.Builder

	sb.WriteString("[Character]\n")
	sb.WriteString(fmt.Sprintf("You are %s, a %s in a small town.\n", req.SpeakerName, strings.ToLower(string(req.Personality))))
	sb.WriteString(personalityFlavor(req.Personality))
	sb.WriteString("\n\n")

	if len(req.RecentMemory) > 0 {
		sb.WriteString("[What you remember]\n")
		for _, m := range req.RecentMemory {
			sb.WriteString("- " + m + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("[Conversation so far]\n")
	if len(req.TranscriptSoFar) == 0 {
		sb.WriteString("(nobody has spoken yet)\n")
	} else {
		for _, line := range req.TranscriptSoFar {
			sb.WriteString(fmt.Sprintf("- %s\n", line.Text))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("[Instructions]\n")
	sb.WriteString("Reply with a single short line of dialogue, in character, under 200 characters. ")
	sb.WriteString("Do not include your name, quotation marks, or any formatting. Just the words you say.\n")

	return sb.String()
}

func personalityFlavor(p townsim.Personality) string {
	switch p {
	case townsim.PersonalityCriminal:
		return "You're streetwise, a little paranoid, and always looking for an angle."
	case townsim.PersonalityGambler:
		return "You're restless and always chasing the next bet, quick to boast or commiserate."
	case townsim.PersonalityWorker:
		return "You're even-keeled and practical, happy to make small talk about the day."
	default:
		return "You're a regular resident of the town."
	}
}
