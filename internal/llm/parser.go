package llm

import (
	"regexp"
	"strings"
)

var codeBlockPattern = regexp.MustCompile("```(?:\\w+)?\\s*([\\s\\S]*?)```")

// ExtractLine cleans a reasoning-service response down to a single
// speakable line, grounded on the teacher's ExtractJSON (internal/llm/parser.go)
// but adapted from "pull JSON out of markdown" to "pull plain dialogue out
// of whatever wrapping text/quoting/code-fencing the model added".
func ExtractLine(text string) string {
	text = strings.TrimSpace(text)

	if matches := codeBlockPattern.FindStringSubmatch(text); len(matches) > 1 {
		text = strings.TrimSpace(matches[1])
	}

	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}

	text = strings.Trim(text, "\"'` \t")

	if text == "" {
		return "..."
	}
	if len(text) > 240 {
		text = text[:240]
	}
	return text
}
