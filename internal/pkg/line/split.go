package line

import (
	"fmt"
)

// splitLimit is the per-part rune budget for a message body, sized
// comfortably under LINE's 5000-character hard limit even with the part
// label prepended.
const splitLimit = 3000

// SplitText turns one logical labelled section into one or more text
// messages. A section that fits the budget keeps a plain 【label】 header;
// longer sections are split into ordered parts labelled 【label n/m】.
// Splitting decisions are per section, never across sections.
func SplitText(label, text string) []Message {
	runes := []rune(text)
	if len(runes) <= splitLimit {
		return []Message{NewText(fmt.Sprintf("【%s】\n%s", label, text))}
	}

	total := (len(runes) + splitLimit - 1) / splitLimit
	messages := make([]Message, 0, total)
	for part := 0; part < total; part++ {
		start := part * splitLimit
		end := start + splitLimit
		if end > len(runes) {
			end = len(runes)
		}
		header := fmt.Sprintf("【%s %d/%d】\n", label, part+1, total)
		messages = append(messages, NewText(header+string(runes[start:end])))
	}
	return messages
}
