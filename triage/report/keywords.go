package report

import (
	"strings"
)

const (
	StartKeyword    = "report"
	HelpKeyword     = "help"
	ModStartKeyword = "moderate"
	// moderators prefix messages with this to act as a regular user
	UserOverridePrefix = "as user:"
)

var cancelKeywords = map[string]bool{
	"cancel":  true,
	"/cancel": true,
	"abort":   true,
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func IsCancel(text string) bool {
	return cancelKeywords[normalize(text)]
}

func CancelKeywords() []string {
	out := make([]string, 0, len(cancelKeywords))
	for k := range cancelKeywords {
		out = append(out, k)
	}
	return out
}

func IsStart(text string) bool {
	return strings.HasPrefix(normalize(text), StartKeyword)
}

func IsHelp(text string) bool {
	return normalize(text) == HelpKeyword
}

func IsModStart(text string) bool {
	return normalize(text) == ModStartKeyword
}

// StripUserOverride reports whether text carries the moderator "act as user" prefix, and returns the remainder.
func StripUserOverride(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(strings.ToLower(t), UserOverridePrefix) {
		return text, false
	}
	return strings.TrimSpace(t[len(UserOverridePrefix):]), true
}

func HelpText() string {
	reply := "- Use the `report` command to begin the reporting process.\n"
	reply += "- Use the `cancel` command to cancel the report process.\n"
	reply += "- [Moderators] Use the `moderate` command to begin the moderation process.\n"
	reply += "- [Moderators] Start with `as user:` to act as a regular user."
	return reply
}

type answer int

const (
	answerNone answer = iota
	answerYes
	answerNo
	answerUncertain
)

func parseAnswer(text string) answer {
	switch strings.Trim(normalize(text), "()") {
	case "1", "yes", "y":
		return answerYes
	case "2", "no", "n":
		return answerNo
	case "3", "uncertain", "unsure", "not sure":
		return answerUncertain
	default:
		return answerNone
	}
}
