package report

import (
	"fmt"
	"strings"
	"time"
)

type FactKind string

const (
	FactAutoFlag        FactKind = "auto-flag"
	FactTarget          FactKind = "message"
	FactCategory        FactKind = "category"
	FactSubtype         FactKind = "subtype"
	FactAdditionalInfo  FactKind = "additional-info"
	FactBlockChoice     FactKind = "block-choice"
	FactModerator       FactKind = "moderator"
	FactImminentThreat  FactKind = "imminent-threat"
	FactDisinformation  FactKind = "disinformation"
	FactDisinfoCategory FactKind = "disinformation-category"
	FactActor           FactKind = "actor"
	FactAction          FactKind = "action"
	FactCancelled       FactKind = "cancelled"
)

// One structured fact learned during the conversation. The transcript is append-only.
type Fact struct {
	Kind  FactKind  `json:"kind"`
	Value string    `json:"value"`
	At    time.Time `json:"at"`
}

func (r *Report) record(kind FactKind, value string) {
	r.Transcript = append(r.Transcript, Fact{Kind: kind, Value: value, At: time.Now()})
}

// Facts returns the values recorded for a kind, in order.
func (r *Report) Facts(kind FactKind) []string {
	var out []string
	for _, f := range r.Transcript {
		if f.Kind == kind {
			out = append(out, f.Value)
		}
	}
	return out
}

// Summary renders the transcript for moderators and the audit channel.
func (r *Report) Summary() string {
	var sb strings.Builder
	if r.Synthetic {
		sb.WriteString("- Source: auto-flagged by classifier\n")
	} else {
		fmt.Fprintf(&sb, "- Reporting user [%s]\n", r.Reporter)
	}
	if r.Target != nil {
		fmt.Fprintf(&sb, "- Reported user [%s] %s\n", r.Target.AuthorID, r.Target.AuthorName)
	}
	fmt.Fprintf(&sb, "- Score: %.3f, priority %d\n", r.Score, r.Rank)
	if r.Classification != "" {
		fmt.Fprintf(&sb, "- Classification: %s\n", r.Classification)
	}
	for _, f := range r.Transcript {
		fmt.Fprintf(&sb, "- %s: %s\n", f.Kind, f.Value)
	}
	fmt.Fprintf(&sb, "- State: %s", r.State)
	return sb.String()
}

// ModSummary is the audit-channel post made once a report closes.
func (r *Report) ModSummary() string {
	return fmt.Sprintf("**MODERATION UPDATE**\n- Report [%s] outcome: %s\n%s", r.ID, r.Outcome(), r.Summary())
}
