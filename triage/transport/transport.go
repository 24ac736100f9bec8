// Boundary to the chat platform: message lookup, conversation delivery, moderation actions
// and the moderator audit channel.
package transport

import (
	"context"
	"fmt"
	"regexp"

	"github.com/KathyFeiyang/cs152bots/triage/report"
)

type Transport interface {
	report.Resolver

	// Deliver sends outputs to a conversation (a user or moderator identity).
	Deliver(ctx context.Context, conversation string, outs []report.Output) error
	// NotifyUser sends a one-off text message to a user.
	NotifyUser(ctx context.Context, user, text string) error
	// PostAudit posts to the moderator audit channel.
	PostAudit(ctx context.Context, text string) error

	RemoveContent(ctx context.Context, target report.Target) error
	SuspendAccount(ctx context.Context, target report.Target, permanent bool) error
	WarnAccount(ctx context.Context, target report.Target) error
}

// A channel message as seen by the platform.
type Message struct {
	GuildID    string `json:"guild_id"`
	ChannelID  string `json:"channel_id"`
	MessageID  string `json:"message_id"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`
}

func (m Message) Link() string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", m.GuildID, m.ChannelID, m.MessageID)
}

func (m Message) Target() report.Target {
	return report.Target{
		Reference:  m.Link(),
		GuildID:    m.GuildID,
		ChannelID:  m.ChannelID,
		MessageID:  m.MessageID,
		AuthorID:   m.AuthorID,
		AuthorName: m.AuthorName,
		Content:    m.Content,
	}
}

type Reference struct {
	GuildID   string
	ChannelID string
	MessageID string
}

var referenceRegex = regexp.MustCompile(`/(\d+)/(\d+)/(\d+)`)

// ParseReference extracts guild, channel and message ids from a message link.
func ParseReference(link string) (*Reference, error) {
	m := referenceRegex.FindStringSubmatch(link)
	if m == nil {
		return nil, report.ErrMalformedReference
	}
	return &Reference{GuildID: m[1], ChannelID: m[2], MessageID: m[3]}, nil
}
