package transport

import (
	"context"
	"sync"
	"time"

	"github.com/KathyFeiyang/cs152bots/triage/report"
)

// One moderation action carried out against a target.
type ActionRecord struct {
	Kind      string        `json:"kind"`
	Target    report.Target `json:"target"`
	Permanent bool          `json:"permanent,omitempty"`
	At        time.Time     `json:"at"`
}

type AuditPost struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// MemTransport is an in-process platform: a registry of channel messages, a per-conversation
// outbox, the audit channel and a log of moderation actions. Safe for concurrent use.
type MemTransport struct {
	lk       sync.Mutex
	guilds   map[string]map[string]bool
	messages map[Reference]Message
	outbox   map[string][]report.Output
	audit    []AuditPost
	actions  []ActionRecord
}

var _ Transport = (*MemTransport)(nil)

func NewMemTransport() *MemTransport {
	return &MemTransport{
		guilds:   make(map[string]map[string]bool),
		messages: make(map[Reference]Message),
		outbox:   make(map[string][]report.Output),
	}
}

// AddChannel makes a guild and channel known, without any messages.
func (t *MemTransport) AddChannel(guildID, channelID string) {
	t.lk.Lock()
	defer t.lk.Unlock()
	t.addChannel(guildID, channelID)
}

func (t *MemTransport) addChannel(guildID, channelID string) {
	ch, ok := t.guilds[guildID]
	if !ok {
		ch = make(map[string]bool)
		t.guilds[guildID] = ch
	}
	ch[channelID] = true
}

// RegisterMessage records a channel message so that it can later be referenced.
func (t *MemTransport) RegisterMessage(m Message) {
	t.lk.Lock()
	defer t.lk.Unlock()
	t.addChannel(m.GuildID, m.ChannelID)
	t.messages[Reference{GuildID: m.GuildID, ChannelID: m.ChannelID, MessageID: m.MessageID}] = m
}

func (t *MemTransport) ResolveReference(ctx context.Context, ref string) (*report.Target, error) {
	r, err := ParseReference(ref)
	if err != nil {
		return nil, err
	}
	t.lk.Lock()
	defer t.lk.Unlock()
	channels, ok := t.guilds[r.GuildID]
	if !ok {
		return nil, report.ErrGuildNotFound
	}
	if !channels[r.ChannelID] {
		return nil, report.ErrChannelNotFound
	}
	m, ok := t.messages[*r]
	if !ok {
		return nil, report.ErrMessageNotFound
	}
	target := m.Target()
	return &target, nil
}

func (t *MemTransport) Deliver(ctx context.Context, conversation string, outs []report.Output) error {
	if len(outs) == 0 {
		return nil
	}
	t.lk.Lock()
	defer t.lk.Unlock()
	t.outbox[conversation] = append(t.outbox[conversation], outs...)
	return nil
}

func (t *MemTransport) NotifyUser(ctx context.Context, user, text string) error {
	return t.Deliver(ctx, user, []report.Output{report.Text(text)})
}

func (t *MemTransport) PostAudit(ctx context.Context, text string) error {
	t.lk.Lock()
	defer t.lk.Unlock()
	t.audit = append(t.audit, AuditPost{Text: text, At: time.Now()})
	return nil
}

func (t *MemTransport) RemoveContent(ctx context.Context, target report.Target) error {
	t.lk.Lock()
	defer t.lk.Unlock()
	delete(t.messages, Reference{GuildID: target.GuildID, ChannelID: target.ChannelID, MessageID: target.MessageID})
	t.actions = append(t.actions, ActionRecord{Kind: "remove-content", Target: target, At: time.Now()})
	return nil
}

func (t *MemTransport) SuspendAccount(ctx context.Context, target report.Target, permanent bool) error {
	t.lk.Lock()
	defer t.lk.Unlock()
	t.actions = append(t.actions, ActionRecord{Kind: "suspend-account", Target: target, Permanent: permanent, At: time.Now()})
	return nil
}

func (t *MemTransport) WarnAccount(ctx context.Context, target report.Target) error {
	t.lk.Lock()
	defer t.lk.Unlock()
	t.actions = append(t.actions, ActionRecord{Kind: "warn-account", Target: target, At: time.Now()})
	return nil
}

// Outbox returns the outputs delivered to a conversation so far. When drain is set, they are
// also removed.
func (t *MemTransport) Outbox(conversation string, drain bool) []report.Output {
	t.lk.Lock()
	defer t.lk.Unlock()
	l := t.outbox[conversation]
	out := make([]report.Output, len(l))
	copy(out, l)
	if drain {
		delete(t.outbox, conversation)
	}
	return out
}

func (t *MemTransport) Audit() []AuditPost {
	t.lk.Lock()
	defer t.lk.Unlock()
	out := make([]AuditPost, len(t.audit))
	copy(out, t.audit)
	return out
}

func (t *MemTransport) Actions() []ActionRecord {
	t.lk.Lock()
	defer t.lk.Unlock()
	out := make([]ActionRecord, len(t.actions))
	copy(out, t.actions)
	return out
}
