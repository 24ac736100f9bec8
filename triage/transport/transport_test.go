package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/KathyFeiyang/cs152bots/triage/report"

	"github.com/stretchr/testify/assert"
)

func TestParseReference(t *testing.T) {
	assert := assert.New(t)

	ref, err := ParseReference("https://discord.com/channels/111/222/333")
	assert.NoError(err)
	assert.Equal(&Reference{GuildID: "111", ChannelID: "222", MessageID: "333"}, ref)

	ref, err = ParseReference("report this one: https://discord.com/channels/1/2/3 please")
	assert.NoError(err)
	assert.Equal("3", ref.MessageID)

	_, err = ParseReference("https://discord.com/channels/abc/2/3")
	assert.ErrorIs(err, report.ErrMalformedReference)
	_, err = ParseReference("hello")
	assert.ErrorIs(err, report.ErrReferenceNotFound)
}

func TestMemTransportResolve(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tr := NewMemTransport()
	msg := Message{GuildID: "1", ChannelID: "2", MessageID: "3", AuthorID: "9", AuthorName: "someone", Content: "hi"}
	tr.RegisterMessage(msg)
	tr.AddChannel("1", "5")

	target, err := tr.ResolveReference(ctx, msg.Link())
	assert.NoError(err)
	assert.Equal("hi", target.Content)
	assert.Equal("9", target.AuthorID)

	_, err = tr.ResolveReference(ctx, "https://discord.com/channels/7/2/3")
	assert.ErrorIs(err, report.ErrGuildNotFound)
	_, err = tr.ResolveReference(ctx, "https://discord.com/channels/1/4/3")
	assert.ErrorIs(err, report.ErrChannelNotFound)
	_, err = tr.ResolveReference(ctx, "https://discord.com/channels/1/5/3")
	assert.ErrorIs(err, report.ErrMessageNotFound)

	assert.NoError(tr.RemoveContent(ctx, *target))
	_, err = tr.ResolveReference(ctx, msg.Link())
	assert.ErrorIs(err, report.ErrMessageNotFound)
	assert.Len(tr.Actions(), 1)
	assert.Equal("remove-content", tr.Actions()[0].Kind)
}

func TestMemTransportOutbox(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tr := NewMemTransport()
	assert.NoError(tr.Deliver(ctx, "user1", []report.Output{report.Text("one"), report.Text("two")}))
	assert.NoError(tr.NotifyUser(ctx, "user1", "three"))
	assert.NoError(tr.Deliver(ctx, "user2", nil))

	assert.Len(tr.Outbox("user1", false), 3)
	out := tr.Outbox("user1", true)
	assert.Equal("three", out[2].Text)
	assert.Empty(tr.Outbox("user1", false))
	assert.Empty(tr.Outbox("user2", false))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tr.PostAudit(ctx, "audit")
		}()
	}
	wg.Wait()
	assert.Len(tr.Audit(), 10)
}

func TestSlackAuditor(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var lk sync.Mutex
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body SlackWebhookBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		lk.Lock()
		got = append(got, body.Text)
		lk.Unlock()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	inner := NewMemTransport()
	a := NewSlackAuditor(inner, srv.URL)
	assert.NoError(a.PostAudit(ctx, "**MODERATION UPDATE**"))
	assert.Len(inner.Audit(), 1)
	assert.Equal([]string{"**MODERATION UPDATE**"}, got)

	// webhook failures don't fail the audit post
	a.SlackWebhookURL = "http://127.0.0.1:1/missing"
	a.Client = http.DefaultClient
	assert.NoError(a.PostAudit(ctx, "second"))
	assert.Len(inner.Audit(), 2)

	// other methods pass through
	assert.NoError(a.NotifyUser(ctx, "user1", "hello"))
	assert.Len(inner.Outbox("user1", false), 1)
}
