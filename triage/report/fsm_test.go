package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeResolver struct {
	targets map[string]Target
	err     error
}

func (f *fakeResolver) ResolveReference(ctx context.Context, ref string) (*Target, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !strings.Contains(ref, "/") {
		return nil, ErrMalformedReference
	}
	t, ok := f.targets[ref]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return &t, nil
}

const testLink = "https://discord.com/channels/1/2/3"

func testResolver() *fakeResolver {
	return &fakeResolver{
		targets: map[string]Target{
			testLink: {
				Reference:  testLink,
				GuildID:    "1",
				ChannelID:  "2",
				MessageID:  "3",
				AuthorID:   "555",
				AuthorName: "spammer",
				Content:    "vaccines contain microchips",
			},
		},
	}
}

type step struct {
	actor Actor
	text  string
	state State
}

// the full reporter walk of category 1, then the moderator branch up to the action menu
var walk = []step{
	{ActorReporter, "report", StateAwaitingMessageReference},
	{ActorReporter, testLink, StateMessageIdentified},
	{ActorReporter, "1", StateCategoryChosen},
	{ActorReporter, "1", StateSubtypeChosen},
	{ActorReporter, "2", StateAdditionalInfoPrompt},
	{ActorReporter, "yes", StateAdditionalInfoText},
	{ActorReporter, "spam campaign", StateBlockChoice},
	{ActorReporter, "3", StateInReview},
	{ActorModerator, "moderate", StateModTriageStart},
	{ActorModerator, "no", StateModDisinfoCheck},
	{ActorModerator, "yes", StateModCategorySelect},
	{ActorModerator, "1", StateModActorSelect},
	{ActorModerator, "2", StateModActionSelect},
}

func drive(t *testing.T, r *Report, res Resolver, steps []step) {
	ctx := context.Background()
	for _, s := range steps {
		tr, err := r.Handle(ctx, Input{Actor: s.actor, Author: "someone", Text: s.text}, res)
		if !assert.NoError(t, err, "input %q", s.text) {
			t.FailNow()
		}
		assert.Equal(t, s.state, tr.To)
		assert.NotEmpty(t, tr.Outputs)
	}
}

func TestReportWalkToFalseReport(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	res := testResolver()

	r := New("reporter-1", 0.4, "misleading information", 4)
	drive(t, r, res, walk[:9])
	assert.Equal(StateModTriageStart, r.State)
	assert.Equal([]string{"spam campaign"}, r.Facts(FactAdditionalInfo))
	assert.Equal([]string{"Hide this message only"}, r.Facts(FactBlockChoice))
	assert.Equal([]string{"False/misleading information"}, r.Facts(FactCategory))

	tr, err := r.Handle(ctx, Input{Actor: ActorModerator, Text: "no"}, res)
	assert.NoError(err)
	assert.Equal(StateModDisinfoCheck, tr.To)
	tr, err = r.Handle(ctx, Input{Actor: ActorModerator, Text: "no"}, res)
	assert.NoError(err)
	assert.Equal(StateReportComplete, tr.To)
	assert.Nil(tr.Effect)

	assert.True(r.IsComplete())
	assert.False(r.IsEscalated())
	assert.True(r.FalseReporting)
	assert.Equal(Stats{Reported: "555", Reporting: "reporter-1", FalseReporting: true}, r.Stats())
	assert.Equal("false-report", r.Outcome())
	assert.Contains(r.Summary(), "spam campaign")

	_, err = r.Handle(ctx, Input{Actor: ActorModerator, Text: "1"}, res)
	assert.ErrorIs(err, ErrTerminal)
}

func TestReportActionEffect(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	res := testResolver()

	r := New("reporter-2", 0.9, "", 9)
	drive(t, r, res, walk)

	tr, err := r.Handle(ctx, Input{Actor: ActorModerator, Text: "9"}, res)
	assert.ErrorIs(err, ErrInvalidInput)
	assert.Equal(StateModActionSelect, tr.To)
	assert.Nil(tr.Effect)

	tr, err = r.Handle(ctx, Input{Actor: ActorModerator, Text: "2"}, res)
	assert.NoError(err)
	assert.Equal(StateReportComplete, tr.To)
	if assert.NotNil(tr.Effect) {
		assert.Equal(ActionRemoveAndSuspend, tr.Effect.Action)
		assert.Equal("reporter-2/remove-and-suspend", tr.Effect.Key)
		assert.Equal("3", tr.Effect.Target.MessageID)
		assert.True(tr.Effect.Action.RemovesContent())
	}
	assert.False(r.FalseReporting)
	assert.Contains(r.Resolution(), "temporarily suspend")
}

func TestReportEscalations(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	res := testResolver()

	r := New("reporter-3", 0.5, "", 5)
	drive(t, r, res, walk[:9])
	tr, err := r.Handle(ctx, Input{Actor: ActorModerator, Text: "1"}, res)
	assert.NoError(err)
	assert.Equal(StateEmergency, tr.To)
	assert.True(r.IsEscalated())
	assert.False(r.IsComplete())
	assert.True(r.IsTerminal())

	r = New("reporter-4", 0.5, "", 5)
	drive(t, r, res, walk[:10])
	tr, err = r.Handle(ctx, Input{Actor: ActorModerator, Text: "uncertain"}, res)
	assert.NoError(err)
	assert.Equal(StateHigherLevelMod, tr.To)
	assert.True(r.IsEscalated())
	assert.False(r.FalseReporting)
}

func TestReportCancelFromEveryState(t *testing.T) {
	ctx := context.Background()
	res := testResolver()

	for i := 0; i <= len(walk); i++ {
		for _, kw := range []string{"cancel", "CANCEL", "  Cancel ", "/cancel", "abort"} {
			r := New("reporter-c", 0.5, "", 5)
			drive(t, r, res, walk[:i])
			assert.False(t, r.IsTerminal())

			actor := ActorReporter
			if r.Owner() == BranchModerator {
				actor = ActorModerator
			}
			tr, err := r.Handle(ctx, Input{Actor: actor, Text: kw}, res)
			assert.NoError(t, err, "cancel %q from %s", kw, tr.From)
			assert.Equal(t, StateReportComplete, tr.To)
			assert.Nil(t, tr.Effect)
			assert.True(t, r.IsComplete())
			assert.True(t, r.Cancelled)
			assert.False(t, r.FalseReporting)
			assert.Equal(t, "cancelled", r.Outcome())
		}
	}
}

func TestReportInvalidInputKeepsState(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	res := testResolver()

	r := New("reporter-5", 0.5, "", 5)
	drive(t, r, res, walk[:3])
	assert.Equal(StateCategoryChosen, r.State)

	tr, err := r.Handle(ctx, Input{Actor: ActorReporter, Text: "7"}, res)
	assert.ErrorIs(err, ErrInvalidInput)
	assert.Equal(StateCategoryChosen, tr.To)
	assert.Equal(msgUnrecognized, tr.Outputs[0].Text)
	assert.Equal(OutputMenu, tr.Outputs[1].Kind)

	// non-misinformation categories skip the additional info prompt
	drive(t, r, res, []step{
		{ActorReporter, "(2)", StateSubtypeChosen},
		{ActorReporter, "4", StateBlockChoice},
	})
	tr, err = r.Handle(ctx, Input{Actor: ActorReporter, Text: "block"}, res)
	assert.ErrorIs(err, ErrInvalidInput)
	assert.Equal(StateBlockChoice, tr.To)
	assert.Equal([]string{"Threat or Personal Attack"}, r.Facts(FactSubtype))
}

func TestReportReferenceErrors(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	res := testResolver()

	r := New("reporter-6", 0.5, "", 5)
	drive(t, r, res, walk[:1])

	tr, err := r.Handle(ctx, Input{Actor: ActorReporter, Text: "not a link"}, res)
	assert.ErrorIs(err, ErrReferenceNotFound)
	assert.Equal(StateAwaitingMessageReference, tr.To)
	assert.Contains(tr.Outputs[0].Text, "couldn't read that link")

	tr, err = r.Handle(ctx, Input{Actor: ActorReporter, Text: "https://discord.com/channels/1/2/999"}, res)
	assert.ErrorIs(err, ErrReferenceNotFound)
	assert.Contains(tr.Outputs[0].Text, "message was deleted")

	res.err = errors.New("connection reset")
	_, err = r.Handle(ctx, Input{Actor: ActorReporter, Text: testLink}, res)
	assert.ErrorIs(err, ErrReferenceNotFound)
	res.err = nil

	// resolve, reject, and resolve again
	drive(t, r, res, []step{
		{ActorReporter, testLink, StateMessageIdentified},
		{ActorReporter, "no", StateAwaitingMessageReference},
	})
	assert.Nil(r.Target)
	drive(t, r, res, []step{
		{ActorReporter, testLink, StateMessageIdentified},
		{ActorReporter, "yes", StateCategoryChosen},
	})
	assert.Equal("555", r.Target.AuthorID)
}

func TestReportGating(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	res := testResolver()

	r := New("reporter-7", 0.5, "", 5)
	_, err := r.Handle(ctx, Input{Actor: ActorModerator, Text: "moderate"}, res)
	assert.ErrorIs(err, ErrNotOwner)
	assert.Equal(StateReportStart, r.State)

	drive(t, r, res, walk[:8])
	_, err = r.Handle(ctx, Input{Actor: ActorReporter, Text: "moderate"}, res)
	assert.ErrorIs(err, ErrNotOwner)

	tr, err := r.Handle(ctx, Input{Actor: ActorModerator, Text: "hello"}, res)
	assert.ErrorIs(err, ErrInvalidInput)
	assert.Equal(StateInReview, tr.To)

	drive(t, r, res, walk[8:9])
	_, err = r.Handle(ctx, Input{Actor: ActorReporter, Text: "cancel"}, res)
	assert.ErrorIs(err, ErrNotOwner)
	assert.False(r.IsTerminal())
}

func TestAutoFlagReport(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	target := Target{MessageID: "42", AuthorID: "77", AuthorName: "bot", Content: "the moon landing was staged"}
	r := NewAutoFlag("auto-flag:1", target, 0.91, "conspiracy theory", 9)
	assert.True(r.Synthetic)
	assert.Equal(StateInReview, r.State)
	assert.Equal(BranchReview, r.Owner())
	assert.Len(r.Facts(FactAutoFlag), 1)

	tr, err := r.Handle(ctx, Input{Actor: ActorModerator, Author: "mod-1", Text: "Moderate"}, nil)
	assert.NoError(err)
	assert.Equal(StateModTriageStart, tr.To)
	assert.Contains(tr.Outputs[0].Text, "auto-flagged")
	assert.Equal([]string{"mod-1"}, r.Facts(FactModerator))
}

func TestMenuRendering(t *testing.T) {
	assert := assert.New(t)

	out := Prompt("I found this message:", confirmMessageMenu)
	s := out.String()
	assert.True(strings.HasPrefix(s, "I found this message:\n**Is this the message"))
	assert.Contains(s, "(2) No, let me paste a different link")

	opt, ok := categoryMenu.Lookup(" 4 ")
	assert.True(ok)
	assert.Equal("Violent and Harmful content", opt.Label)
	_, ok = categoryMenu.Lookup("5")
	assert.False(ok)
	assert.Equal("Ex: To select 'False/misleading information', type `1`.", categoryMenu.Footer)
}

func TestKeywords(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsStart("report"))
	assert.True(IsStart("Report https://discord.com/channels/1/2/3"))
	assert.False(IsStart("reprt"))
	assert.True(IsHelp(" help "))

	rest, ok := StripUserOverride("As user: report")
	assert.True(ok)
	assert.Equal("report", rest)
	_, ok = StripUserOverride("report")
	assert.False(ok)
	assert.Len(CancelKeywords(), 3)
}
