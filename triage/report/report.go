package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type State string

const (
	StateReportStart              State = "report-start"
	StateAwaitingMessageReference State = "awaiting-message-reference"
	StateMessageIdentified        State = "message-identified"
	StateCategoryChosen           State = "category-chosen"
	StateSubtypeChosen            State = "subtype-chosen"
	StateAdditionalInfoPrompt     State = "additional-info-prompt"
	StateAdditionalInfoText       State = "additional-info-text"
	StateBlockChoice              State = "block-choice"
	StateInReview                 State = "in-review"
	StateModTriageStart           State = "mod-triage-start"
	StateModDisinfoCheck          State = "mod-disinfo-check"
	StateModCategorySelect        State = "mod-category-select"
	StateModActorSelect           State = "mod-actor-select"
	StateModActionSelect          State = "mod-action-select"
	StateEmergency                State = "emergency"
	StateHigherLevelMod           State = "higher-level-mod"
	StateReportComplete           State = "report-complete"
)

func (s State) Escalated() bool {
	return s == StateEmergency || s == StateHigherLevelMod
}

func (s State) Terminal() bool {
	return s == StateReportComplete || s.Escalated()
}

// Which party may currently drive the report forward.
type Branch int

const (
	BranchReporter Branch = iota
	BranchReview
	BranchModerator
	BranchClosed
)

func (s State) Branch() Branch {
	switch s {
	case StateReportStart, StateAwaitingMessageReference, StateMessageIdentified, StateCategoryChosen,
		StateSubtypeChosen, StateAdditionalInfoPrompt, StateAdditionalInfoText, StateBlockChoice:
		return BranchReporter
	case StateInReview:
		return BranchReview
	case StateModTriageStart, StateModDisinfoCheck, StateModCategorySelect, StateModActorSelect, StateModActionSelect:
		return BranchModerator
	default:
		return BranchClosed
	}
}

var (
	// unrecognized user input; state is unchanged and the user is re-prompted
	ErrInvalidInput = errors.New("unrecognized input")
	// input arrived from a party which does not currently own the report
	ErrNotOwner = errors.New("input not accepted from this party")
	// the report has already reached a terminal state
	ErrTerminal = errors.New("report already closed")

	ErrReferenceNotFound  = errors.New("message reference not found")
	ErrMalformedReference = fmt.Errorf("%w: unreadable link", ErrReferenceNotFound)
	ErrGuildNotFound      = fmt.Errorf("%w: unknown guild", ErrReferenceNotFound)
	ErrChannelNotFound    = fmt.Errorf("%w: unknown channel", ErrReferenceNotFound)
	ErrMessageNotFound    = fmt.Errorf("%w: unknown message", ErrReferenceNotFound)
)

type Actor int

const (
	ActorReporter Actor = iota
	ActorModerator
)

func (a Actor) String() string {
	if a == ActorModerator {
		return "moderator"
	}
	return "reporter"
}

// One discrete input event for a report.
type Input struct {
	Actor Actor
	// identity of the sender; informational for the state machine, checked by the dispatcher
	Author string
	Text   string
}

// The flagged message and its author, as resolved by the transport.
type Target struct {
	Reference  string `json:"reference"`
	GuildID    string `json:"guild_id"`
	ChannelID  string `json:"channel_id"`
	MessageID  string `json:"message_id"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`
}

func (t Target) Quote() string {
	return fmt.Sprintf("```%s: %s```", t.AuthorName, t.Content)
}

type Resolver interface {
	ResolveReference(ctx context.Context, ref string) (*Target, error)
}

// A moderation side-effect requested by a transition. Key is stable per report and action,
// so executors can de-duplicate retries.
type Effect struct {
	Key    string
	Action Action
	Target Target
}

type Transition struct {
	From    State
	To      State
	Outputs []Output
	Effect  *Effect
}

type Stats struct {
	Reported       string `json:"reported"`
	Reporting      string `json:"reporting"`
	FalseReporting bool   `json:"false_reporting"`
}

// One tracked incident. Not safe for concurrent use; the owner serializes all calls.
type Report struct {
	ID        string
	Reporter  string
	Synthetic bool
	State     State
	Target    *Target

	// classifier snapshot taken at intake
	Score          float64
	Classification string
	Rank           int

	Transcript     []Fact
	FalseReporting bool
	Category       string
	Action         Action
	Cancelled      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New starts a report submitted by a human reporter. The report id is the reporter identity.
func New(reporter string, score float64, classification string, rank int) *Report {
	now := time.Now()
	return &Report{
		ID:             reporter,
		Reporter:       reporter,
		State:          StateReportStart,
		Score:          score,
		Classification: classification,
		Rank:           rank,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewAutoFlag creates a report on behalf of the classifier. It skips the reporter
// conversation and starts out waiting for a moderator.
func NewAutoFlag(id string, target Target, score float64, classification string, rank int) *Report {
	now := time.Now()
	r := &Report{
		ID:             id,
		Reporter:       id,
		Synthetic:      true,
		State:          StateInReview,
		Target:         &target,
		Score:          score,
		Classification: classification,
		Rank:           rank,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	label := classification
	if label == "" {
		label = "unclassified"
	}
	r.record(FactAutoFlag, fmt.Sprintf("score %.3f (%s)", score, label))
	r.record(FactTarget, fmt.Sprintf("%s: %q", target.AuthorName, target.Content))
	return r
}

func (r *Report) IsComplete() bool {
	return r.State == StateReportComplete
}

func (r *Report) IsEscalated() bool {
	return r.State.Escalated()
}

func (r *Report) IsTerminal() bool {
	return r.State.Terminal()
}

func (r *Report) Owner() Branch {
	return r.State.Branch()
}

func (r *Report) Stats() Stats {
	s := Stats{
		Reporting:      r.Reporter,
		FalseReporting: r.FalseReporting,
	}
	if r.Target != nil {
		s.Reported = r.Target.AuthorID
	}
	return s
}

// Outcome is a short machine-friendly description of how the report ended.
func (r *Report) Outcome() string {
	switch {
	case r.State == StateEmergency:
		return "emergency"
	case r.State == StateHigherLevelMod:
		return "higher-level-review"
	case r.Cancelled:
		return "cancelled"
	case r.FalseReporting:
		return "false-report"
	case r.Action != "":
		return string(r.Action)
	case r.IsComplete():
		return "closed"
	default:
		return "open"
	}
}

// Resolution is the message sent back to the original reporter once the report is closed.
func (r *Report) Resolution() string {
	switch r.Outcome() {
	case "emergency":
		return "The reported content has been escalated to our emergency response team."
	case "higher-level-review":
		return "The reported content has been escalated to a senior moderator for further review."
	case "cancelled":
		return "The report was closed without action."
	case "false-report":
		return "After review, our moderators did not find a violation in the reported content."
	case "closed", "open":
		return "The report has been closed."
	default:
		return fmt.Sprintf("The reported content was reviewed and action was taken: %s.", r.actionLabel())
	}
}

func (r *Report) actionLabel() string {
	for k, a := range actionsByKey {
		if a == r.Action {
			opt, _ := actionMenu.Lookup(k)
			return strings.ToLower(opt.Label)
		}
	}
	return string(r.Action)
}
