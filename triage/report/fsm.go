package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	msgUnrecognized = "Unrecognized option. Please choose from the above options."
	msgGreeting     = "Thank you for starting the reporting process. Say `help` at any time for more information.\n\n" +
		"Please copy paste the link to the message you want to report.\n" +
		"You can obtain this link by right-clicking the message and clicking `Copy Message Link`."
)

// Handle advances the report by one input.
//
// A Transition is always returned. When err is non-nil the state has not changed and the
// outputs re-prompt the sender; these errors (ErrInvalidInput, ErrReferenceNotFound,
// ErrNotOwner, ErrTerminal) are recoverable.
func (r *Report) Handle(ctx context.Context, in Input, res Resolver) (*Transition, error) {
	t := &Transition{From: r.State, To: r.State}

	if r.IsTerminal() {
		t.Outputs = []Output{Text("This report has already been closed.")}
		return t, ErrTerminal
	}

	if err := r.gate(in); err != nil {
		switch r.Owner() {
		case BranchReporter:
			t.Outputs = []Output{Text("This report is still being filed by the reporting user.")}
		default:
			t.Outputs = []Output{Text("This report is now with our moderation team. Thank you for your patience.")}
		}
		return t, err
	}

	if IsCancel(in.Text) {
		r.Cancelled = true
		r.record(FactCancelled, fmt.Sprintf("by %s", in.Actor))
		r.moveTo(t, StateReportComplete)
		t.Outputs = []Output{Text("Report cancelled.")}
		return t, nil
	}

	var err error
	switch r.State {
	case StateReportStart:
		r.moveTo(t, StateAwaitingMessageReference)
		t.Outputs = []Output{Text(msgGreeting)}
	case StateAwaitingMessageReference:
		err = r.handleReference(ctx, t, in, res)
	case StateMessageIdentified:
		err = r.handleConfirm(t, in)
	case StateCategoryChosen:
		err = r.handleCategory(t, in)
	case StateSubtypeChosen:
		err = r.handleSubtype(t, in)
	case StateAdditionalInfoPrompt:
		switch parseAnswer(in.Text) {
		case answerYes:
			r.moveTo(t, StateAdditionalInfoText)
			t.Outputs = []Output{Text("Please describe any additional information in a single message.")}
		case answerNo:
			r.moveTo(t, StateBlockChoice)
			t.Outputs = []Output{Prompt("", blockMenu)}
		default:
			err = r.reprompt(t, additionalInfoMenu)
		}
	case StateAdditionalInfoText:
		info := strings.TrimSpace(in.Text)
		if info == "" {
			t.Outputs = []Output{Text("Please describe the additional information, or say `cancel` to cancel.")}
			err = ErrInvalidInput
			break
		}
		r.record(FactAdditionalInfo, info)
		r.moveTo(t, StateBlockChoice)
		t.Outputs = []Output{Text("Thank you for the additional information!"), Prompt("", blockMenu)}
	case StateBlockChoice:
		opt, ok := blockMenu.Lookup(in.Text)
		if !ok {
			err = r.reprompt(t, blockMenu)
			break
		}
		r.record(FactBlockChoice, opt.Label)
		r.moveTo(t, StateInReview)
		t.Outputs = []Output{Text("Thank you for your report! Our moderation team will review it, and we will let you know the outcome.")}
	case StateInReview:
		if !IsModStart(in.Text) {
			t.Outputs = []Output{Textf("Say `%s` to begin reviewing this report.", ModStartKeyword)}
			err = ErrInvalidInput
			break
		}
		if in.Author != "" {
			r.record(FactModerator, in.Author)
		}
		r.moveTo(t, StateModTriageStart)
		t.Outputs = []Output{Text("**REPORT UNDER REVIEW**\n" + r.Summary()), Prompt("", threatMenu)}
	case StateModTriageStart:
		switch parseAnswer(in.Text) {
		case answerYes:
			r.record(FactImminentThreat, "yes")
			r.moveTo(t, StateEmergency)
			t.Outputs = []Output{Text("This report has been escalated to the emergency response team and, where required, local authorities.")}
		case answerNo:
			r.record(FactImminentThreat, "no")
			r.moveTo(t, StateModDisinfoCheck)
			t.Outputs = []Output{Prompt("", disinfoMenu)}
		default:
			err = r.reprompt(t, threatMenu)
		}
	case StateModDisinfoCheck:
		switch parseAnswer(in.Text) {
		case answerYes:
			r.record(FactDisinformation, "yes")
			r.moveTo(t, StateModCategorySelect)
			t.Outputs = []Output{Prompt("", modCategoryMenu)}
		case answerNo:
			r.record(FactDisinformation, "no")
			r.FalseReporting = true
			r.moveTo(t, StateReportComplete)
			t.Outputs = []Output{Text("The report has been closed as unfounded. No action will be taken on the content.")}
		case answerUncertain:
			r.record(FactDisinformation, "uncertain")
			r.moveTo(t, StateHigherLevelMod)
			t.Outputs = []Output{Text("This report has been escalated to a higher-level moderator.")}
		default:
			err = r.reprompt(t, disinfoMenu)
		}
	case StateModCategorySelect:
		opt, ok := modCategoryMenu.Lookup(in.Text)
		if !ok {
			err = r.reprompt(t, modCategoryMenu)
			break
		}
		r.record(FactDisinfoCategory, opt.Label)
		r.moveTo(t, StateModActorSelect)
		t.Outputs = []Output{Prompt("", actorMenu)}
	case StateModActorSelect:
		opt, ok := actorMenu.Lookup(in.Text)
		if !ok {
			err = r.reprompt(t, actorMenu)
			break
		}
		r.record(FactActor, opt.Label)
		r.moveTo(t, StateModActionSelect)
		t.Outputs = []Output{Prompt("", actionMenu)}
	case StateModActionSelect:
		opt, ok := actionMenu.Lookup(in.Text)
		if !ok {
			err = r.reprompt(t, actionMenu)
			break
		}
		r.Action = actionsByKey[opt.Key]
		r.record(FactAction, opt.Label)
		r.moveTo(t, StateReportComplete)
		if r.Target != nil {
			t.Effect = &Effect{
				Key:    r.ID + "/" + string(r.Action),
				Action: r.Action,
				Target: *r.Target,
			}
		}
		t.Outputs = []Output{Textf("Action recorded: %s.", opt.Label)}
	default:
		return t, fmt.Errorf("unhandled report state: %s", r.State)
	}
	return t, err
}

// input gating: only the party that owns the current branch may drive it. While waiting in
// review, the reporter may still withdraw the report.
func (r *Report) gate(in Input) error {
	switch r.Owner() {
	case BranchReporter:
		if in.Actor != ActorReporter {
			return ErrNotOwner
		}
	case BranchReview:
		if in.Actor == ActorReporter && !IsCancel(in.Text) {
			return ErrNotOwner
		}
	case BranchModerator:
		if in.Actor != ActorModerator {
			return ErrNotOwner
		}
	}
	return nil
}

func (r *Report) moveTo(t *Transition, s State) {
	r.State = s
	r.UpdatedAt = time.Now()
	t.To = s
}

func (r *Report) reprompt(t *Transition, m *Menu) error {
	t.Outputs = []Output{Text(msgUnrecognized), Prompt("", m)}
	return ErrInvalidInput
}

func (r *Report) handleReference(ctx context.Context, t *Transition, in Input, res Resolver) error {
	if res == nil {
		return fmt.Errorf("no reference resolver configured")
	}
	target, err := res.ResolveReference(ctx, strings.TrimSpace(in.Text))
	if err != nil {
		switch {
		case errors.Is(err, ErrMalformedReference):
			t.Outputs = []Output{Text("I'm sorry, I couldn't read that link. Please try again or say `cancel` to cancel.")}
		case errors.Is(err, ErrGuildNotFound):
			t.Outputs = []Output{Text("I cannot accept reports of messages from guilds that I'm not in. Please have the guild owner add me to the guild and try again.")}
		case errors.Is(err, ErrChannelNotFound):
			t.Outputs = []Output{Text("It seems this channel was deleted or never existed. Please try again or say `cancel` to cancel.")}
		default:
			t.Outputs = []Output{Text("It seems this message was deleted or never existed. Please try again or say `cancel` to cancel.")}
		}
		if errors.Is(err, ErrReferenceNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrReferenceNotFound, err)
	}
	r.Target = target
	r.moveTo(t, StateMessageIdentified)
	t.Outputs = []Output{Text("I found this message:\n" + target.Quote()), Prompt("", confirmMessageMenu)}
	return nil
}

func (r *Report) handleConfirm(t *Transition, in Input) error {
	switch parseAnswer(in.Text) {
	case answerYes:
		r.record(FactTarget, fmt.Sprintf("%s: %q", r.Target.AuthorName, r.Target.Content))
		r.moveTo(t, StateCategoryChosen)
		t.Outputs = []Output{Prompt("", categoryMenu)}
	case answerNo:
		r.Target = nil
		r.moveTo(t, StateAwaitingMessageReference)
		t.Outputs = []Output{Text("Okay. Please copy paste the link to the message you want to report.")}
	default:
		return r.reprompt(t, confirmMessageMenu)
	}
	return nil
}

func (r *Report) handleCategory(t *Transition, in Input) error {
	opt, ok := categoryMenu.Lookup(in.Text)
	if !ok {
		return r.reprompt(t, categoryMenu)
	}
	r.Category = opt.Key
	r.record(FactCategory, opt.Label)
	r.moveTo(t, StateSubtypeChosen)
	t.Outputs = []Output{Prompt("", categories[opt.Key].SubtypeMenu)}
	return nil
}

func (r *Report) handleSubtype(t *Transition, in Input) error {
	cat := categories[r.Category]
	opt, ok := cat.SubtypeMenu.Lookup(in.Text)
	if !ok {
		return r.reprompt(t, cat.SubtypeMenu)
	}
	r.record(FactSubtype, opt.Label)
	if cat.AskAdditionalInfo {
		r.moveTo(t, StateAdditionalInfoPrompt)
		t.Outputs = []Output{Prompt("", additionalInfoMenu)}
		return nil
	}
	r.moveTo(t, StateBlockChoice)
	t.Outputs = []Output{Prompt("", blockMenu)}
	return nil
}
