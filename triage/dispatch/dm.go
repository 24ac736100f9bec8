package dispatch

import (
	"context"
	"errors"

	"github.com/KathyFeiyang/cs152bots/triage/report"
	"github.com/KathyFeiyang/cs152bots/triage/setstore"
)

const noReportsMessage = "There are no active reports to moderate. Thank you for checking."

// HandleDirectMessage routes one direct message to the right report, and delivers the
// resulting outputs back to the author.
//
// Moderators drive the report they hold, and are assigned the next pending report on their
// first message. Messages from moderators prefixed with "as user:" are treated as coming from
// a regular user. Users drive their own report, or start one with the "report" keyword;
// other messages are ignored.
func (d *Dispatcher) HandleDirectMessage(ctx context.Context, author, text string) ([]report.Output, error) {
	outs, err := d.routeDirectMessage(ctx, author, text)
	if len(outs) > 0 {
		if derr := d.Transport.Deliver(ctx, author, outs); derr != nil {
			d.Logger.Error("failed to deliver reply", "conversation", author, "err", derr)
		}
	}
	return outs, err
}

func (d *Dispatcher) routeDirectMessage(ctx context.Context, author, text string) ([]report.Output, error) {
	if report.IsHelp(text) {
		return []report.Output{report.Text(report.HelpText())}, nil
	}

	isMod, err := d.Moderators.InSet(ctx, setstore.Moderators, author)
	if err != nil {
		return nil, err
	}
	userText, asUser := report.StripUserOverride(text)

	if isMod && !asUser {
		id, ok := d.Assignments.Lookup(author)
		if !ok {
			id, err = d.RequestAssignment(ctx, author)
			if errors.Is(err, ErrQueueEmpty) {
				return []report.Output{report.Text(noReportsMessage)}, err
			}
			if err != nil && !errors.Is(err, ErrOngoingAssignment) {
				return nil, err
			}
		}
		return d.Advance(ctx, id, report.Input{Actor: report.ActorModerator, Author: author, Text: text})
	}

	if _, ok := d.active.Load(author); ok {
		return d.Advance(ctx, author, report.Input{Actor: report.ActorReporter, Author: author, Text: userText})
	}
	if !report.IsStart(userText) {
		return nil, nil
	}
	_, outs, err := d.SubmitReport(ctx, author, userText)
	return outs, err
}
