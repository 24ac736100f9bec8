package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/KathyFeiyang/cs152bots/triage/abusestore"
	"github.com/KathyFeiyang/cs152bots/triage/auditstore"
	"github.com/KathyFeiyang/cs152bots/triage/cachestore"
	"github.com/KathyFeiyang/cs152bots/triage/classifier"
	"github.com/KathyFeiyang/cs152bots/triage/countstore"
	"github.com/KathyFeiyang/cs152bots/triage/priority"
	"github.com/KathyFeiyang/cs152bots/triage/queue"
	"github.com/KathyFeiyang/cs152bots/triage/report"
	"github.com/KathyFeiyang/cs152bots/triage/reportid"
	"github.com/KathyFeiyang/cs152bots/triage/setstore"
	"github.com/KathyFeiyang/cs152bots/triage/transport"

	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("modbot/dispatch")

const throttledMessage = "You are temporarily suspended from making reports because you have made too many false reports recently. " +
	"We apologize for the inconvenience. If you believe this is a mistake, please contact the moderation team."

type Config struct {
	Logger     *slog.Logger
	Policy     priority.Policy
	Classifier classifier.Classifier
	// deadline for classifiers which are not already wrapped in a Guard
	ClassifierTimeout time.Duration
	Transport         transport.Transport
	Moderators        setstore.SetStore
	// defaults to an in-process store
	Abuse            abusestore.AbuseStore
	FalseReportLimit int
	// optional: caches resolved references and records applied effects
	Cache cachestore.CacheStore
	// optional: per-account report counters, shown to moderators
	Counters countstore.CountStore
	// optional: durable log of finalized reports
	Audit auditstore.AuditStore
	IDs   *reportid.Generator
}

// Dispatcher owns every active report, the triage queue and the moderator assignment table.
//
// All inputs for one report are serialized by that report's lock; inputs for different reports
// run in parallel.
type Dispatcher struct {
	Logger      *slog.Logger
	Policy      priority.Policy
	Classifier  classifier.Classifier
	Transport   transport.Transport
	Moderators  setstore.SetStore
	Abuse       *abusestore.Tracker
	Cache       cachestore.CacheStore
	Counters    countstore.CountStore
	Audit       auditstore.AuditStore
	IDs         *reportid.Generator
	Queue       *queue.Queue
	Assignments *Assignments

	active *xsync.MapOf[string, *activeReport]
	// serializes the lookup, pop and bind of assignment requests
	assignLk sync.Mutex

	refLookups singleflight.Group
}

type activeReport struct {
	lk  sync.Mutex
	rep *report.Report
	// set once the report has been released or withdrawn; later inputs see it as gone
	closed bool
}

func NewDispatcher(config Config) (*Dispatcher, error) {
	if config.Classifier == nil || config.Transport == nil || config.Moderators == nil {
		return nil, fmt.Errorf("%w: classifier, transport and moderator set are all required", ErrMissingResource)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	abuse := config.Abuse
	if abuse == nil {
		abuse = abusestore.NewMemAbuseStore()
	}
	ids := config.IDs
	if ids == nil {
		var err error
		ids, err = reportid.NewGenerator(0)
		if err != nil {
			return nil, err
		}
	}
	policy := config.Policy
	if policy.MaxRank == 0 {
		policy = priority.DefaultPolicy(policy.Mode)
	}
	cls := config.Classifier
	if _, ok := cls.(*classifier.Guard); !ok {
		g := classifier.NewGuard("default", cls, config.ClassifierTimeout, nil)
		g.Logger = logger.With("system", "classifier")
		cls = g
	}
	return &Dispatcher{
		Logger:      logger.With("system", "dispatch"),
		Policy:      policy,
		Classifier:  cls,
		Transport:   config.Transport,
		Moderators:  config.Moderators,
		Abuse:       abusestore.NewTracker(abuse, config.FalseReportLimit),
		Cache:       config.Cache,
		Counters:    config.Counters,
		Audit:       config.Audit,
		IDs:         ids,
		Queue:       queue.NewQueue(),
		Assignments: NewAssignments(),
		active:      xsync.NewMapOf[string, *activeReport](),
	}, nil
}

// classify never fails: an unavailable classifier yields the unknown score.
func (d *Dispatcher) classify(ctx context.Context, text string) *classifier.Result {
	res, err := d.Classifier.Classify(ctx, text)
	if err != nil || res == nil {
		d.Logger.Warn("classification failed, using unknown score", "err", err, "score", classifier.UnknownScore)
		return classifier.Unknown()
	}
	return res
}

// SubmitReport starts a report for a human reporter, with the event which started it (usually
// the "report" keyword). The report id is the reporter identity.
func (d *Dispatcher) SubmitReport(ctx context.Context, reporter, text string) (string, []report.Output, error) {
	if err := reportid.ValidateHuman(reporter); err != nil {
		return "", nil, err
	}
	if _, ok := d.active.Load(reporter); ok {
		return "", nil, ErrReportActive
	}

	throttled, err := d.Abuse.IsThrottled(ctx, reporter)
	if err != nil {
		// fail open: a broken abuse store should not stop reporting
		d.Logger.Error("checking abuse history", "reporter", reporter, "err", err)
	}
	if throttled {
		throttledSubmissions.Inc()
		d.Logger.Info("rejected report from throttled reporter", "reporter", reporter)
		return "", []report.Output{report.Text(throttledMessage)}, ErrThrottled
	}

	res := d.classify(ctx, text)
	r := report.New(reporter, res.Score, res.Label, d.Policy.HumanRank(res.Score))
	ar := &activeReport{rep: r}
	ar.lk.Lock()
	defer ar.lk.Unlock()
	if _, loaded := d.active.LoadOrStore(r.ID, ar); loaded {
		return "", nil, ErrReportActive
	}
	reportsCreated.WithLabelValues("human").Inc()
	activeReports.Inc()
	d.Logger.Info("report submitted", "report", r.ID, "score", res.Score, "rank", r.Rank)

	tr, err := r.Handle(ctx, report.Input{Actor: report.ActorReporter, Author: reporter, Text: text}, d.resolver())
	if r.IsTerminal() {
		d.withdraw(ar)
	}
	return r.ID, tr.Outputs, err
}

// Advance feeds one input to a report, and returns the outputs for the sender.
//
// Recoverable errors (invalid input, unresolvable references, input from the wrong party) are
// returned together with re-prompt outputs, and leave the report unchanged.
func (d *Dispatcher) Advance(ctx context.Context, id string, in report.Input) ([]report.Output, error) {
	ar, ok := d.active.Load(id)
	if !ok {
		return nil, ErrReportNotFound
	}
	ar.lk.Lock()
	defer ar.lk.Unlock()
	if ar.closed {
		return nil, ErrReportNotFound
	}
	r := ar.rep
	logger := d.Logger.With("report", r.ID)

	holder, assigned := d.Assignments.ReportHolder(r.ID)
	switch in.Actor {
	case report.ActorModerator:
		if !assigned || holder != in.Author {
			return []report.Output{report.Text("This report is not assigned to you.")}, report.ErrNotOwner
		}
	case report.ActorReporter:
		if r.Synthetic || in.Author != r.Reporter {
			return nil, report.ErrNotOwner
		}
		if r.State == report.StateInReview && assigned {
			return []report.Output{report.Text("This report is now with our moderation team. Thank you for your patience.")}, report.ErrNotOwner
		}
	}

	prev := r.State
	tr, err := r.Handle(ctx, in, d.resolver())
	if err != nil {
		return tr.Outputs, err
	}
	outs := tr.Outputs

	if tr.Effect != nil {
		if err := d.applyEffect(ctx, tr.Effect); err != nil {
			logger.Error("failed to apply moderation effect", "action", tr.Effect.Action, "err", err)
			outs = append(outs, report.Text("The selected action could not be fully carried out and needs manual follow-up."))
		}
	}

	if tr.To == report.StateInReview && prev != report.StateInReview {
		lane := d.Queue.AssignPriority(r.ID, r.Rank, false)
		d.countReport(ctx, r)
		logger.Info("report queued for review", "rank", r.Rank, "lane", lane)
	}

	if prev == report.StateInReview && tr.To == report.StateModTriageStart {
		if hist := d.reportHistory(ctx, r); hist != "" {
			outs = append(outs, report.Text(hist))
		}
	}

	if r.IsTerminal() {
		if !assigned {
			// withdrawn by the reporter before any moderator saw it
			d.withdraw(ar)
			logger.Info("report withdrawn", "from", prev)
		} else if err := d.release(ctx, ar, holder); err != nil {
			logger.Warn("report released with errors", "err", err)
		}
	}
	return outs, nil
}

// AutoFlag runs the priority policy over a classifier score for a referenced message. When the
// content does not need moderation, no report is created and the returned id is empty.
func (d *Dispatcher) AutoFlag(ctx context.Context, ref string, score float64, label string, sig priority.Signals) (string, error) {
	target, err := d.resolver().ResolveReference(ctx, ref)
	if err != nil {
		return "", err
	}
	return d.autoFlagTarget(ctx, *target, score, label, sig)
}

func (d *Dispatcher) autoFlagTarget(ctx context.Context, target report.Target, score float64, label string, sig priority.Signals) (string, error) {
	dec := d.Policy.Compute(score, sig)
	if !dec.Flagged() {
		return "", nil
	}
	rank := d.Policy.Rank(dec, score, sig)

	id := d.IDs.NewSynthetic()
	r := report.NewAutoFlag(id, target, score, label, rank)
	d.active.Store(id, &activeReport{rep: r})
	reportsCreated.WithLabelValues("auto-flag").Inc()
	activeReports.Inc()

	lane := d.Queue.AssignPriority(id, rank, dec.Override)
	d.countReport(ctx, r)
	d.Logger.Info("auto-flag report created", "report", id, "score", score, "rank", rank, "override", dec.Override, "lane", lane)
	return id, nil
}

// ScreenMessage classifies a channel message and files an auto-flag report when the policy
// requires it, forwarding a notice to the audit channel. Extra signals are merged with any
// the classifier returns.
func (d *Dispatcher) ScreenMessage(ctx context.Context, msg transport.Message, extra priority.Signals) (string, error) {
	ctx, span := tracer.Start(ctx, "ScreenMessage")
	defer span.End()

	res := d.classify(ctx, msg.Content)
	sig := priority.Signals{
		Distribution:  max(res.Signals.Distribution, extra.Distribution),
		Vulnerability: max(res.Signals.Vulnerability, extra.Vulnerability),
		Override:      res.Signals.Override || extra.Override,
	}
	id, err := d.autoFlagTarget(ctx, msg.Target(), res.Score, res.Label, sig)
	if err != nil {
		return "", err
	}
	if id == "" {
		screenedMessages.WithLabelValues("false").Inc()
		return "", nil
	}
	screenedMessages.WithLabelValues("true").Inc()
	if err := d.Transport.PostAudit(ctx, autoFlagNotice(msg, res, sig, id)); err != nil {
		d.Logger.Error("failed to post auto-flag notice", "report", id, "err", err)
	}
	return id, nil
}

func autoFlagNotice(msg transport.Message, res *classifier.Result, sig priority.Signals, id string) string {
	label := res.Label
	if label == "" {
		label = "none"
	}
	return fmt.Sprintf("**AUTO FLAGGING**\n%s: %q\n- Score: %.3f\n- Classification: %s\n- Special attention needed: %t\n- Report: %s\n",
		msg.AuthorName, msg.Content, res.Score, label, sig.Override, id)
}

// RequestAssignment hands the most urgent pending report to a moderator. A moderator who
// already holds a report gets ErrOngoingAssignment along with that report's id.
func (d *Dispatcher) RequestAssignment(ctx context.Context, moderator string) (string, error) {
	ok, err := d.Moderators.InSet(ctx, setstore.Moderators, moderator)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotModerator
	}

	d.assignLk.Lock()
	defer d.assignLk.Unlock()

	if id, ok := d.Assignments.Lookup(moderator); ok {
		assignmentRequests.WithLabelValues("ongoing").Inc()
		return id, ErrOngoingAssignment
	}
	for {
		e, ok := d.Queue.Next()
		if !ok {
			assignmentRequests.WithLabelValues("empty").Inc()
			return "", ErrQueueEmpty
		}
		bound, err := d.bindPending(moderator, e.ReportID)
		if err != nil {
			return "", err
		}
		if !bound {
			d.Logger.Warn("skipping stale queue entry", "report", e.ReportID)
			continue
		}
		assignmentRequests.WithLabelValues("assigned").Inc()
		d.Logger.Info("report assigned", "report", e.ReportID, "moderator", moderator, "rank", e.Rank)
		return e.ReportID, nil
	}
}

// bindPending binds a dequeued report under its lock, so a concurrent withdrawal either sees
// the binding or has already closed the report. Returns false if the report is gone.
func (d *Dispatcher) bindPending(moderator, id string) (bool, error) {
	ar, ok := d.active.Load(id)
	if !ok {
		return false, nil
	}
	ar.lk.Lock()
	defer ar.lk.Unlock()
	if ar.closed || ar.rep.State != report.StateInReview {
		return false, nil
	}
	if err := d.Assignments.Bind(moderator, id); err != nil {
		return false, err
	}
	return true, nil
}

// Release finalizes the report held by a moderator. The report must be terminal. Advance
// releases reports automatically when they reach a terminal state, so this is only needed
// by callers driving reports some other way.
func (d *Dispatcher) Release(ctx context.Context, moderator string) error {
	id, ok := d.Assignments.Lookup(moderator)
	if !ok {
		return ErrNoAssignment
	}
	ar, ok := d.active.Load(id)
	if !ok {
		d.Assignments.Unbind(moderator)
		return ErrReportNotFound
	}
	ar.lk.Lock()
	defer ar.lk.Unlock()
	if ar.closed {
		return nil
	}
	if !ar.rep.IsTerminal() {
		return ErrNotTerminal
	}
	return d.release(ctx, ar, moderator)
}

// release runs the ordered teardown of a terminal report, exactly once. Must hold ar.lk.
//
// Steps: notify the human reporter, post to the audit channel (and audit store), record a
// false report, then evict. Failures of the first three are logged and joined; eviction
// always happens.
func (d *Dispatcher) release(ctx context.Context, ar *activeReport, moderator string) error {
	if ar.closed {
		return nil
	}
	ar.closed = true
	r := ar.rep
	logger := d.Logger.With("report", r.ID, "moderator", moderator)
	var errs []error

	if !r.Synthetic {
		msg := "Your earlier report has been resolved: " + r.Resolution()
		if err := d.Transport.NotifyUser(ctx, r.Reporter, msg); err != nil {
			releaseErrors.WithLabelValues("notify").Inc()
			logger.Error("failed to notify reporter", "err", err)
			errs = append(errs, fmt.Errorf("notifying reporter: %w", err))
		}
	}

	if err := d.Transport.PostAudit(ctx, r.ModSummary()); err != nil {
		releaseErrors.WithLabelValues("audit").Inc()
		logger.Error("failed to post moderation summary", "err", err)
		errs = append(errs, fmt.Errorf("posting moderation summary: %w", err))
	}
	if d.Audit != nil {
		if err := d.Audit.Record(ctx, moderationRecord(r, moderator)); err != nil {
			releaseErrors.WithLabelValues("audit-store").Inc()
			logger.Error("failed to record moderation outcome", "err", err)
			errs = append(errs, fmt.Errorf("recording moderation outcome: %w", err))
		}
	}

	if r.FalseReporting && !r.Synthetic {
		if err := d.Abuse.RecordFalseReport(ctx, r.Reporter, r.ID, r.Stats().Reported); err != nil {
			releaseErrors.WithLabelValues("abuse").Inc()
			logger.Error("failed to record false report", "err", err)
			errs = append(errs, fmt.Errorf("recording false report: %w", err))
		}
	}

	d.active.Delete(r.ID)
	d.Queue.Remove(r.ID)
	d.Assignments.Unbind(moderator)
	activeReports.Dec()
	reportsFinalized.WithLabelValues(r.Outcome()).Inc()
	logger.Info("report released", "outcome", r.Outcome(), "false_reporting", r.FalseReporting)

	return errors.Join(errs...)
}

// withdraw evicts a report which never reached a moderator. Must hold ar.lk.
func (d *Dispatcher) withdraw(ar *activeReport) {
	if ar.closed {
		return
	}
	ar.closed = true
	d.Queue.Remove(ar.rep.ID)
	d.active.Delete(ar.rep.ID)
	activeReports.Dec()
	reportsWithdrawn.Inc()
}

func moderationRecord(r *report.Report, moderator string) *auditstore.ModerationRecord {
	rec := &auditstore.ModerationRecord{
		ReportID:       r.ID,
		Reporter:       r.Reporter,
		Synthetic:      r.Synthetic,
		Reported:       r.Stats().Reported,
		Score:          r.Score,
		Classification: r.Classification,
		Rank:           r.Rank,
		FinalState:     string(r.State),
		Outcome:        r.Outcome(),
		FalseReporting: r.FalseReporting,
		Moderator:      moderator,
		Summary:        r.Summary(),
	}
	if r.Target != nil {
		rec.MessageRef = r.Target.Reference
	}
	return rec
}

func (d *Dispatcher) countReport(ctx context.Context, r *report.Report) {
	if d.Counters == nil || r.Target == nil {
		return
	}
	reporter := r.Reporter
	if r.Synthetic {
		reporter = reportid.SyntheticPrefix
	}
	if err := countstore.RecordReport(ctx, d.Counters, r.Target.AuthorID, reporter); err != nil {
		d.Logger.Warn("failed to count report", "report", r.ID, "err", err)
	}
}

func (d *Dispatcher) reportHistory(ctx context.Context, r *report.Report) string {
	if d.Counters == nil || r.Target == nil {
		return ""
	}
	h, err := countstore.GetReportHistory(ctx, d.Counters, r.Target.AuthorID)
	if err != nil {
		d.Logger.Warn("failed to read report history", "report", r.ID, "err", err)
		return ""
	}
	return fmt.Sprintf("- Reported user history: %d reports (%d today) from %d distinct reporters", h.Total, h.Day, h.Reporters)
}

// Report returns a snapshot of an active report.
func (d *Dispatcher) Report(id string) (*report.Report, bool) {
	ar, ok := d.active.Load(id)
	if !ok {
		return nil, false
	}
	ar.lk.Lock()
	defer ar.lk.Unlock()
	if ar.closed {
		return nil, false
	}
	cp := *ar.rep
	cp.Transcript = slices.Clone(ar.rep.Transcript)
	if ar.rep.Target != nil {
		t := *ar.rep.Target
		cp.Target = &t
	}
	return &cp, true
}

func (d *Dispatcher) ActiveCount() int {
	return d.active.Size()
}

// Pending is the number of reports waiting in the triage queue.
func (d *Dispatcher) Pending() int {
	return d.Queue.Len()
}

// timestamp stored for applied effect steps
func effectStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
