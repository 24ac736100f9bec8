package triage

import (
	"github.com/KathyFeiyang/cs152bots/triage/classifier"
	"github.com/KathyFeiyang/cs152bots/triage/dispatch"
	"github.com/KathyFeiyang/cs152bots/triage/priority"
	"github.com/KathyFeiyang/cs152bots/triage/queue"
	"github.com/KathyFeiyang/cs152bots/triage/report"
	"github.com/KathyFeiyang/cs152bots/triage/reportid"
	"github.com/KathyFeiyang/cs152bots/triage/transport"
)

type Dispatcher = dispatch.Dispatcher
type DispatcherConfig = dispatch.Config

type Report = report.Report
type ReportState = report.State
type Input = report.Input
type Output = report.Output
type Effect = report.Effect
type Target = report.Target

type Policy = priority.Policy
type Signals = priority.Signals
type Lane = queue.Lane

type Classifier = classifier.Classifier
type Transport = transport.Transport
type Message = transport.Message

const (
	ModeBestAccuracy  = priority.ModeBestAccuracy
	ModeRapidResponse = priority.ModeRapidResponse

	LaneHigh = queue.LaneHigh
	LaneLow  = queue.LaneLow
)

var (
	NewDispatcher = dispatch.NewDispatcher
	DefaultPolicy = priority.DefaultPolicy

	ErrInvalidInput          = report.ErrInvalidInput
	ErrReferenceNotFound     = report.ErrReferenceNotFound
	ErrNotOwner              = report.ErrNotOwner
	ErrClassifierUnavailable = classifier.ErrClassifierUnavailable
	ErrThrottled             = dispatch.ErrThrottled
	ErrOngoingAssignment     = dispatch.ErrOngoingAssignment
	ErrQueueEmpty            = dispatch.ErrQueueEmpty
	ErrReportNotFound        = dispatch.ErrReportNotFound
	ErrReportActive          = dispatch.ErrReportActive
	ErrNotModerator          = dispatch.ErrNotModerator
	ErrNotTerminal           = dispatch.ErrNotTerminal
	ErrInvalidIdentity       = reportid.ErrInvalidIdentity
)
