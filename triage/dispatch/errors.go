package dispatch

import (
	"errors"
)

var (
	// the reporter has reached the false-report limit; no report was created
	ErrThrottled = errors.New("reporter is throttled for false reporting")
	// the moderator already holds an assignment; the current report id is returned alongside
	ErrOngoingAssignment = errors.New("moderator already holds an assignment")
	// nothing pending in either lane. Not a failure.
	ErrQueueEmpty = errors.New("no pending reports")

	ErrReportNotFound  = errors.New("report not found")
	ErrReportActive    = errors.New("reporter already has an active report")
	ErrReportAssigned  = errors.New("report is already assigned to a moderator")
	ErrNotModerator    = errors.New("identity is not a moderator")
	ErrNoAssignment    = errors.New("moderator holds no assignment")
	ErrNotTerminal     = errors.New("report has not reached a terminal state")
	ErrMissingResource = errors.New("dispatcher missing required resource")
)
