package dispatch

import (
	"sync"
)

// Assignments binds moderators to the report they are working on. The binding is one-to-one:
// a moderator holds at most one report, and a report is held by at most one moderator.
//
// Both directions change together under one lock.
type Assignments struct {
	lk          sync.Mutex
	byModerator map[string]string
	byReport    map[string]string
}

func NewAssignments() *Assignments {
	return &Assignments{
		byModerator: make(map[string]string),
		byReport:    make(map[string]string),
	}
}

func (a *Assignments) Bind(moderator, reportID string) error {
	a.lk.Lock()
	defer a.lk.Unlock()
	if _, ok := a.byModerator[moderator]; ok {
		return ErrOngoingAssignment
	}
	if _, ok := a.byReport[reportID]; ok {
		return ErrReportAssigned
	}
	a.byModerator[moderator] = reportID
	a.byReport[reportID] = moderator
	return nil
}

// Lookup returns the report held by a moderator.
func (a *Assignments) Lookup(moderator string) (string, bool) {
	a.lk.Lock()
	defer a.lk.Unlock()
	id, ok := a.byModerator[moderator]
	return id, ok
}

// ReportHolder returns the moderator holding a report.
func (a *Assignments) ReportHolder(reportID string) (string, bool) {
	a.lk.Lock()
	defer a.lk.Unlock()
	m, ok := a.byReport[reportID]
	return m, ok
}

// Unbind releases a moderator's assignment, returning the report id it held.
func (a *Assignments) Unbind(moderator string) (string, bool) {
	a.lk.Lock()
	defer a.lk.Unlock()
	id, ok := a.byModerator[moderator]
	if !ok {
		return "", false
	}
	delete(a.byModerator, moderator)
	delete(a.byReport, id)
	return id, true
}

func (a *Assignments) Len() int {
	a.lk.Lock()
	defer a.lk.Unlock()
	return len(a.byModerator)
}
