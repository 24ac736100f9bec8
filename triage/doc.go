// Triage engine for reports of harmful content in community chat servers.
//
// This package (`github.com/KathyFeiyang/cs152bots/triage`) ties together the pieces of a moderation bot: a classifier scores incoming messages, a priority policy decides whether content needs a human, and flagged content becomes a report in a two-lane triage queue. Users file reports through a guided conversation, moderators claim the most urgent pending report and walk it to an outcome, and reporters who file too many unfounded reports are temporarily throttled.
//
// The core types live in sub-packages (`triage/report`, `triage/dispatch`, `triage/queue`, ...); this package re-exports the commonly used ones. See `cmd/modbot` for a daemon built on it.
package triage
