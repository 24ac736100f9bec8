package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/KathyFeiyang/cs152bots/triage/dispatch"
	"github.com/KathyFeiyang/cs152bots/triage/priority"
	"github.com/KathyFeiyang/cs152bots/triage/queue"
	"github.com/KathyFeiyang/cs152bots/triage/report"
	"github.com/KathyFeiyang/cs152bots/triage/reportid"
	"github.com/KathyFeiyang/cs152bots/triage/transport"

	"github.com/labstack/echo/v4"
)

type GenericError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

// Reply to a conversational request. A recoverable error (eg, unrecognized input) is reported
// alongside the re-prompt outputs.
type ConversationReply struct {
	ReportID string          `json:"report_id,omitempty"`
	Outputs  []report.Output `json:"outputs"`
	Error    string          `json:"error,omitempty"`
}

type ChannelMessageRequest struct {
	transport.Message
	Distribution  int  `json:"distribution,omitempty"`
	Vulnerability int  `json:"vulnerability,omitempty"`
	Override      bool `json:"override,omitempty"`
}

type DirectMessageRequest struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

type SubmitReportRequest struct {
	Reporter string `json:"reporter"`
	Text     string `json:"text"`
}

type AdvanceRequest struct {
	// "reporter" or "moderator"
	Actor  string `json:"actor"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

type AutoFlagRequest struct {
	Reference      string  `json:"reference"`
	Score          float64 `json:"score"`
	Classification string  `json:"classification,omitempty"`
	Distribution   int     `json:"distribution,omitempty"`
	Vulnerability  int     `json:"vulnerability,omitempty"`
	Override       bool    `json:"override,omitempty"`
}

type AutoFlagResponse struct {
	Flagged  bool   `json:"flagged"`
	ReportID string `json:"report_id,omitempty"`
}

type AssignmentResponse struct {
	ReportID string `json:"report_id"`
	Ongoing  bool   `json:"ongoing,omitempty"`
}

type QueueStatus struct {
	Active      int `json:"active"`
	Pending     int `json:"pending"`
	High        int `json:"high"`
	Low         int `json:"low"`
	Assignments int `json:"assignments"`
}

type ReportView struct {
	ID             string         `json:"id"`
	Reporter       string         `json:"reporter"`
	Synthetic      bool           `json:"synthetic"`
	State          report.State   `json:"state"`
	Target         *report.Target `json:"target,omitempty"`
	Score          float64        `json:"score"`
	Classification string         `json:"classification,omitempty"`
	Rank           int            `json:"rank"`
	Transcript     []report.Fact  `json:"transcript"`
	Moderator      string         `json:"moderator,omitempty"`
}

// maps dispatcher and report errors to an HTTP status and error name
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, report.ErrInvalidInput):
		return http.StatusUnprocessableEntity, "InvalidInput"
	case errors.Is(err, report.ErrReferenceNotFound):
		return http.StatusUnprocessableEntity, "ReferenceNotFound"
	case errors.Is(err, report.ErrNotOwner):
		return http.StatusForbidden, "NotOwner"
	case errors.Is(err, report.ErrTerminal):
		return http.StatusConflict, "ReportClosed"
	case errors.Is(err, dispatch.ErrThrottled):
		return http.StatusTooManyRequests, "Throttled"
	case errors.Is(err, dispatch.ErrReportActive):
		return http.StatusConflict, "ReportActive"
	case errors.Is(err, dispatch.ErrOngoingAssignment):
		return http.StatusConflict, "OngoingAssignment"
	case errors.Is(err, dispatch.ErrNotTerminal):
		return http.StatusConflict, "ReportNotClosed"
	case errors.Is(err, dispatch.ErrQueueEmpty):
		return http.StatusNotFound, "QueueEmpty"
	case errors.Is(err, dispatch.ErrReportNotFound):
		return http.StatusNotFound, "ReportNotFound"
	case errors.Is(err, dispatch.ErrNoAssignment):
		return http.StatusNotFound, "NoAssignment"
	case errors.Is(err, dispatch.ErrNotModerator):
		return http.StatusForbidden, "NotModerator"
	case errors.Is(err, reportid.ErrInvalidIdentity):
		return http.StatusBadRequest, "InvalidIdentity"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

func conversationReply(c echo.Context, okStatus int, id string, outs []report.Output, err error) error {
	if outs == nil {
		outs = []report.Output{}
	}
	if err == nil {
		return c.JSON(okStatus, ConversationReply{ReportID: id, Outputs: outs})
	}
	code, name := errorStatus(err)
	if code >= 500 {
		return err
	}
	return c.JSON(code, ConversationReply{ReportID: id, Outputs: outs, Error: name})
}

func errorReply(c echo.Context, err error) error {
	code, name := errorStatus(err)
	if code >= 500 {
		return err
	}
	return c.JSON(code, GenericError{Error: name, Message: err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, GenericError{Error: "BadRequest", Message: msg})
}

// HandleChannelMessage registers a channel message with the platform and queues it for
// screening. Messages in the same channel are screened in order.
func (srv *Server) HandleChannelMessage(c echo.Context) error {
	ctx := c.Request().Context()

	var req ChannelMessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid body: %s", err))
	}
	msg := req.Message
	if msg.GuildID == "" || msg.ChannelID == "" || msg.MessageID == "" || msg.AuthorID == "" {
		return badRequest(c, "guild_id, channel_id, message_id and author_id are required")
	}
	messagesReceived.Inc()
	srv.platform.RegisterMessage(msg)

	task := screenTask{
		Message: msg,
		Signals: priority.Signals{
			Distribution:  req.Distribution,
			Vulnerability: req.Vulnerability,
			Override:      req.Override,
		},
	}
	if err := srv.screener.AddWork(ctx, msg.GuildID+"/"+msg.ChannelID, task); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, GenericStatus{Status: "queued", Daemon: "modbot", Message: msg.Link()})
}

func (srv *Server) HandleDirectMessage(c echo.Context) error {
	ctx := c.Request().Context()

	var req DirectMessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid body: %s", err))
	}
	if req.Author == "" {
		return badRequest(c, "author is required")
	}
	directMessagesReceived.Inc()
	outs, err := srv.dispatcher.HandleDirectMessage(ctx, req.Author, req.Text)
	return conversationReply(c, http.StatusOK, "", outs, err)
}

func (srv *Server) HandleSubmitReport(c echo.Context) error {
	ctx := c.Request().Context()

	var req SubmitReportRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid body: %s", err))
	}
	if req.Text == "" {
		req.Text = report.StartKeyword
	}
	id, outs, err := srv.dispatcher.SubmitReport(ctx, req.Reporter, req.Text)
	return conversationReply(c, http.StatusCreated, id, outs, err)
}

func (srv *Server) HandleAdvanceReport(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var req AdvanceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid body: %s", err))
	}
	in := report.Input{Author: req.Author, Text: req.Text}
	switch req.Actor {
	case "reporter", "":
		in.Actor = report.ActorReporter
	case "moderator":
		in.Actor = report.ActorModerator
	default:
		return badRequest(c, fmt.Sprintf("unknown actor: %q", req.Actor))
	}
	outs, err := srv.dispatcher.Advance(ctx, id, in)
	return conversationReply(c, http.StatusOK, id, outs, err)
}

func (srv *Server) HandleGetReport(c echo.Context) error {
	id := c.Param("id")
	r, ok := srv.dispatcher.Report(id)
	if !ok {
		return errorReply(c, dispatch.ErrReportNotFound)
	}
	view := ReportView{
		ID:             r.ID,
		Reporter:       r.Reporter,
		Synthetic:      r.Synthetic,
		State:          r.State,
		Target:         r.Target,
		Score:          r.Score,
		Classification: r.Classification,
		Rank:           r.Rank,
		Transcript:     r.Transcript,
	}
	if m, ok := srv.dispatcher.Assignments.ReportHolder(id); ok {
		view.Moderator = m
	}
	return c.JSON(http.StatusOK, view)
}

func (srv *Server) HandleAutoFlag(c echo.Context) error {
	ctx := c.Request().Context()

	var req AutoFlagRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid body: %s", err))
	}
	if req.Score < 0 || req.Score > 1 {
		return badRequest(c, "score must be between 0 and 1")
	}
	sig := priority.Signals{
		Distribution:  req.Distribution,
		Vulnerability: req.Vulnerability,
		Override:      req.Override,
	}
	id, err := srv.dispatcher.AutoFlag(ctx, req.Reference, req.Score, req.Classification, sig)
	if err != nil {
		return errorReply(c, err)
	}
	if id == "" {
		return c.JSON(http.StatusOK, AutoFlagResponse{Flagged: false})
	}
	return c.JSON(http.StatusCreated, AutoFlagResponse{Flagged: true, ReportID: id})
}

func (srv *Server) HandleRequestAssignment(c echo.Context) error {
	ctx := c.Request().Context()
	moderator := c.Param("id")

	id, err := srv.dispatcher.RequestAssignment(ctx, moderator)
	if errors.Is(err, dispatch.ErrOngoingAssignment) {
		return c.JSON(http.StatusConflict, AssignmentResponse{ReportID: id, Ongoing: true})
	}
	if err != nil {
		return errorReply(c, err)
	}
	return c.JSON(http.StatusOK, AssignmentResponse{ReportID: id})
}

func (srv *Server) HandleRelease(c echo.Context) error {
	ctx := c.Request().Context()
	moderator := c.Param("id")

	if err := srv.dispatcher.Release(ctx, moderator); err != nil {
		code, _ := errorStatus(err)
		if code < 500 {
			return errorReply(c, err)
		}
		// the report was still evicted; surface the partial failure without retrying
		slog.Warn("report released with errors", "moderator", moderator, "err", err)
		return c.JSON(http.StatusOK, GenericStatus{Status: "released", Daemon: "modbot", Message: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (srv *Server) HandleQueueStatus(c echo.Context) error {
	d := srv.dispatcher
	return c.JSON(http.StatusOK, QueueStatus{
		Active:      d.ActiveCount(),
		Pending:     d.Pending(),
		High:        d.Queue.LaneLen(queue.LaneHigh),
		Low:         d.Queue.LaneLen(queue.LaneLow),
		Assignments: d.Assignments.Len(),
	})
}

func (srv *Server) HandleOutbox(c echo.Context) error {
	drain, _ := strconv.ParseBool(c.QueryParam("drain"))
	return c.JSON(http.StatusOK, srv.platform.Outbox(c.Param("conversation"), drain))
}

func (srv *Server) HandleAuditChannel(c echo.Context) error {
	return c.JSON(http.StatusOK, srv.platform.Audit())
}

func (srv *Server) HandleAuditRecords(c echo.Context) error {
	ctx := c.Request().Context()
	if srv.audit == nil {
		return c.JSON(http.StatusNotFound, GenericError{Error: "NotConfigured", Message: "no audit database configured"})
	}
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = n
	}
	if reported := c.QueryParam("reported"); reported != "" {
		recs, err := srv.audit.ForReported(ctx, reported)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, recs)
	}
	recs, err := srv.audit.Recent(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var errorMessage string
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		errorMessage = fmt.Sprintf("%s", he.Message)
	}
	if code >= 500 {
		srv.logger.Warn("modbot-http-internal-error", "err", err)
	}
	c.JSON(code, GenericStatus{Status: "error", Daemon: "modbot", Message: errorMessage})
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "modbot"})
}
