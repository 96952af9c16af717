package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shubh-37/music-brief-analyzer/internal/apperr"
	"github.com/shubh-37/music-brief-analyzer/internal/messages"
	"github.com/shubh-37/music-brief-analyzer/internal/slack"
	"github.com/shubh-37/music-brief-analyzer/internal/workflow"
)

type briefRequest struct {
	BriefText string `json:"briefText"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type editRequest struct {
	HTML string `json:"html"`
}

// session resolves :sid or writes a 404.
func (s *Server) session(c *gin.Context) (*workflow.Controller, bool) {
	ctrl, ok := s.sessions.Get(c.Param("sid"))
	if !ok {
		fail(c, nil, apperr.NotFound("session not found"))
		return nil, false
	}
	return ctrl, true
}

// run executes op and replies with the resulting snapshot.
func (s *Server) run(c *gin.Context, op func(ctrl *workflow.Controller) error) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	if err := op(ctrl); err != nil {
		fail(c, ctrl, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (s *Server) handleCreateSession(c *gin.Context) {
	id, ctrl := s.sessions.Create(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{
		"sessionId": id,
		"snapshot":  ctrl.Snapshot(),
	})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	s.run(c, func(*workflow.Controller) error { return nil })
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if !s.sessions.Remove(c.Param("sid")) {
		fail(c, nil, apperr.NotFound("session not found"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetBrief(c *gin.Context) {
	s.run(c, func(ctrl *workflow.Controller) error {
		var req briefRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.Validation("invalid request body: " + err.Error())
		}
		return ctrl.SetBriefText(req.BriefText)
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	s.run(c, func(ctrl *workflow.Controller) error {
		return ctrl.Analyze(c.Request.Context())
	})
}

func (s *Server) handleStartQuestions(c *gin.Context) {
	s.run(c, func(ctrl *workflow.Controller) error {
		return ctrl.StartQuestions()
	})
}

func (s *Server) handleCurrentQuestion(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	q, answer, err := ctrl.CurrentQuestion()
	if err != nil {
		fail(c, ctrl, err)
		return
	}

	snap := ctrl.Snapshot()
	total := 0
	if snap.Brief.Analysis != nil {
		total = len(snap.Brief.Analysis.Questions)
	}
	c.JSON(http.StatusOK, gin.H{
		"label":    messages.Format(messages.Default().Questions.QuestionLabel, "current", snap.Brief.CurrentQuestion+1, "total", total),
		"question": q,
		"answer":   answer,
	})
}

func (s *Server) handleDraftAnswer(c *gin.Context) {
	s.run(c, func(ctrl *workflow.Controller) error {
		var req answerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.Validation("invalid request body: " + err.Error())
		}
		return ctrl.DraftAnswer(req.Answer)
	})
}

func (s *Server) handleAnswer(c *gin.Context) {
	s.run(c, func(ctrl *workflow.Controller) error {
		var req answerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.Validation("invalid request body: " + err.Error())
		}
		return ctrl.Answer(c.Request.Context(), req.Answer)
	})
}

// handleOutput serves the deep link. The record named by ?id= is loaded
// only when no refined brief is in memory; a failed load leaves the
// session as it was.
func (s *Server) handleOutput(c *gin.Context) {
	s.run(c, func(ctrl *workflow.Controller) error {
		id := c.Query("id")
		if id != "" && ctrl.Snapshot().Brief.RefinedBrief == "" {
			ctrl.LoadByID(c.Request.Context(), id)
		}
		return nil
	})
}

func (s *Server) handleBeginEdit(c *gin.Context) {
	s.run(c, func(ctrl *workflow.Controller) error {
		_, err := ctrl.BeginEdit()
		return err
	})
}

func (s *Server) handleUpdateEdit(c *gin.Context) {
	s.run(c, func(ctrl *workflow.Controller) error {
		var req editRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.Validation("invalid request body: " + err.Error())
		}
		return ctrl.UpdateEdit(req.HTML)
	})
}

func (s *Server) handleSaveEdit(c *gin.Context) {
	s.run(c, func(ctrl *workflow.Controller) error {
		return ctrl.SaveEdit(c.Request.Context())
	})
}

func (s *Server) handleCancelEdit(c *gin.Context) {
	s.run(c, func(ctrl *workflow.Controller) error {
		ctrl.CancelEdit()
		return nil
	})
}

func (s *Server) handleStartOver(c *gin.Context) {
	s.run(c, func(ctrl *workflow.Controller) error {
		ctrl.StartOver(c.Request.Context())
		return nil
	})
}

func (s *Server) handleShare(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	if s.sharer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sharing is not configured"})
		return
	}

	brief := ctrl.Snapshot().Brief
	if brief.RefinedBrief == "" {
		fail(c, ctrl, apperr.Conflict("there is no refined brief to share"))
		return
	}

	ts, err := s.sharer.ShareBrief(c.Request.Context(), slack.Share{
		Title:    brief.Title,
		Score:    brief.FinalScore,
		Markdown: brief.RefinedBrief,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ts":      ts,
		"message": messages.Default().Output.SharedAlert,
	})
}

type listedBrief struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Score string `json:"score"`
	Date  string `json:"date,omitempty"`
}

func (s *Server) handleBriefs(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	briefs, err := ctrl.ShowBriefs(c.Request.Context())
	if err != nil {
		fail(c, ctrl, err)
		return
	}

	rows := make([]listedBrief, 0, len(briefs))
	for _, b := range briefs {
		row := listedBrief{ID: b.ID, Title: b.DisplayTitle(), Score: b.ScoreLabel()}
		if b.Record.CreatedAt != nil {
			row.Date = b.Record.CreatedAt.Format("Jan 2, 2006")
		}
		rows = append(rows, row)
	}

	body := gin.H{"briefs": rows}
	if len(rows) == 0 {
		body["message"] = messages.Default().Briefs.EmptyState
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleDeleteBrief(c *gin.Context) {
	s.run(c, func(ctrl *workflow.Controller) error {
		ctrl.DeleteBrief(c.Request.Context(), c.Param("id"))
		return nil
	})
}

func (s *Server) handleCloseBriefs(c *gin.Context) {
	s.run(c, func(ctrl *workflow.Controller) error {
		return ctrl.CloseBriefs()
	})
}
