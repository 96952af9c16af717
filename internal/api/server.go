package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shubh-37/music-brief-analyzer/internal/slack"
)

// Sharer publishes a refined brief outside the app.
type Sharer interface {
	ShareBrief(ctx context.Context, share slack.Share) (string, error)
}

type Deps struct {
	Sessions *Registry
	Relay    gin.HandlerFunc
	Sharer   Sharer
	// Health reports store reachability. Optional.
	Health func(ctx context.Context) error
}

// Server is the HTTP surface of the brief workflow
type Server struct {
	sessions *Registry
	sharer   Sharer
	health   func(ctx context.Context) error
	router   *gin.Engine
}

func NewServer(deps Deps) *Server {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	s := &Server{
		sessions: deps.Sessions,
		sharer:   deps.Sharer,
		health:   deps.Health,
		router:   router,
	}

	router.GET("/health", s.handleHealth)
	if deps.Relay != nil {
		router.POST("/api/claude", deps.Relay)
	}

	router.POST("/sessions", s.handleCreateSession)
	sessions := router.Group("/sessions/:sid")
	{
		sessions.GET("", s.handleSnapshot)
		sessions.DELETE("", s.handleDeleteSession)
		sessions.GET("/events", s.handleEvents)

		sessions.PUT("/brief", s.handleSetBrief)
		sessions.POST("/analyze", s.handleAnalyze)
		sessions.POST("/questions/start", s.handleStartQuestions)
		sessions.GET("/question", s.handleCurrentQuestion)
		sessions.PUT("/answer", s.handleDraftAnswer)
		sessions.POST("/answer", s.handleAnswer)

		sessions.GET("/output", s.handleOutput)
		sessions.POST("/edit", s.handleBeginEdit)
		sessions.PUT("/edit", s.handleUpdateEdit)
		sessions.POST("/edit/save", s.handleSaveEdit)
		sessions.DELETE("/edit", s.handleCancelEdit)
		sessions.POST("/share", s.handleShare)
		sessions.POST("/reset", s.handleStartOver)

		sessions.GET("/briefs", s.handleBriefs)
		sessions.DELETE("/briefs/:id", s.handleDeleteBrief)
		sessions.POST("/briefs/close", s.handleCloseBriefs)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}
