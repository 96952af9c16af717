package agents

import (
	"context"
	"fmt"
	"log"

	"github.com/shubh-37/music-brief-analyzer/internal/claude"
	"github.com/shubh-37/music-brief-analyzer/internal/models"
)

// Gateway sends chat messages to the LLM and returns the reply text
type Gateway interface {
	Send(ctx context.Context, messages []claude.Message, maxTokens int) (string, error)
}

// BriefAgent runs the two LLM passes: analyze and refine.
type BriefAgent struct {
	gateway   Gateway
	maxTokens int
}

func NewBriefAgent(gateway Gateway, maxTokens int) *BriefAgent {
	if maxTokens <= 0 {
		maxTokens = claude.DefaultMaxTokens
	}
	return &BriefAgent{gateway: gateway, maxTokens: maxTokens}
}

func (a *BriefAgent) Analyze(ctx context.Context, briefText string) (*models.Analysis, error) {
	responseText, err := a.ask(ctx, BuildAnalyzePrompt(briefText))
	if err != nil {
		return nil, err
	}

	analysis, err := ParseAnalysis(responseText)
	if err != nil {
		return nil, err
	}

	log.Printf("🎯 brief analyzed: score %.1f, %d questions", analysis.Score, len(analysis.Questions))
	return analysis, nil
}

func (a *BriefAgent) Refine(ctx context.Context, briefText string, analysis *models.Analysis, answers []models.Answer) (*models.RefineResult, error) {
	if analysis == nil {
		return nil, fmt.Errorf("refine requires an analysis")
	}

	responseText, err := a.ask(ctx, BuildRefinePrompt(briefText, analysis, answers))
	if err != nil {
		return nil, err
	}

	result, err := ParseRefine(responseText)
	if err != nil {
		return nil, err
	}

	log.Printf("✍️ brief refined: %q scored %.1f", result.Title, result.Score)
	return result, nil
}

func (a *BriefAgent) ask(ctx context.Context, prompt string) (string, error) {
	return a.gateway.Send(ctx, []claude.Message{{Role: "user", Content: prompt}}, a.maxTokens)
}
