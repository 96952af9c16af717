package agents

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shubh-37/music-brief-analyzer/internal/apperr"
	"github.com/shubh-37/music-brief-analyzer/internal/models"
)

var (
	openFence  = regexp.MustCompile("(?i)^```[ \\t]*(?:json)?[ \\t]*\\r?\\n?")
	closeFence = regexp.MustCompile("\\r?\\n?[ \\t]*```$")
)

// StripFences removes a leading ```json marker and a trailing ``` marker.
// Whitespace around either marker is ignored.
func StripFences(raw string) string {
	out := openFence.ReplaceAllString(strings.TrimSpace(raw), "")
	out = closeFence.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

type rawAnalysis struct {
	Score     *float64          `json:"score"`
	Strengths []string          `json:"strengths"`
	Gaps      []string          `json:"gaps"`
	Questions []models.Question `json:"questions"`
}

type rawRefine struct {
	Title        string   `json:"title"`
	RefinedBrief string   `json:"refinedBrief"`
	Score        *float64 `json:"score"`
}

// ParseAnalysis decodes the analyze call's output. There is no repair of
// broken JSON.
func ParseAnalysis(raw string) (*models.Analysis, error) {
	var in rawAnalysis
	if err := json.Unmarshal([]byte(StripFences(raw)), &in); err != nil {
		return nil, apperr.Malformed("analysis is not valid JSON", err)
	}
	if err := checkScore(in.Score); err != nil {
		return nil, err
	}
	if len(in.Questions) == 0 {
		return nil, apperr.Malformed("analysis has no questions", nil)
	}

	questions := make([]models.Question, 0, len(in.Questions))
	for _, q := range in.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return nil, apperr.Malformed("analysis has an empty question", nil)
		}
		q.Category = models.QuestionCategory(strings.ToLower(strings.TrimSpace(string(q.Category))))
		questions = append(questions, q)
	}

	out := &models.Analysis{
		Score:     *in.Score,
		Strengths: in.Strengths,
		Gaps:      in.Gaps,
		Questions: questions,
	}
	if out.Strengths == nil {
		out.Strengths = []string{}
	}
	if out.Gaps == nil {
		out.Gaps = []string{}
	}
	return out, nil
}

// ParseRefine decodes the refine call's output.
func ParseRefine(raw string) (*models.RefineResult, error) {
	var in rawRefine
	if err := json.Unmarshal([]byte(StripFences(raw)), &in); err != nil {
		return nil, apperr.Malformed("refined brief is not valid JSON", err)
	}
	if err := checkScore(in.Score); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.RefinedBrief) == "" {
		return nil, apperr.Malformed("refined brief is missing", nil)
	}
	return &models.RefineResult{
		Title:        strings.TrimSpace(in.Title),
		RefinedBrief: in.RefinedBrief,
		Score:        *in.Score,
	}, nil
}

func checkScore(score *float64) error {
	if score == nil {
		return apperr.Malformed("score is missing", nil)
	}
	if *score < 0 || *score > 10 {
		return apperr.Malformed("score is outside 0-10", nil)
	}
	return nil
}
