package models

import (
	"fmt"
	"strconv"
	"time"
)

// QuestionCategory groups a clarifying question
type QuestionCategory string

const (
	CategoryEmotional QuestionCategory = "emotional"
	CategoryMusical   QuestionCategory = "musical"
	CategoryPractical QuestionCategory = "practical"
	CategoryAudience  QuestionCategory = "audience"
)

// Question is one clarifying question proposed by the analysis
type Question struct {
	Question string           `json:"question"`
	Context  string           `json:"context"`
	Category QuestionCategory `json:"category"`
}

// Analysis is the scored breakdown of a submitted brief
type Analysis struct {
	Score     float64    `json:"score"`
	Strengths []string   `json:"strengths"`
	Gaps      []string   `json:"gaps"`
	Questions []Question `json:"questions"`
}

// Answer is keyed by the exact question text, not by index
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// RefineResult is the output of the refinement pass
type RefineResult struct {
	Title        string  `json:"title"`
	RefinedBrief string  `json:"refinedBrief"`
	Score        float64 `json:"score"`
}

// BriefState is the live working copy owned by one workflow session
type BriefState struct {
	ID              string     `json:"id,omitempty"`
	BriefText       string     `json:"briefText"`
	Title           string     `json:"title"`
	Analysis        *Analysis  `json:"analysis"`
	CurrentQuestion int        `json:"currentQuestion"`
	Answers         []Answer   `json:"answers"`
	RefinedBrief    string     `json:"refinedBrief"`
	FinalScore      *float64   `json:"finalScore"`
	IsEditing       bool       `json:"isEditing"`
	CreatedAt       *time.Time `json:"createdAt"`
}

// BriefRecord is the persisted projection of a BriefState
type BriefRecord struct {
	BriefID           string     `json:"briefId,omitempty"`
	Title             string     `json:"title,omitempty"`
	OriginalBriefText string     `json:"originalBriefText,omitempty"`
	Analysis          *Analysis  `json:"analysis,omitempty"`
	Score             *float64   `json:"score,omitempty"`
	Answers           []Answer   `json:"answers,omitempty"`
	RefinedBrief      string     `json:"refinedBrief,omitempty"`
	FinalScore        *float64   `json:"finalScore,omitempty"`
	CreatedAt         *time.Time `json:"createdAt,omitempty"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

// ListedBrief is one entry of the past briefs listing
type ListedBrief struct {
	ID     string      `json:"id"`
	Record BriefRecord `json:"data"`
}

// Clone returns a deep copy so callers can hand the state to other
// goroutines without sharing slices.
func (s BriefState) Clone() BriefState {
	out := s
	out.Answers = append([]Answer(nil), s.Answers...)
	if s.Analysis != nil {
		a := *s.Analysis
		a.Strengths = append([]string(nil), s.Analysis.Strengths...)
		a.Gaps = append([]string(nil), s.Analysis.Gaps...)
		a.Questions = append([]Question(nil), s.Analysis.Questions...)
		out.Analysis = &a
	}
	if s.FinalScore != nil {
		v := *s.FinalScore
		out.FinalScore = &v
	}
	if s.CreatedAt != nil {
		v := *s.CreatedAt
		out.CreatedAt = &v
	}
	return out
}

// ToRecord projects the state onto its persisted shape. UpdatedAt is left
// for the store to stamp.
func (s BriefState) ToRecord() *BriefRecord {
	c := s.Clone()
	rec := &BriefRecord{
		BriefID:           c.ID,
		Title:             c.Title,
		OriginalBriefText: c.BriefText,
		Analysis:          c.Analysis,
		RefinedBrief:      c.RefinedBrief,
		FinalScore:        c.FinalScore,
		CreatedAt:         c.CreatedAt,
	}
	if c.Analysis != nil {
		score := c.Analysis.Score
		rec.Score = &score
	}
	if len(c.Answers) > 0 {
		rec.Answers = c.Answers
	}
	return rec
}

// Hydrate fills the persisted fields of a state from a record. The
// question cursor and edit flag are left untouched.
func (s *BriefState) Hydrate(id string, rec *BriefRecord) {
	s.ID = id
	s.Title = rec.Title
	s.BriefText = rec.OriginalBriefText
	s.Analysis = rec.Analysis
	s.Answers = rec.Answers
	if s.Answers == nil {
		s.Answers = []Answer{}
	}
	s.RefinedBrief = rec.RefinedBrief
	s.FinalScore = rec.FinalScore
	s.CreatedAt = rec.CreatedAt
}

// UpsertAnswer replaces the entry whose question text matches, otherwise
// appends. The input slice is not modified.
func UpsertAnswer(answers []Answer, question, answer string) []Answer {
	out := make([]Answer, 0, len(answers)+1)
	replaced := false
	for _, a := range answers {
		if !replaced && a.Question == question {
			out = append(out, Answer{Question: question, Answer: answer})
			replaced = true
			continue
		}
		out = append(out, a)
	}
	if !replaced {
		out = append(out, Answer{Question: question, Answer: answer})
	}
	return out
}

// FindAnswer returns the answer recorded for question, or "".
func FindAnswer(answers []Answer, question string) string {
	for _, a := range answers {
		if a.Question == question {
			return a.Answer
		}
	}
	return ""
}

// DisplayTitle falls back to a placeholder for briefs that never got refined
func (b ListedBrief) DisplayTitle() string {
	if b.Record.Title == "" {
		return "Untitled Brief"
	}
	return b.Record.Title
}

// ScoreLabel renders the before/after score column of the listing
func (b ListedBrief) ScoreLabel() string {
	r := b.Record
	switch {
	case r.Score != nil && r.FinalScore != nil:
		return fmt.Sprintf("%s/10 → %s/10", formatScore(*r.Score), formatScore(*r.FinalScore))
	case r.FinalScore != nil:
		return formatScore(*r.FinalScore) + "/10"
	case r.Score != nil:
		return formatScore(*r.Score) + "/10"
	}
	return "—"
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
