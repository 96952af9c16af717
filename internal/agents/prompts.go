package agents

import (
	"fmt"
	"strings"

	"github.com/shubh-37/music-brief-analyzer/internal/models"
)

// BuildAnalyzePrompt embeds the brief verbatim into the scoring rubric.
func BuildAnalyzePrompt(briefText string) string {
	return fmt.Sprintf(`You are an expert music supervisor analyzing a music brief. 

Score this brief out of 10 using this framework:

ESSENTIAL (6 points possible):
- Clear emotional direction (2 pts) - How should viewer feel?
- Visual/narrative context (2 pts) - What's happening on screen?
- Music's role (2 pts) - Hero or supportive? Under VO?

STRONG (3 points possible):
- Specific musical characteristics (1 pt) - Tempo, instrumentation, vocals
- Reference tracks with context (1 pt) - Not just "I like this" but WHY
- Practical details (1 pt) - Stems needed? Multiple cuts? Budget range?

EXCELLENT (1 point possible):
- Target audience insights (0.5 pts)
- Cultural/sonic strategy (0.5 pts)

Analyze this brief and return a JSON object with this structure:
{
  "score": <number out of 10>,
  "strengths": ["strength 1", "strength 2"],
  "gaps": ["gap 1", "gap 2", "gap 3"],
  "questions": [
    {"question": "...", "context": "why we're asking", "category": "emotional|musical|practical|audience"},
    ...3-5 questions total
  ]
}

Brief to analyze:
%s

Return ONLY the JSON object, no other text.`, briefText)
}

// FormatTranscript renders answers as "Q: ...\nA: ..." pairs separated by
// blank lines, in the order given.
func FormatTranscript(answers []models.Answer) string {
	pairs := make([]string, 0, len(answers))
	for _, a := range answers {
		pairs = append(pairs, fmt.Sprintf("Q: %s\nA: %s", a.Question, a.Answer))
	}
	return strings.Join(pairs, "\n\n")
}

// BuildRefinePrompt combines the original brief and the Q&A transcript
// into the refinement template. The analysis is accepted for parity with
// the analyze call but the template only re-scores against the rubric.
func BuildRefinePrompt(briefText string, _ *models.Analysis, answers []models.Answer) string {
	return fmt.Sprintf(`You are an expert music supervisor. Create a refined, professional music brief.

Original brief:
%s

Questions asked and answers:
%s

Create a refined brief in this style (use clear sections, be specific, include all relevant details):

# Music Brief: [Project Name]

## Project Context
[What's happening visually/narratively]

## Emotional Direction
[How should the viewer feel? What's the emotional journey?]

## Musical Characteristics
- Tempo: [BPM range or descriptive]
- Instrumentation: [Specific instruments or sound palette]
- Vocals: [Male/Female/None/Instrumental]
- Genre/Style: [Specific but not limiting]

## Reference Tracks
[Track name - Artist]
- Why this reference: [What specifically do you like?]

## Practical Requirements
- Duration: [Length needed]
- Role of music: [Hero/supportive, under VO, etc.]
- Stems needed: [Yes/No]
- Other technical needs: [Any special requirements]

## Target Audience
[Who are we reaching and why does it matter?]

## Additional Context
[Budget range, territory, usage rights, deadlines, etc.]

Now re-score this refined brief out of 10 using the same scoring framework as the original analysis.

Return your response as a JSON object with this structure:
{
  "title": "<short descriptive title for this brief, 3-7 words>",
  "refinedBrief": "<the full refined brief in markdown format>",
  "score": <number out of 10>
}

Write the brief in a professional, clear tone. Be specific but not restrictive. Give the music supervisor enough to work with while leaving room for creative discovery.

Return ONLY the JSON object, no other text.`, briefText, FormatTranscript(answers))
}
