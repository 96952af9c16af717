// Package workflow drives one brief through input, analysis, questions,
// refinement and output.
package workflow

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/shubh-37/music-brief-analyzer/internal/apperr"
	"github.com/shubh-37/music-brief-analyzer/internal/markdown"
	"github.com/shubh-37/music-brief-analyzer/internal/messages"
	"github.com/shubh-37/music-brief-analyzer/internal/models"
)

type Step string

const (
	StepInput      Step = "input"
	StepAnalyzing  Step = "analyzing"
	StepAnalysis   Step = "analysis"
	StepQuestions  Step = "questions"
	StepGenerating Step = "generating"
	StepOutput     Step = "output"
	StepBriefs     Step = "briefs"
)

const (
	MinBriefLength  = 50
	BriefsListLimit = 100
)

// Agent runs the two LLM passes
type Agent interface {
	Analyze(ctx context.Context, briefText string) (*models.Analysis, error)
	Refine(ctx context.Context, briefText string, analysis *models.Analysis, answers []models.Answer) (*models.RefineResult, error)
}

// Store is the brief document collection
type Store interface {
	Save(ctx context.Context, id string, rec *models.BriefRecord) (string, error)
	Load(ctx context.Context, id string) (*models.BriefRecord, error)
	Search(ctx context.Context, limit int) ([]models.ListedBrief, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// Snapshot is a copy of the controller state for the presentation layer.
// Seq grows with every delivered change; a client that sees a Seq no
// greater than the last one it applied can drop it.
type Snapshot struct {
	Seq         uint64               `json:"seq"`
	Step        Step                 `json:"step"`
	Brief       models.BriefState    `json:"brief"`
	BriefsTotal int                  `json:"briefsTotal"`
	Error       string               `json:"error,omitempty"`
	Edit        *markdown.EditBuffer `json:"edit,omitempty"`
	Briefs      []models.ListedBrief `json:"briefs,omitempty"`
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns one session's BriefState. Transitions are sequential:
// while an LLM call is pending the step is analyzing or generating and
// every other transition except StartOver is refused.
type Controller struct {
	agent Agent
	store Store
	tasks *BestEffort
	now   func() time.Time

	mu         sync.Mutex
	step       Step
	brief      models.BriefState
	total      int
	lastErr    string
	edit       *markdown.EditBuffer
	briefs     []models.ListedBrief
	generation uint64
	seq        uint64

	// notifyMu orders deliveries so listeners see Seq increasing.
	notifyMu     sync.Mutex
	listenersMu  sync.Mutex
	listeners    map[int]func(Snapshot)
	nextListener int
}

func NewController(agent Agent, store Store, opts ...Option) *Controller {
	c := &Controller{
		agent:     agent,
		store:     store,
		tasks:     NewBestEffort(),
		now:       time.Now,
		step:      StepInput,
		brief:     emptyBrief(),
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func emptyBrief() models.BriefState {
	return models.BriefState{Answers: []models.Answer{}}
}

// Init loads the past briefs count.
func (c *Controller) Init(ctx context.Context) {
	c.tasks.Run(ctx, "refresh briefs count", c.refreshCount)
	c.notify()
}

// Wait blocks until queued persistence tasks finish.
func (c *Controller) Wait() {
	c.tasks.Wait()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Seq:         c.seq,
		Step:        c.step,
		Brief:       c.brief.Clone(),
		BriefsTotal: c.total,
		Error:       c.lastErr,
	}
	if c.edit != nil {
		buf := *c.edit
		snap.Edit = &buf
	}
	if c.step == StepBriefs {
		snap.Briefs = append([]models.ListedBrief(nil), c.briefs...)
	}
	return snap
}

// Subscribe registers fn to receive a snapshot after every change.
// Deliveries are serialized, so fn must not block.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Controller) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.seq++
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.listenersMu.Lock()
	fns := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// apply runs fn under the lock unless StartOver has bumped the generation
// since gen was taken.
func (c *Controller) apply(gen uint64, fn func()) bool {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return false
	}
	fn()
	c.mu.Unlock()
	c.notify()
	return true
}

func (c *Controller) expectStep(want Step, action string) error {
	if c.step != want {
		return apperr.Conflict(action + " is not available from the " + string(c.step) + " step")
	}
	return nil
}

func superseded() error {
	return apperr.Superseded("session was reset while the request was pending")
}

// SetBriefText edits the brief before submission.
func (c *Controller) SetBriefText(text string) error {
	c.mu.Lock()
	if err := c.expectStep(StepInput, "editing the brief"); err != nil {
		c.mu.Unlock()
		return err
	}
	c.brief.BriefText = text
	c.mu.Unlock()
	c.notify()
	return nil
}

// Analyze submits the brief: creation checkpoint, analyze call, then a
// checkpoint with the analysis. Failures return to the input step.
func (c *Controller) Analyze(ctx context.Context) error {
	c.mu.Lock()
	if err := c.expectStep(StepInput, "analyze"); err != nil {
		c.mu.Unlock()
		return err
	}
	length := utf8.RuneCountInString(strings.TrimSpace(c.brief.BriefText))
	if length < MinBriefLength {
		c.mu.Unlock()
		return apperr.Validation(messages.Format(messages.Default().Input.MinCharsWarning, "remaining", MinBriefLength-length))
	}

	gen := c.generation
	createdAt := c.now().UTC()
	c.brief.CreatedAt = &createdAt
	c.step = StepAnalyzing
	c.lastErr = ""
	initial := c.brief.Clone()
	c.mu.Unlock()
	c.notify()

	id := c.checkpoint(ctx, "", initial)
	if !c.apply(gen, func() { c.brief.ID = id }) {
		return superseded()
	}

	analysis, err := c.agent.Analyze(ctx, initial.BriefText)
	if err != nil {
		log.Printf("❌ analyze failed: %v", err)
		if !c.apply(gen, func() {
			c.step = StepInput
			c.lastErr = messages.AnalysisFailed(err)
		}) {
			return superseded()
		}
		return err
	}

	var withAnalysis models.BriefState
	if !c.apply(gen, func() {
		c.brief.Analysis = analysis
		c.brief.CurrentQuestion = 0
		withAnalysis = c.brief.Clone()
	}) {
		return superseded()
	}

	if id != "" {
		c.checkpoint(ctx, id, withAnalysis)
	}

	if !c.apply(gen, func() { c.step = StepAnalysis }) {
		return superseded()
	}
	return nil
}

// StartQuestions confirms the analysis and opens the first question.
func (c *Controller) StartQuestions() error {
	c.mu.Lock()
	if err := c.expectStep(StepAnalysis, "starting questions"); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.brief.Analysis == nil {
		c.mu.Unlock()
		return apperr.Conflict("no analysis loaded")
	}
	c.step = StepQuestions
	c.mu.Unlock()
	c.notify()
	return nil
}

// CurrentQuestion returns the open question and any answer typed so far.
func (c *Controller) CurrentQuestion() (models.Question, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.expectStep(StepQuestions, "reading the question"); err != nil {
		return models.Question{}, "", err
	}
	q := c.brief.Analysis.Questions[c.brief.CurrentQuestion]
	return q, models.FindAnswer(c.brief.Answers, q.Question), nil
}

// DraftAnswer records typed text for the open question without advancing
// or persisting.
func (c *Controller) DraftAnswer(text string) error {
	c.mu.Lock()
	if err := c.expectStep(StepQuestions, "drafting an answer"); err != nil {
		c.mu.Unlock()
		return err
	}
	q := c.brief.Analysis.Questions[c.brief.CurrentQuestion].Question
	c.brief.Answers = models.UpsertAnswer(c.brief.Answers, q, text)
	c.mu.Unlock()
	c.notify()
	return nil
}

// Answer submits the open question's answer. Every answer is persisted in
// the background; the last one triggers refinement.
func (c *Controller) Answer(ctx context.Context, text string) error {
	c.mu.Lock()
	if err := c.expectStep(StepQuestions, "answering"); err != nil {
		c.mu.Unlock()
		return err
	}
	if strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		return apperr.Validation("answer is required")
	}

	questions := c.brief.Analysis.Questions
	q := questions[c.brief.CurrentQuestion].Question
	c.brief.Answers = models.UpsertAnswer(c.brief.Answers, q, text)

	gen := c.generation
	current := c.brief.Clone()
	last := c.brief.CurrentQuestion >= len(questions)-1
	if last {
		c.step = StepGenerating
		c.lastErr = ""
	} else {
		c.brief.CurrentQuestion++
	}
	c.mu.Unlock()
	c.notify()

	if current.ID != "" {
		rec := current.ToRecord()
		c.tasks.Go(ctx, "save answers", func(ctx context.Context) error {
			_, err := c.store.Save(ctx, current.ID, rec)
			return err
		})
	}

	if !last {
		return nil
	}
	return c.refine(ctx, gen, current)
}

func (c *Controller) refine(ctx context.Context, gen uint64, current models.BriefState) error {
	result, err := c.agent.Refine(ctx, current.BriefText, current.Analysis, current.Answers)
	if err != nil {
		log.Printf("❌ refine failed: %v", err)
		if !c.apply(gen, func() {
			c.step = StepQuestions
			c.brief.CurrentQuestion = len(current.Analysis.Questions) - 1
			c.lastErr = messages.GenerationFailed(err)
		}) {
			return superseded()
		}
		return err
	}

	var refined models.BriefState
	if !c.apply(gen, func() {
		score := result.Score
		c.brief.Title = result.Title
		c.brief.RefinedBrief = result.RefinedBrief
		c.brief.FinalScore = &score
		c.brief.Answers = current.Answers
		refined = c.brief.Clone()
	}) {
		return superseded()
	}

	if refined.ID != "" {
		c.checkpoint(ctx, refined.ID, refined)
	}

	if !c.apply(gen, func() { c.step = StepOutput }) {
		return superseded()
	}
	return nil
}

// BeginEdit snapshots the refined brief into a rich-text buffer.
func (c *Controller) BeginEdit() (markdown.EditBuffer, error) {
	c.mu.Lock()
	if err := c.expectStep(StepOutput, "editing"); err != nil {
		c.mu.Unlock()
		return markdown.EditBuffer{}, err
	}
	if c.brief.RefinedBrief == "" {
		c.mu.Unlock()
		return markdown.EditBuffer{}, apperr.Conflict("there is no refined brief to edit")
	}
	if c.edit == nil {
		c.edit = markdown.NewEditBuffer(c.brief.RefinedBrief)
	}
	c.brief.IsEditing = true
	buf := *c.edit
	c.mu.Unlock()
	c.notify()
	return buf, nil
}

// UpdateEdit replaces the edit buffer contents.
func (c *Controller) UpdateEdit(html string) error {
	c.mu.Lock()
	if c.edit == nil {
		c.mu.Unlock()
		return apperr.Conflict("not editing")
	}
	c.edit.HTML = html
	c.mu.Unlock()
	c.notify()
	return nil
}

// SaveEdit converts the buffer back to Markdown and persists it in the
// background.
func (c *Controller) SaveEdit(ctx context.Context) error {
	c.mu.Lock()
	if c.edit == nil {
		c.mu.Unlock()
		return apperr.Conflict("not editing")
	}
	c.brief.RefinedBrief = c.edit.Markdown()
	c.brief.IsEditing = false
	c.edit = nil
	current := c.brief.Clone()
	c.mu.Unlock()
	c.notify()

	if current.ID != "" {
		rec := current.ToRecord()
		c.tasks.Go(ctx, "save edited brief", func(ctx context.Context) error {
			_, err := c.store.Save(ctx, current.ID, rec)
			return err
		})
	}
	return nil
}

// CancelEdit drops the buffer.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	c.edit = nil
	c.brief.IsEditing = false
	c.mu.Unlock()
	c.notify()
}

// StartOver resets to an empty input step from anywhere. A pending LLM
// call keeps running but its result is discarded.
func (c *Controller) StartOver(ctx context.Context) {
	c.mu.Lock()
	c.generation++
	c.step = StepInput
	c.brief = emptyBrief()
	c.lastErr = ""
	c.edit = nil
	c.briefs = nil
	c.mu.Unlock()
	c.notify()

	c.tasks.Go(ctx, "refresh briefs count", func(ctx context.Context) error {
		if err := c.refreshCount(ctx); err != nil {
			return err
		}
		c.notify()
		return nil
	})
}

// LoadByID hydrates a persisted brief into the output step. It reports
// false when the record is missing or the store failed.
func (c *Controller) LoadByID(ctx context.Context, id string) bool {
	c.mu.Lock()
	if c.step == StepAnalyzing || c.step == StepGenerating {
		c.mu.Unlock()
		return false
	}
	gen := c.generation
	c.mu.Unlock()

	var rec *models.BriefRecord
	c.tasks.Run(ctx, "load brief", func(ctx context.Context) error {
		var err error
		rec, err = c.store.Load(ctx, id)
		return err
	})
	if rec == nil {
		return false
	}

	return c.apply(gen, func() {
		c.brief.Hydrate(id, rec)
		c.step = StepOutput
		c.lastErr = ""
	})
}

// ShowBriefs opens the past briefs listing.
func (c *Controller) ShowBriefs(ctx context.Context) ([]models.ListedBrief, error) {
	c.mu.Lock()
	if c.step == StepAnalyzing || c.step == StepGenerating || c.brief.IsEditing {
		step := c.step
		c.mu.Unlock()
		return nil, apperr.Conflict("briefs are not available from the " + string(step) + " step")
	}
	c.mu.Unlock()

	var briefs []models.ListedBrief
	c.tasks.Run(ctx, "search briefs", func(ctx context.Context) error {
		var err error
		briefs, err = c.store.Search(ctx, BriefsListLimit)
		return err
	})

	c.mu.Lock()
	c.briefs = briefs
	c.step = StepBriefs
	c.mu.Unlock()
	c.notify()
	return append([]models.ListedBrief(nil), briefs...), nil
}

// DeleteBrief removes a record from the store and the open listing.
func (c *Controller) DeleteBrief(ctx context.Context, id string) {
	deleted := false
	c.tasks.Run(ctx, "delete brief", func(ctx context.Context) error {
		if err := c.store.Delete(ctx, id); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if !deleted {
		return
	}

	c.mu.Lock()
	kept := c.briefs[:0:0]
	for _, b := range c.briefs {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	c.briefs = kept
	c.mu.Unlock()

	c.tasks.Run(ctx, "refresh briefs count", c.refreshCount)
	c.notify()
}

// CloseBriefs returns from the listing to the input step.
func (c *Controller) CloseBriefs() error {
	c.mu.Lock()
	if err := c.expectStep(StepBriefs, "closing briefs"); err != nil {
		c.mu.Unlock()
		return err
	}
	c.step = StepInput
	c.briefs = nil
	c.mu.Unlock()
	c.notify()
	return nil
}

// checkpoint is an awaited best-effort save. It returns the record id,
// or "" when a create failed.
func (c *Controller) checkpoint(ctx context.Context, id string, state models.BriefState) string {
	rec := state.ToRecord()
	saved := id
	c.tasks.Run(ctx, "save brief", func(ctx context.Context) error {
		newID, err := c.store.Save(ctx, id, rec)
		if err != nil {
			return err
		}
		saved = newID
		return nil
	})
	return saved
}

func (c *Controller) refreshCount(ctx context.Context) error {
	total, err := c.store.Count(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.total = total
	c.mu.Unlock()
	return nil
}
