package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/shubh-37/music-brief-analyzer/internal/agents"
	"github.com/shubh-37/music-brief-analyzer/internal/apperr"
	"github.com/shubh-37/music-brief-analyzer/internal/claude"
	"github.com/shubh-37/music-brief-analyzer/internal/datastore"
	"github.com/shubh-37/music-brief-analyzer/internal/models"
	"github.com/shubh-37/music-brief-analyzer/internal/slack"
	"github.com/shubh-37/music-brief-analyzer/internal/store"
	"github.com/shubh-37/music-brief-analyzer/internal/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testBrief    = "Warm acoustic piece for a family holiday campaign, around 60 seconds long."
	testAnalysis = "```json\n" + `{"score":6,"strengths":["duration"],"gaps":["mood"],"questions":[{"question":"What mood?","context":"tone","category":"emotional"}]}` + "\n```"
	testRefined  = `{"title":"Holiday Warmth","refinedBrief":"# Holiday Warmth\n\nCosy and bright.","score":9}`
)

type sequenceGateway struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
}

func (g *sequenceGateway) Send(context.Context, []claude.Message, int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "", errors.New("no reply scripted")
	}
	reply := g.replies[0]
	g.replies = g.replies[1:]
	return reply, nil
}

type mockSharer struct {
	ShareFunc func(ctx context.Context, share slack.Share) (string, error)
}

func (m *mockSharer) ShareBrief(ctx context.Context, share slack.Share) (string, error) {
	if m.ShareFunc != nil {
		return m.ShareFunc(ctx, share)
	}
	return "", errors.New("not implemented")
}

func newTestServer(gw agents.Gateway, sharer Sharer) (*Server, *store.BriefStore) {
	briefs := store.NewBriefStore(datastore.NewDispatcher(datastore.NewMemoryBackend()))
	registry := NewRegistry(func() *workflow.Controller {
		return workflow.NewController(agents.NewBriefAgent(gw, 0), briefs)
	})
	return NewServer(Deps{Sessions: registry, Sharer: sharer}), briefs
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.SessionID == "" {
		t.Fatal("no session id")
	}
	return resp.SessionID
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) workflow.Snapshot {
	t.Helper()
	var snap workflow.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v (%s)", err, w.Body.String())
	}
	return snap
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(&sequenceGateway{}, nil)
	w := do(t, srv.Handler(), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestHealthReportsStoreFailure(t *testing.T) {
	srv := NewServer(Deps{
		Sessions: NewRegistry(nil),
		Health:   func(context.Context) error { return errors.New("pool closed") },
	})
	w := do(t, srv.Handler(), http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "pool closed") {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestUnknownSession(t *testing.T) {
	srv, _ := newTestServer(&sequenceGateway{}, nil)
	w := do(t, srv.Handler(), http.MethodPost, "/sessions/nope/analyze", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestWorkflowOverHTTP(t *testing.T) {
	var shared slack.Share
	sharer := &mockSharer{ShareFunc: func(_ context.Context, share slack.Share) (string, error) {
		shared = share
		return "1700000000.000100", nil
	}}
	gw := &sequenceGateway{replies: []string{testAnalysis, testRefined}}
	srv, _ := newTestServer(gw, sharer)
	h := srv.Handler()
	sid := createSession(t, h)
	base := "/sessions/" + sid

	if w := do(t, h, http.MethodPut, base+"/brief", briefRequest{BriefText: testBrief}); w.Code != http.StatusOK {
		t.Fatalf("set brief: %d %s", w.Code, w.Body.String())
	}

	w := do(t, h, http.MethodPost, base+"/analyze", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("analyze: %d %s", w.Code, w.Body.String())
	}
	if snap := decodeSnapshot(t, w); snap.Step != workflow.StepAnalysis || snap.Brief.Analysis.Score != 6 {
		t.Fatalf("after analyze: %+v", snap)
	}

	do(t, h, http.MethodPost, base+"/questions/start", nil)
	w = do(t, h, http.MethodGet, base+"/question", nil)
	if !strings.Contains(w.Body.String(), "Question 1 of 1") || !strings.Contains(w.Body.String(), "What mood?") {
		t.Errorf("question = %s", w.Body.String())
	}

	w = do(t, h, http.MethodPost, base+"/answer", answerRequest{Answer: "nostalgic"})
	snap := decodeSnapshot(t, w)
	if w.Code != http.StatusOK || snap.Step != workflow.StepOutput || snap.Brief.Title != "Holiday Warmth" {
		t.Fatalf("answer: %d %+v", w.Code, snap)
	}

	w = do(t, h, http.MethodPost, base+"/share", nil)
	if w.Code != http.StatusOK || shared.Title != "Holiday Warmth" || shared.Score == nil || *shared.Score != 9 {
		t.Errorf("share: %d %s %+v", w.Code, w.Body.String(), shared)
	}

	w = do(t, h, http.MethodGet, base+"/briefs", nil)
	var listing struct {
		Briefs []listedBrief `json:"briefs"`
	}
	json.Unmarshal(w.Body.Bytes(), &listing)
	if len(listing.Briefs) != 1 || listing.Briefs[0].Score != "6/10 → 9/10" || listing.Briefs[0].Title != "Holiday Warmth" {
		t.Errorf("briefs = %s", w.Body.String())
	}
}

func TestShortBriefIsBadRequest(t *testing.T) {
	gw := &sequenceGateway{}
	srv, _ := newTestServer(gw, nil)
	h := srv.Handler()
	base := "/sessions/" + createSession(t, h)

	do(t, h, http.MethodPut, base+"/brief", briefRequest{BriefText: "short"})
	w := do(t, h, http.MethodPost, base+"/analyze", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
	if gw.calls != 0 {
		t.Errorf("gateway called %d times", gw.calls)
	}
}

func TestGatewayFailureIsBadGateway(t *testing.T) {
	gw := &sequenceGateway{err: apperr.Transport("API request failed (500): rate limited", nil)}
	srv, _ := newTestServer(gw, nil)
	h := srv.Handler()
	base := "/sessions/" + createSession(t, h)

	do(t, h, http.MethodPut, base+"/brief", briefRequest{BriefText: testBrief})
	w := do(t, h, http.MethodPost, base+"/analyze", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		Message  string            `json:"message"`
		Snapshot workflow.Snapshot `json:"snapshot"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if !strings.HasPrefix(body.Message, "Error analyzing brief:") || body.Snapshot.Step != workflow.StepInput {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestWrongStepIsConflict(t *testing.T) {
	srv, _ := newTestServer(&sequenceGateway{}, nil)
	h := srv.Handler()
	base := "/sessions/" + createSession(t, h)

	if w := do(t, h, http.MethodPost, base+"/answer", answerRequest{Answer: "x"}); w.Code != http.StatusConflict {
		t.Errorf("answer from input: %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, base+"/edit", nil); w.Code != http.StatusConflict {
		t.Errorf("edit from input: %d", w.Code)
	}
}

func TestDeepLinkLoadsOnlyWithoutRefinedBrief(t *testing.T) {
	ctx := context.Background()
	srv, briefs := newTestServer(&sequenceGateway{}, nil)
	h := srv.Handler()
	base := "/sessions/" + createSession(t, h)

	first, _ := briefs.Save(ctx, "", &models.BriefRecord{Title: "First", RefinedBrief: "# First"})
	second, _ := briefs.Save(ctx, "", &models.BriefRecord{Title: "Second", RefinedBrief: "# Second"})

	snap := decodeSnapshot(t, do(t, h, http.MethodGet, base+"/output?id="+first, nil))
	if snap.Step != workflow.StepOutput || snap.Brief.Title != "First" {
		t.Fatalf("deep link: %+v", snap)
	}

	snap = decodeSnapshot(t, do(t, h, http.MethodGet, base+"/output?id="+second, nil))
	if snap.Brief.Title != "First" {
		t.Errorf("loaded brief was replaced by %q", snap.Brief.Title)
	}
}

func TestShareWithoutPublisher(t *testing.T) {
	srv, _ := newTestServer(&sequenceGateway{}, nil)
	h := srv.Handler()
	base := "/sessions/" + createSession(t, h)

	if w := do(t, h, http.MethodPost, base+"/share", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	srv, _ := newTestServer(&sequenceGateway{}, nil)
	h := srv.Handler()
	sid := createSession(t, h)

	if w := do(t, h, http.MethodDelete, "/sessions/"+sid, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete: %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/sessions/"+sid, nil); w.Code != http.StatusNotFound {
		t.Errorf("after delete: %d", w.Code)
	}
}
