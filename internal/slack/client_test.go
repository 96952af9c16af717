package slack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/slack-go/slack"
)

func TestToMrkdwn(t *testing.T) {
	got := ToMrkdwn("# Spot\n## Mood\n- **Bold** line\nplain")
	want := "*Spot*\n*Mood*\n• *Bold* line\nplain"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestChunksRespectLimit(t *testing.T) {
	text := strings.Repeat("abcdefghij\n", 30)
	parts := chunks(text, 50)
	if len(parts) < 6 {
		t.Fatalf("parts = %d", len(parts))
	}
	for _, p := range parts {
		if len([]rune(p)) > 50 {
			t.Errorf("chunk too long: %d", len([]rune(p)))
		}
	}
	if strings.Join(parts, "\n") != strings.TrimRight(text, "\n") {
		t.Error("chunks lost text")
	}

	long := chunks(strings.Repeat("x", 120), 50)
	if len(long) != 3 {
		t.Errorf("long line parts = %d", len(long))
	}
}

func TestBuildBlocks(t *testing.T) {
	score := 9.0
	blocks := BuildBlocks(Share{Title: "", Score: &score, Markdown: "# Spot\nbody"})
	if len(blocks) != 4 {
		t.Fatalf("blocks = %d", len(blocks))
	}
	header, ok := blocks[0].(*slack.HeaderBlock)
	if !ok || header.Text.Text != "Untitled Brief" {
		t.Errorf("header = %+v", blocks[0])
	}
	ctxBlock, ok := blocks[1].(*slack.ContextBlock)
	if !ok {
		t.Fatalf("context = %+v", blocks[1])
	}
	if txt := ctxBlock.ContextElements.Elements[0].(*slack.TextBlockObject).Text; txt != "Score: *9/10*" {
		t.Errorf("score = %q", txt)
	}
}

func TestShareBriefPostsToChannel(t *testing.T) {
	var channel, blocks string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		r.ParseForm()
		channel = r.FormValue("channel")
		blocks = r.FormValue("blocks")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	}))
	defer srv.Close()

	p := NewPublisher("xoxb-test", "C123", slack.OptionAPIURL(srv.URL+"/"))
	ts, err := p.ShareBrief(context.Background(), Share{Title: "Sneaker Spot", Markdown: "**Bold** energy"})
	if err != nil {
		t.Fatal(err)
	}
	if ts != "1700000000.000100" || channel != "C123" {
		t.Errorf("ts = %q channel = %q", ts, channel)
	}
	if !strings.Contains(blocks, "Sneaker Spot") || !strings.Contains(blocks, "*Bold* energy") {
		t.Errorf("blocks = %s", blocks)
	}

	if _, err := p.ShareBrief(context.Background(), Share{Title: "x"}); err == nil {
		t.Error("empty brief should not be shared")
	}
}
